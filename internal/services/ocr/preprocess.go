package ocr

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ternarybob/quire/internal/models"
)

// BinarizeThreshold is the gray level below which a pixel becomes black
const BinarizeThreshold = 180

// Binarize converts img to grayscale and thresholds it to pure black and white
func Binarize(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y < BinarizeThreshold {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// Crop cuts the (left, top, right, bottom) box out of img. The box is clipped to the
// image; a box that leaves nothing is an error.
func Crop(img *image.Gray, box models.CropRect) (*image.Gray, error) {
	r := image.Rect(box.Left, box.Top, box.Right, box.Bottom).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop %s is empty within image bounds %v", box, img.Bounds())
	}
	return img.SubImage(r).(*image.Gray), nil
}

// Prepare applies binarization and the optional crop in that order
func Prepare(img image.Image, crop *models.CropRect) (image.Image, error) {
	gray := Binarize(img)
	if crop == nil {
		return gray, nil
	}
	return Crop(gray, *crop)
}
