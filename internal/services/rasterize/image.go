package rasterize

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

func init() {
	image.RegisterFormat("ppm", "P6", decodePPM, decodePPMConfig)
	image.RegisterFormat("pgm", "P5", decodePPM, decodePPMConfig)
}

// LoadImage decodes a page image written by any of the rasterizers
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

type pnmHeader struct {
	magic         string
	width, height int
	maxval        int
}

func readPNMHeader(r *bufio.Reader) (pnmHeader, error) {
	var h pnmHeader
	fields := make([]int, 0, 3)

	magic := make([]byte, 2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, err
	}
	h.magic = string(magic)
	if h.magic != "P6" && h.magic != "P5" {
		return h, fmt.Errorf("unsupported netpbm type %q", h.magic)
	}

	for len(fields) < 3 {
		b, err := r.ReadByte()
		if err != nil {
			return h, err
		}
		switch {
		case b == '#':
			if _, err := r.ReadString('\n'); err != nil {
				return h, err
			}
		case b >= '0' && b <= '9':
			n := int(b - '0')
			for {
				c, err := r.ReadByte()
				if err != nil {
					return h, err
				}
				if c < '0' || c > '9' {
					break
				}
				n = n*10 + int(c-'0')
			}
			fields = append(fields, n)
		}
	}
	h.width, h.height, h.maxval = fields[0], fields[1], fields[2]
	if h.maxval <= 0 || h.maxval > 255 {
		return h, fmt.Errorf("unsupported netpbm maxval %d", h.maxval)
	}
	return h, nil
}

func decodePPMConfig(r io.Reader) (image.Config, error) {
	h, err := readPNMHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	model := color.RGBAModel
	if h.magic == "P5" {
		model = color.GrayModel
	}
	return image.Config{ColorModel: model, Width: h.width, Height: h.height}, nil
}

func decodePPM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	h, err := readPNMHeader(br)
	if err != nil {
		return nil, err
	}

	if h.magic == "P5" {
		img := image.NewGray(image.Rect(0, 0, h.width, h.height))
		if _, err := io.ReadFull(br, img.Pix); err != nil {
			return nil, err
		}
		return img, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	px := make([]byte, 3*h.width)
	for y := 0; y < h.height; y++ {
		if _, err := io.ReadFull(br, px); err != nil {
			return nil, err
		}
		for x := 0; x < h.width; x++ {
			i := y*img.Stride + 4*x
			copy(img.Pix[i:i+3], px[3*x:3*x+3])
			img.Pix[i+3] = 0xff
		}
	}
	return img, nil
}
