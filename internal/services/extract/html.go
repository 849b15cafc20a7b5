package extract

import (
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// extractHTML converts the page body to markdown and then to plain text
func (s *Service) extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	converter := md.NewConverter("", true, nil)
	markdown := converter.Convert(body)
	if strings.TrimSpace(markdown) == "" {
		s.logger.Warn().Str("path", path).Msg("HTML to markdown conversion produced empty output, using raw text")
		return strings.Join(strings.Fields(body.Text()), " "), nil
	}
	return markdownToText([]byte(markdown))
}
