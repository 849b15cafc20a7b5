package ocr

import "github.com/ternarybob/quire/internal/models"

// PageAverage returns the mean line confidence, or 0 for a page without lines
func PageAverage(lines []models.ArticleLine) float64 {
	if len(lines) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range lines {
		sum += l.Confidence
	}
	return sum / float64(len(lines))
}

// FlagLines marks every line whose confidence is below avg and clears the rest
func FlagLines(lines []models.ArticleLine, avg float64) {
	for i := range lines {
		lines[i].Flagged = lines[i].Confidence < avg
	}
}

// Aggregate returns the article confidence: the mean of the page averages. With
// excludeEmpty, pages that produced no lines do not count toward the mean.
func Aggregate(pages []models.ArticlePage, excludeEmpty bool) float64 {
	sum := 0.0
	n := 0
	for _, p := range pages {
		if excludeEmpty && len(p.Lines) == 0 {
			continue
		}
		sum += p.Average
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
