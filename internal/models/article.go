package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ArticlePrefix starts every normalized article file name
	ArticlePrefix = "data"
	// ArticleExt is the extension of normalized article files
	ArticleExt = ".txt"

	articleSep = "_"
)

var (
	ErrArticleNamePrefix = errors.New("article file name has no data prefix")
	ErrArticleNameFields = errors.New("article file name has fewer than four fields")
	ErrArticleNameSort   = errors.New("article file name has a non-integer sort index")
)

// ArticleKey identifies an article: sort index, category and title
type ArticleKey struct {
	SortIndex int    `json:"sort_index"`
	Category  string `json:"category"`
	Title     string `json:"title"`
}

func (k ArticleKey) String() string {
	return fmt.Sprintf("%s <%s> #%d", k.Title, k.Category, k.SortIndex)
}

// FileName encodes the key as data_<sort>_<category>_<title>.txt
func (k ArticleKey) FileName() string {
	return ArticlePrefix + articleSep + strconv.Itoa(k.SortIndex) + articleSep +
		k.Category + articleSep + k.Title + ArticleExt
}

// ValidateArticleKey rejects keys whose file name could not be decoded back.
// Titles may contain the separator (the title is the last field); categories may not.
func ValidateArticleKey(k ArticleKey) error {
	if k.Category == "" || k.Title == "" {
		return errors.New("category and title must be non-empty")
	}
	if strings.Contains(k.Category, articleSep) {
		return fmt.Errorf("category %q must not contain %q", k.Category, articleSep)
	}
	for _, s := range []string{k.Category, k.Title} {
		if strings.ContainsAny(s, `/\`) {
			return fmt.Errorf("%q must not contain path separators", s)
		}
	}
	return nil
}

// ParseArticleFileName decodes a base name produced by ArticleKey.FileName
func ParseArticleFileName(name string) (ArticleKey, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.SplitN(stem, articleSep, 4)
	if len(parts) < 4 {
		return ArticleKey{}, ErrArticleNameFields
	}
	if parts[0] != ArticlePrefix {
		return ArticleKey{}, ErrArticleNamePrefix
	}
	sort, err := strconv.Atoi(parts[1])
	if err != nil {
		return ArticleKey{}, ErrArticleNameSort
	}
	return ArticleKey{SortIndex: sort, Category: parts[2], Title: parts[3]}, nil
}

// ArticleLine is one annotated output line
type ArticleLine struct {
	Flagged    bool
	Confidence float64
	Text       string
}

// ArticlePage is the recognized content of one page of an article
type ArticlePage struct {
	Number     int
	ImagePath  string
	Average    float64
	Lines      []ArticleLine
	LineFaults int
}

// Article is the recognized content of one index rule
type Article struct {
	Key       ArticleKey
	Pages     []ArticlePage
	Aggregate float64
}
