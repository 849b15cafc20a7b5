package models

import "sort"

// Corpus is the in-memory form of the normalized article directory
type Corpus struct {
	Articles map[string]map[string]string // category -> title -> content
	Sort     map[string]int               // category -> declared sort index
}

// NewCorpus returns an empty corpus
func NewCorpus() *Corpus {
	return &Corpus{
		Articles: make(map[string]map[string]string),
		Sort:     make(map[string]int),
	}
}

// Categories returns category names ordered by sort index, then name
func (c *Corpus) Categories() []string {
	cats := make([]string, 0, len(c.Sort))
	for cat := range c.Sort {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if c.Sort[cats[i]] != c.Sort[cats[j]] {
			return c.Sort[cats[i]] < c.Sort[cats[j]]
		}
		return cats[i] < cats[j]
	})
	return cats
}

// Titles returns the article titles of a category in lexical order
func (c *Corpus) Titles(category string) []string {
	titles := make([]string, 0, len(c.Articles[category]))
	for t := range c.Articles[category] {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// Size returns the total number of articles
func (c *Corpus) Size() int {
	n := 0
	for _, arts := range c.Articles {
		n += len(arts)
	}
	return n
}

// LoadWarningKind classifies a corpus load warning
type LoadWarningKind string

const (
	WarnMalformedName LoadWarningKind = "malformed_name"
	WarnNotRegular    LoadWarningKind = "not_regular"
	WarnNotInIndex    LoadWarningKind = "not_in_index"
	WarnSortConflict  LoadWarningKind = "sort_conflict"
	WarnMissing       LoadWarningKind = "missing"
	WarnUnreadable    LoadWarningKind = "unreadable"
)

// LoadWarning is a non-fatal finding of the corpus loader
type LoadWarning struct {
	Kind    LoadWarningKind
	File    string
	Message string
}
