// -----------------------------------------------------------------------
// Index Rule - One row of the article index
// -----------------------------------------------------------------------

package models

import "fmt"

// Recognized parameter keys (canonical upper case)
const (
	ParamCrop = "CROP"
	ParamLang = "LANG"
)

// PageRange is an inclusive 1-based page span of a paginated source
type PageRange struct {
	Begin int `json:"begin" validate:"min=1"`
	End   int `json:"end" validate:"gtefield=Begin"`
}

// Count returns the number of pages in the range
func (r PageRange) Count() int {
	return r.End - r.Begin + 1
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Begin, r.End)
}

// CropRect is a crop box in image pixels: left, top, right, bottom
type CropRect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (c CropRect) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", c.Left, c.Top, c.Right, c.Bottom)
}

// Params holds the typed per-rule overrides. The zero value means "no overrides".
type Params struct {
	Crop *CropRect `json:"crop,omitempty"`
	Lang string    `json:"lang,omitempty"`
}

// Empty reports whether no parameter is set
func (p Params) Empty() bool {
	return p.Crop == nil && p.Lang == ""
}

// IndexRule binds an article to a source file, an optional page range and overrides
type IndexRule struct {
	Row        int        `json:"row"` // 1-based data row in the index, for diagnostics
	Title      string     `json:"title" validate:"required"`
	SourcePath string     `json:"source_path" validate:"required"`
	Category   string     `json:"category" validate:"required"`
	SortIndex  int        `json:"sort_index"`
	PageRange  *PageRange `json:"page_range,omitempty"`
	Params     Params     `json:"params"`
}

// Key returns the article identity of the rule
func (r IndexRule) Key() ArticleKey {
	return ArticleKey{SortIndex: r.SortIndex, Category: r.Category, Title: r.Title}
}

// RuleEntry is a rule after parameter resolution, as held by a FileGroup
type RuleEntry struct {
	Row       int
	Title     string
	Category  string
	SortIndex int
	PageRange *PageRange
	Params    Params // resolved
}

// Key returns the article identity of the entry
func (e RuleEntry) Key() ArticleKey {
	return ArticleKey{SortIndex: e.SortIndex, Category: e.Category, Title: e.Title}
}

// FileGroup collects every rule that draws on one physical source file
type FileGroup struct {
	SourcePath string // normalized absolute path
	Entries    []RuleEntry
}

// Paginated reports whether the group's source is processed page by page
func (g FileGroup) Paginated() bool {
	return IsPaginatedSource(g.SourcePath)
}
