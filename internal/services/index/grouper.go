package index

import (
	"path/filepath"

	"github.com/ternarybob/quire/internal/models"
)

// SourcePath resolves a rule's source against the resource directory and normalizes it
func SourcePath(resourceDir, source string) string {
	p := source
	if !filepath.IsAbs(p) {
		p = filepath.Join(resourceDir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}

// Group partitions rules by physical source file. Groups appear in the order their
// source is first referenced and keep their rules in input order. Overlapping page
// ranges within one file are kept as they are.
func Group(rules []models.IndexRule, fallback map[string]models.Params, resourceDir string) []models.FileGroup {
	var groups []models.FileGroup
	pos := make(map[string]int)

	for _, rule := range rules {
		key := SourcePath(resourceDir, rule.SourcePath)
		i, ok := pos[key]
		if !ok {
			i = len(groups)
			pos[key] = i
			groups = append(groups, models.FileGroup{SourcePath: key})
		}
		groups[i].Entries = append(groups[i].Entries, models.RuleEntry{
			Row:       rule.Row,
			Title:     rule.Title,
			Category:  rule.Category,
			SortIndex: rule.SortIndex,
			PageRange: rule.PageRange,
			Params:    Resolve(rule, fallback),
		})
	}
	return groups
}
