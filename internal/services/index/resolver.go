package index

import (
	"strings"

	"github.com/ternarybob/quire/internal/models"
)

// Resolve returns the parameters a rule is processed with. A rule that sets any
// parameter uses exactly its own set; the fallback entry for its source file is
// consulted only when the rule sets none.
func Resolve(rule models.IndexRule, fallback map[string]models.Params) models.Params {
	if !rule.Params.Empty() {
		return rule.Params
	}
	if p, ok := fallback[rule.SourcePath]; ok {
		return p
	}
	if p, ok := fallback[strings.TrimSpace(rule.SourcePath)]; ok {
		return p
	}
	return models.Params{}
}
