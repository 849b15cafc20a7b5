// -----------------------------------------------------------------------
// Corpus Loader - Read normalized articles back into memory by category
// -----------------------------------------------------------------------

package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
	"github.com/ternarybob/quire/internal/services/article"
	"github.com/ternarybob/quire/internal/services/ocr"
	"github.com/ternarybob/quire/internal/services/progress"
)

var sentencePattern = regexp.MustCompile(`.*?[.。]`)

// Loader reads the data directory against the index
type Loader struct {
	observer interfaces.ProgressObserver
	logger   arbor.ILogger
}

// NewLoader creates a corpus loader
func NewLoader(observer interfaces.ProgressObserver, logger arbor.ILogger) *Loader {
	if observer == nil {
		observer = progress.Nop{}
	}
	return &Loader{observer: observer, logger: logger}
}

// Load reads every article file of dataDir that the index declares. Files that do not
// belong are skipped with a warning, as is every declared article that was not found.
// Only a missing data directory is an error.
func (l *Loader) Load(ctx context.Context, dataDir string, rules []models.IndexRule) (*models.Corpus, []models.LoadWarning, error) {
	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return nil, nil, &common.IOError{Op: "open data directory", Path: dataDir, Missing: true, Err: err}
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, nil, &common.IOError{Op: "list data directory", Path: dataDir, Err: err}
	}

	expected := make(map[string]bool, len(rules))
	for _, r := range rules {
		expected[r.Key().FileName()] = true
	}

	corpus := models.NewCorpus()
	var warnings []models.LoadWarning
	warn := func(kind models.LoadWarningKind, file, format string, args ...interface{}) {
		w := models.LoadWarning{Kind: kind, File: file, Message: fmt.Sprintf(format, args...)}
		warnings = append(warnings, w)
		l.logger.Warn().Str("kind", string(kind)).Str("file", file).Msg(w.Message)
		l.observer.OnLog(ctx, models.LogEvent{Level: models.LevelWarn, Message: w.Message, Source: file})
	}

	counter := progress.NewCounter(len(entries), l.observer)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		name := e.Name()
		path := filepath.Join(dataDir, name)
		counter.Tick(ctx, "load "+name)

		key, err := models.ParseArticleFileName(name)
		if err != nil {
			warn(models.WarnMalformedName, name, "skipped %s: %v", name, err)
			continue
		}
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			warn(models.WarnNotRegular, name, "skipped %s: not a regular file", name)
			continue
		}
		if !expected[name] {
			warn(models.WarnNotInIndex, name, "skipped %s: not declared in the index", name)
			continue
		}
		delete(expected, name)

		content, err := ReadArticle(path)
		if err != nil {
			warn(models.WarnUnreadable, name, "skipped %s: %v", name, err)
			continue
		}

		if _, ok := corpus.Articles[key.Category]; !ok {
			corpus.Articles[key.Category] = make(map[string]string)
			corpus.Sort[key.Category] = key.SortIndex
		}
		if declared := corpus.Sort[key.Category]; declared != key.SortIndex {
			warn(models.WarnSortConflict, name,
				"category %s is declared with sort index %d, %s uses %d; filed under %d",
				key.Category, declared, name, key.SortIndex, declared)
		}
		corpus.Articles[key.Category][key.Title] = content

		l.logger.Debug().
			Str("file", name).
			Str("category", key.Category).
			Str("title", key.Title).
			Int("sort", key.SortIndex).
			Msg("Article loaded")
	}

	missing := make([]string, 0, len(expected))
	for name := range expected {
		missing = append(missing, name)
	}
	sort.Strings(missing)
	for _, name := range missing {
		warn(models.WarnMissing, name, "%s is declared in the index but was not found", name)
	}

	l.logger.Info().
		Int("articles", corpus.Size()).
		Int("categories", len(corpus.Sort)).
		Int("warnings", len(warnings)).
		Msg("Corpus loaded")

	return corpus, warnings, nil
}

// ReadArticle returns the sentence-per-line content of an article file
func ReadArticle(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	segs, err := article.Segments(f)
	if err != nil {
		return "", err
	}
	return Sentences(JoinSegments(segs)), nil
}

// JoinLines concatenates recognized text lines, putting a space only where both
// neighbours are non-CJK letters or digits so Latin words on adjacent lines stay apart
func JoinLines(lines []string) string {
	segs := make([]article.Segment, len(lines))
	for i, l := range lines {
		segs[i] = article.Segment{Text: l}
	}
	return JoinSegments(segs)
}

// JoinSegments concatenates article lines. Emitted text lines are rejoined exactly as
// they were broken; recognized lines follow the JoinLines rule.
func JoinSegments(segs []article.Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		if seg.Text == "" {
			continue
		}
		if b.Len() > 0 {
			if seg.Exact {
				if seg.Spaced {
					b.WriteByte(' ')
				}
			} else {
				prev, _ := utf8.DecodeLastRuneInString(b.String())
				next, _ := utf8.DecodeRuneInString(seg.Text)
				if isWordRune(prev) && isWordRune(next) {
					b.WriteByte(' ')
				}
			}
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return (unicode.IsLetter(r) || unicode.IsDigit(r)) && !ocr.IsCJK(r)
}

// Sentences puts every sentence ending in "." or "。" on its own line. Text after the
// last terminator is kept as a final line.
func Sentences(text string) string {
	var out []string
	rest := text
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		rest = text[loc[1]:]
	}
	if s := strings.TrimSpace(rest); s != "" {
		out = append(out, s)
	}
	return strings.Join(out, "\n")
}
