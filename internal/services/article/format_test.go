package article

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/models"
	"github.com/ternarybob/quire/internal/services/progress"
)

func TestCenter(t *testing.T) {
	assert.Equal(t, "==ab==", Center("ab", 6, "="))
	assert.Equal(t, "=abc==", Center("abc", 6, "="))
	assert.Equal(t, "==ab=", Center("ab", 5, "="))
	assert.Equal(t, "toolong", Center("toolong", 3, "="))
	assert.Equal(t, 50, utf8.RuneCountInString(Center(" 页码 ", 50, "=")))
}

func sampleArticle() *models.Article {
	return &models.Article{
		Key: models.ArticleKey{SortIndex: 0, Category: "intro", Title: "第一章"},
		Pages: []models.ArticlePage{
			{Number: 1, ImagePath: "/tmp/book-300-1.jpg", Average: 60, Lines: []models.ArticleLine{
				{Confidence: 90, Text: "第一句话。第二"},
				{Flagged: true, Confidence: 30, Text: "句话。"},
			}},
			{Number: 2, ImagePath: "/tmp/book-300-2.jpg"},
		},
		Aggregate: 30,
	}
}

func TestWriteOCR(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOCR(&buf, sampleArticle()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, header, lines[0])
	assert.Equal(t, "#"+Center(" page: 1, avg confidence: 60.00 ", 50, "="), lines[1])
	assert.Equal(t, "#source: /tmp/book-300-1.jpg", lines[2])
	assert.Equal(t, "  90.00 | 第一句话。第二", lines[3])
	assert.Equal(t, "? 30.00 | 句话。", lines[4])
	assert.Contains(t, lines[5], "page: 2, avg confidence: 0.00")
	assert.Contains(t, lines[7], "aggregate confidence: 30.00")
	assert.Equal(t, 51, utf8.RuneCountInString(lines[7]))

	body, err := Body(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, []string{"第一句话。第二", "句话。"}, body)
}

func TestFormatLine_BlankLine(t *testing.T) {
	assert.Equal(t, "? 10.00 |", FormatLine(models.ArticleLine{Flagged: true, Confidence: 10}))

	body, err := Body(strings.NewReader("? 10.00 |\n  90.00 | 文字\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"文字"}, body)
}

func TestWriteText(t *testing.T) {
	content := "The quick brown fox jumps over the lazy dog and keeps running far away.\n\nSecond   paragraph."
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, "/docs/notes.txt", content))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, "#"+strings.Repeat("=", 50), lines[0])
	assert.Equal(t, "#source: /docs/notes.txt", lines[1])
	for _, l := range lines[2:] {
		assert.True(t, strings.HasPrefix(l, "  ---.-- | "), l)
	}

	body, err := Body(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(strings.Fields(content), " "), strings.Join(body, " "))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"aa bb", "cc"}, Wrap("aa bb cc", 5))
	assert.Equal(t, []string{"abcde", "fgh"}, Wrap("abcdefgh", 5))
	assert.Equal(t, []string{"a bcd", "efghi", "j"}, Wrap("a bcdefghij", 5))
	assert.Empty(t, Wrap("  \n\t ", 5))

	cjk := strings.Repeat("字", 120)
	wrapped := Wrap(cjk, FormatWidth)
	require.Len(t, wrapped, 3)
	assert.Equal(t, 50, utf8.RuneCountInString(wrapped[0]))
	assert.Equal(t, cjk, strings.Join(wrapped, ""))
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	rec := &progress.Recorder{}
	w := NewWriter(dir, rec, arbor.NewLogger())

	path, err := w.WriteOCR(sampleArticle())
	require.NoError(t, err)
	assert.Equal(t, w.Path(models.ArticleKey{Category: "intro", Title: "第一章"}), path)
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))

	entry := models.RuleEntry{Title: "附录", Category: "appendix", SortIndex: 1, PageRange: &models.PageRange{Begin: 1, End: 2}}
	path, err = w.Emit(context.Background(), entry, "/docs/notes.txt", "hello")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "data_1_appendix_附录.txt"))
	assert.Len(t, rec.LogsAt(models.LevelWarn), 1)

	_, err = w.Emit(context.Background(), models.RuleEntry{Title: "x", Category: "a_b"}, "/docs/n.txt", "x")
	assert.Error(t, err)
}

func TestWrapLines_RecordsBreaks(t *testing.T) {
	assert.Equal(t, []wrappedLine{
		{text: "abcde"},
		{text: "fgh"},
		{text: "ij", spaced: true},
	}, wrapLines("abcdefgh ij", 5))

	assert.Equal(t, []wrappedLine{
		{text: "a bcd"},
		{text: "efghi"},
		{text: "j"},
	}, wrapLines("a bcdefghij", 5))
}

func TestSegments_TextLinesKeepBreaks(t *testing.T) {
	content := strings.Repeat("中", 48) + "2019年增长 GDP growth"
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, "/docs/report.txt", content))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "  ---.-- | "+strings.Repeat("中", 48)+"20", lines[2])
	assert.Equal(t, "  ---.-- | 19年增长 GDP growth", lines[3])

	segs, err := Segments(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.True(t, segs[1].Exact)
	assert.False(t, segs[1].Spaced)

	segs, err = Segments(strings.NewReader("  ---.-- | 中文\n  ---.-- |  ab\n  90.00 | 识别\n"))
	require.NoError(t, err)
	assert.Equal(t, []Segment{
		{Text: "中文", Exact: true},
		{Text: "ab", Exact: true, Spaced: true},
		{Text: "识别"},
	}, segs)
}
