// -----------------------------------------------------------------------
// Article Format - Annotated line format shared by writers and the loader
// -----------------------------------------------------------------------

package article

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/quire/internal/models"
)

const (
	// FormatWidth is the column width of dividers and wrapped text
	FormatWidth = 50

	commentPrefix = "#"
	columnSep     = "|"
	fillRune      = "="
	flagMark      = "?"
	placeholder   = "  ---.-- "

	header = "# confidence | line text (proofread, lines marked ? first)"
)

// Center pads s with fill on both sides to width runes. An odd padding puts the extra
// fill character on the left when width is odd, on the right otherwise.
func Center(s string, width int, fill string) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	pad := width - n
	left := pad/2 + (pad & width & 1)
	return strings.Repeat(fill, left) + s + strings.Repeat(fill, pad-left)
}

func divider(page int, avg float64) string {
	return commentPrefix + Center(fmt.Sprintf(" page: %d, avg confidence: %3.2f ", page, avg), FormatWidth, fillRune)
}

func sourceLine(path string) string {
	return commentPrefix + "source: " + path
}

// FormatLine renders one recognized line: flag, confidence, separator, text
func FormatLine(l models.ArticleLine) string {
	flag := " "
	if l.Flagged {
		flag = flagMark
	}
	if l.Text == "" {
		return fmt.Sprintf("%s %3.2f %s", flag, l.Confidence, columnSep)
	}
	return fmt.Sprintf("%s %3.2f %s %s", flag, l.Confidence, columnSep, l.Text)
}

// WriteOCR writes a recognized article
func WriteOCR(w io.Writer, a *models.Article) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header)
	for _, p := range a.Pages {
		fmt.Fprintln(bw, divider(p.Number, p.Average))
		fmt.Fprintln(bw, sourceLine(p.ImagePath))
		for _, l := range p.Lines {
			fmt.Fprintln(bw, FormatLine(l))
		}
	}
	fmt.Fprintln(bw, commentPrefix+Center(fmt.Sprintf(" aggregate confidence: %3.2f ", a.Aggregate), FormatWidth, fillRune))
	return bw.Flush()
}

// WriteText writes extracted plain text, wrapped, with the placeholder in place of a confidence.
// A line broken at whitespace starts with an extra space so the loader can rejoin the
// text exactly; a line cut inside a word does not.
func WriteText(w io.Writer, sourcePath, content string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, commentPrefix+strings.Repeat(fillRune, FormatWidth))
	fmt.Fprintln(bw, sourceLine(sourcePath))
	for _, line := range wrapLines(content, FormatWidth) {
		sep := ""
		if line.spaced {
			sep = " "
		}
		fmt.Fprintf(bw, "%s%s %s%s\n", placeholder, columnSep, sep, line.text)
	}
	return bw.Flush()
}

// Segment is the text column of one content line
type Segment struct {
	Text string
	// Exact marks text-emitter lines. Their breaks are recorded: Spaced is set when the
	// line was broken at whitespace, otherwise it continues the previous line directly.
	Exact  bool
	Spaced bool
}

// Segments returns the text column of every content line, skipping comment lines
func Segments(r io.Reader) ([]Segment, error) {
	var out []Segment
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, commentPrefix) {
			continue
		}
		var seg Segment
		if strings.HasPrefix(line, placeholder+columnSep) {
			rest := strings.TrimPrefix(line[len(placeholder)+len(columnSep):], " ")
			seg.Exact = true
			seg.Spaced = strings.HasPrefix(rest, " ")
			line = rest
		} else if i := strings.Index(line, columnSep); i >= 0 {
			line = line[i+len(columnSep):]
		}
		seg.Text = strings.TrimSpace(line)
		if seg.Text != "" {
			out = append(out, seg)
		}
	}
	return out, sc.Err()
}

// Body returns the trimmed text column of every content line
func Body(r io.Reader) ([]string, error) {
	segs, err := Segments(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out, nil
}

// Wrap splits text into lines of at most width runes. Whitespace runs collapse to one
// space and words longer than width are broken.
func Wrap(text string, width int) []string {
	wrapped := wrapLines(text, width)
	lines := make([]string, len(wrapped))
	for i, l := range wrapped {
		lines[i] = l.text
	}
	return lines
}

type wrappedLine struct {
	text   string
	spaced bool // broken from the previous line at whitespace
}

func wrapLines(text string, width int) []wrappedLine {
	var lines []wrappedLine
	var cur []rune
	spaced := false

	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, wrappedLine{text: string(cur), spaced: spaced})
			cur = cur[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(w) <= width {
			cur = append(cur, ' ')
			cur = append(cur, w...)
			continue
		}
		if len(cur) > 0 && len(w) <= width {
			flush()
			spaced = true
			cur = append(cur, w...)
			continue
		}
		// long word: fill the current line, then emit full-width chunks
		if len(cur) > 0 {
			room := width - len(cur) - 1
			if room > 0 {
				cur = append(cur, ' ')
				cur = append(cur, w[:room]...)
				w = w[room:]
				flush()
				spaced = false
			} else {
				flush()
				spaced = true
			}
		}
		for len(w) > width {
			lines = append(lines, wrappedLine{text: string(w[:width]), spaced: spaced})
			spaced = false
			w = w[width:]
		}
		cur = append(cur, w...)
	}
	flush()
	return lines
}
