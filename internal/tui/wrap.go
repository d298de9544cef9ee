package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const bullet = "- "

// wrapReason renders one rationale line as a bullet wrapped to width cells.
// Continuation lines are indented under the bullet and numbers are emphasized.
func wrapReason(reason string, width int, base, emphasis lipgloss.Style) string {
	lines := wrapWords(reason, width-len(bullet))
	for i, line := range lines {
		prefix := strings.Repeat(" ", len(bullet))
		if i == 0 {
			prefix = bullet
		}
		lines[i] = base.Render(prefix) + styleNumbers(line, base, emphasis)
	}
	return strings.Join(lines, "\n")
}

// wrapWords packs words greedily into lines of at most width cells. A word
// wider than a whole line is cut. Width <= 0 disables wrapping.
func wrapWords(text string, width int) []string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	var cur strings.Builder
	curWidth := 0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curWidth = 0
	}
	for _, word := range words {
		for runewidth.StringWidth(word) > width {
			if curWidth > 0 {
				flush()
			}
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				_, size := utf8.DecodeRuneInString(word)
				head = word[:size]
			}
			lines = append(lines, head)
			word = word[len(head):]
		}
		if word == "" {
			continue
		}
		w := runewidth.StringWidth(word)
		if curWidth > 0 && curWidth+1+w > width {
			flush()
		}
		if curWidth > 0 {
			cur.WriteByte(' ')
			curWidth++
		}
		cur.WriteString(word)
		curWidth += w
	}
	if curWidth > 0 {
		flush()
	}
	return lines
}

// styleNumbers renders runs of digits with emphasis and everything else
// with base.
func styleNumbers(line string, base, emphasis lipgloss.Style) string {
	var out, run strings.Builder
	inDigits := false
	emit := func() {
		if run.Len() == 0 {
			return
		}
		style := base
		if inDigits {
			style = emphasis
		}
		out.WriteString(style.Render(run.String()))
		run.Reset()
	}
	for _, r := range line {
		if d := unicode.IsDigit(r); d != inDigits {
			emit()
			inDigits = d
		}
		run.WriteRune(r)
	}
	emit()
	return out.String()
}
