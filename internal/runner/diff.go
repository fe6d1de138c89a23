package runner

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	diffHeaderStyle  = lipgloss.NewStyle().Bold(true)
	diffAddedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	diffRemovedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// renderDiff renders a simple line diff between the original and rewritten
// source. The engine only inserts text, so every change is either a line
// that gained an annotation or a brand-new import line; a two-pointer walk
// with bounded lookahead is enough.
func renderDiff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}
	oldLines := strings.Split(string(before), "\n")
	newLines := strings.Split(string(after), "\n")

	var sb strings.Builder
	sb.WriteString(diffHeaderStyle.Render("--- "+path) + "\n")
	sb.WriteString(diffHeaderStyle.Render("+++ "+path+" (annotated)") + "\n")

	const lookahead = 8
	i, j := 0, 0
	for i < len(oldLines) || j < len(newLines) {
		switch {
		case i < len(oldLines) && j < len(newLines) && oldLines[i] == newLines[j]:
			i++
			j++
		case j < len(newLines) && isInsertedLine(oldLines, i, newLines, j, lookahead):
			sb.WriteString(diffAddedStyle.Render("+ "+newLines[j]) + "\n")
			j++
		case i < len(oldLines) && j < len(newLines):
			sb.WriteString(diffRemovedStyle.Render("- "+oldLines[i]) + "\n")
			sb.WriteString(diffAddedStyle.Render("+ "+newLines[j]) + "\n")
			i++
			j++
		case j < len(newLines):
			sb.WriteString(diffAddedStyle.Render("+ "+newLines[j]) + "\n")
			j++
		default:
			sb.WriteString(diffRemovedStyle.Render("- "+oldLines[i]) + "\n")
			i++
		}
	}
	return sb.String()
}

// isInsertedLine reports whether newLines[j] is newly inserted text (an
// import line): the engine never deletes, so the pending original line
// must reappear shortly after it in the new text.
func isInsertedLine(oldLines []string, i int, newLines []string, j, lookahead int) bool {
	if i >= len(oldLines) {
		return true
	}
	end := j + lookahead
	if end > len(newLines) {
		end = len(newLines)
	}
	for k := j + 1; k < end; k++ {
		if newLines[k] == oldLines[i] {
			return true
		}
	}
	return false
}
