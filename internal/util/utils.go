package util

import (
	"bytes"
	"fmt"
	"strings"
)

// GetContextLines formats the two lines before errorLine and the error line
// itself, underlining the error line's content.
func GetContextLines(src string, errorLine int) string {
	var result bytes.Buffer

	lines := strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	if errorLine < 1 || errorLine > len(lines) {
		return ""
	}

	startLine := errorLine - 2
	if startLine < 1 {
		startLine = 1
	}

	for i := startLine; i <= errorLine; i++ {
		lineContent := lines[i-1]

		if i == errorLine {
			margin := fmt.Sprintf("  >  %3d | ", i)
			result.WriteString(fmt.Sprintf("%s%s\n", margin, lineContent))

			trimmed := strings.TrimLeft(lineContent, " \t")
			indent := lineContent[:len(lineContent)-len(trimmed)]
			result.WriteString(replaceVisibleWithSpaces(margin + indent))
			result.WriteString(strings.Repeat("^", max(len(strings.TrimRight(trimmed, " \t")), 1)))
		} else {
			result.WriteString(fmt.Sprintf("     %3d | %s\n", i, lineContent))
		}
	}

	return result.String()
}

// replaceVisibleWithSpaces replaces all non-whitespace characters with spaces
// while preserving tabs for correct alignment.
func replaceVisibleWithSpaces(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
