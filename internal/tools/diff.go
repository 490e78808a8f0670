package tools

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders a unified diff between two versions of a file with a
// trailing insertion/deletion summary. Returns "" when nothing changed.
func UnifiedDiff(filename, oldContent, newContent string, contextLines int) string {
	if contextLines <= 0 {
		contextLines = 3
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  contextLines,
	}

	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff generation failed: %v)", err)
	}
	if result == "" {
		return ""
	}

	adds, dels := 0, 0
	for _, line := range strings.Split(result, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			adds++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			dels++
		}
	}

	return fmt.Sprintf("%s\n%d insertion(s), %d deletion(s)", result, adds, dels)
}
