package approval

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// pathArgNames are the argument keys treated as file paths for glob
// matching. Mirrors the tool surface: file tools take "path", search tools
// take "directory".
var pathArgNames = []string{"path", "file_path", "filepath", "directory", "dir"}

// MatchesPattern reports whether a tool call matches one allow/deny pattern.
//
// Three pattern forms are supported, tried in order:
//   - /regex/ (optional trailing i flag) matched against the tool name and
//     every string argument value
//   - glob, matched against path-like argument values (full path and
//     basename)
//   - bare substring, matched case-insensitively against the tool name and
//     every string argument value
func MatchesPattern(toolName string, args map[string]any, pattern string) bool {
	if pattern == "" {
		return false
	}

	if re, ok := compileRegexPattern(pattern); ok {
		if re.MatchString(toolName) {
			return true
		}
		for _, v := range args {
			if s, isStr := v.(string); isStr && re.MatchString(s) {
				return true
			}
		}
		// A regex pattern that didn't match doesn't fall through to the
		// weaker forms; its slashes would make glob/substring nonsense.
		return false
	}

	for _, name := range pathArgNames {
		v, ok := args[name]
		if !ok {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			continue
		}
		if matched, err := path.Match(pattern, s); err == nil && matched {
			return true
		}
		if matched, err := path.Match(pattern, filepath.Base(s)); err == nil && matched {
			return true
		}
	}

	lower := strings.ToLower(pattern)
	if strings.Contains(strings.ToLower(toolName), lower) {
		return true
	}
	for _, v := range args {
		if s, isStr := v.(string); isStr && strings.Contains(strings.ToLower(s), lower) {
			return true
		}
	}

	return false
}

// compileRegexPattern recognizes the /pattern/ and /pattern/i forms.
func compileRegexPattern(pattern string) (*regexp.Regexp, bool) {
	if !strings.HasPrefix(pattern, "/") || len(pattern) < 2 {
		return nil, false
	}

	body := pattern[1:]
	flags := ""
	if idx := strings.LastIndex(body, "/"); idx >= 0 {
		flags = body[idx+1:]
		body = body[:idx]
	} else {
		return nil, false
	}
	if body == "" {
		return nil, false
	}
	for _, f := range flags {
		if f != 'i' {
			return nil, false
		}
	}

	if flags == "i" {
		body = "(?i)" + body
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, false
	}
	return re, true
}
