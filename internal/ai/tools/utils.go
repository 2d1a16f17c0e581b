package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TruncateString shortens a string to the specified maximum length, adding ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return "..."[:maxLen]
	}

	return string([]rune(s)[:maxLen-3]) + "..."
}

var multipleNewlines = regexp.MustCompile(`\n{3,}`)

// CleanString normalizes whitespace and line endings in a string
func CleanString(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = multipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// decodeArgs unmarshals the registry-normalized arguments of a tool call
func decodeArgs(toolName, args string, out any) error {
	if err := json.Unmarshal([]byte(args), out); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", toolName, err)
	}
	return nil
}

// formatCoord prints a coordinate the way the model sent it, without float noise
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
