package report

import (
	"fmt"
	"os"
	"strings"

	"lazyresolve/internal/shared/util"
)

func markers(name string) (start, end string) {
	return "<!-- lazyresolve:" + name + ":start -->", "<!-- lazyresolve:" + name + ":end -->"
}

// InjectBlock rewrites the section named marker of the markdown file at filePath to hold
// block.
func InjectBlock(filePath, marker, block string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}
	next, err := ReplaceBetweenMarkers(string(content), marker, block)
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	return util.ReplaceFile(filePath, []byte(next))
}

// ReplaceBetweenMarkers swaps whatever sits between <!-- lazyresolve:marker:start --> and
// <!-- lazyresolve:marker:end --> for replacement. Each marker must appear exactly once, start
// first. The file's line ending is used around the replacement.
func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}
	start, end := markers(marker)

	head, rest, ok := strings.Cut(content, start)
	if !ok || strings.Contains(rest, start) {
		return "", fmt.Errorf("marker %q: start must appear exactly once", marker)
	}
	_, tail, ok := strings.Cut(rest, end)
	if !ok || strings.Contains(head, end) || strings.Contains(tail, end) {
		return "", fmt.Errorf("marker %q: end must appear exactly once after start", marker)
	}

	eol := "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}
	var b strings.Builder
	b.Grow(len(content) + len(replacement))
	b.WriteString(head)
	b.WriteString(start)
	b.WriteString(eol)
	b.WriteString(strings.TrimRight(replacement, "\r\n"))
	b.WriteString(eol)
	b.WriteString(end)
	b.WriteString(tail)
	return b.String(), nil
}

// FencedBlock wraps text in a plain code fence.
func FencedBlock(text string) string {
	return "```text\n" + strings.TrimRight(text, "\n") + "\n```"
}
