package report

import (
	"fmt"
	"strings"
	"time"

	"lazyresolve/internal/core/app"
	"lazyresolve/internal/engine/descriptors"
	"lazyresolve/internal/shared/util"
)

// FormatSummary renders a build summary for the terminal.
func FormatSummary(sum app.Summary, unresolved []app.UnresolvedImport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Resolution summary"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Session:      %s\n", sum.SessionID)
	if sum.RunID != "" {
		fmt.Fprintf(&b, "Run:          %s\n", sum.RunID)
	}
	if sum.GoModule != "" {
		fmt.Fprintf(&b, "Go module:    %s\n", sum.GoModule)
	}
	fmt.Fprintf(&b, "Files:        %d", sum.Files)
	if langs := util.SortedStringKeys(sum.FilesByLanguage); len(langs) > 0 {
		parts := make([]string, len(langs))
		for i, lang := range langs {
			parts[i] = fmt.Sprintf("%s=%d", lang, sum.FilesByLanguage[lang])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Built in:     %s (heap %d MB)\n", sum.BuildDuration.Round(time.Millisecond), sum.HeapAllocMB)

	b.WriteString("\n")
	for _, kind := range util.SortedStringKeys(sum.Descriptors) {
		fmt.Fprintf(&b, "  %-16s %d\n", plural(kind), sum.Descriptors[kind])
	}
	fmt.Fprintf(&b, "  %-16s %d\n", "declarations", sum.Trace.Declarations)
	if sum.Trace.ErrorTypes > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %-16s %d", "error types", sum.Trace.ErrorTypes)))
		b.WriteString("\n")
	}

	if len(sum.ParseErrors) > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Files that failed to parse (%d)", len(sum.ParseErrors))))
		b.WriteString("\n")
		for _, path := range sum.ParseErrors {
			fmt.Fprintf(&b, "- %s\n", path)
		}
	}

	b.WriteString("\n")
	if len(unresolved) == 0 {
		b.WriteString(classStyle.Render("All imports resolved"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(errorStyle.Render(fmt.Sprintf("Unresolved imports (%d)", len(unresolved))))
	b.WriteString("\n")
	for _, u := range unresolved {
		fmt.Fprintf(&b, "- %s:%d %s\n", u.File, u.Line, u.Import)
	}
	return b.String()
}

// FormatLookup lists the descriptors found for fq, one rendered descriptor per line.
func FormatLookup(fq string, found []descriptors.Descriptor) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", fq, len(found))))
	b.WriteString("\n")
	for _, d := range found {
		b.WriteString("  ")
		b.WriteString(styleFor(d).Render(descriptors.Render(d)))
		b.WriteString("\n")
	}
	return b.String()
}

// plural labels a descriptor kind in the summary table.
func plural(kind string) string {
	switch {
	case strings.HasSuffix(kind, "s"):
		return kind + "es"
	case strings.HasSuffix(kind, "y"):
		return strings.TrimSuffix(kind, "y") + "ies"
	}
	return kind + "s"
}
