package report

import (
	"fmt"
	"strings"

	"lazyresolve/internal/core/app"
	"lazyresolve/internal/data/symbols"
)

// tsvField keeps tabs and newlines in rendered values from breaking rows.
func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}

func UnresolvedImportsTSV(rows []app.UnresolvedImport) string {
	var buf strings.Builder

	buf.WriteString("Type\tFile\tLine\tImport\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("unresolved_import\t%s\t%d\t%s\n",
			tsvField(row.File),
			row.Line,
			tsvField(row.Import),
		))
	}
	return buf.String()
}

func RecordsTSV(rows []symbols.Record) string {
	var buf strings.Builder

	buf.WriteString("FqName\tKind\tContainer\tFile\tLine\tSupertypes\tRendered\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			tsvField(row.FqName),
			row.Kind,
			tsvField(row.Container),
			tsvField(row.File),
			row.Line,
			tsvField(strings.Join(row.Supertypes, ",")),
			tsvField(row.Rendered),
		))
	}
	return buf.String()
}

func RunsTSV(runs []symbols.Run) string {
	var buf strings.Builder

	buf.WriteString("Run\tProject\tCreatedAt\tRecords\n")
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\n",
			run.ID,
			tsvField(run.Project),
			run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			run.Records,
		))
	}
	return buf.String()
}
