package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatList formats a list of records as a table.
func (f *TableFormatter) FormatList(w io.Writer, list List, opts FormatOptions) error {
	if len(list.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		headers := make([]string, len(list.Columns))
		rules := make([]string, len(list.Columns))
		for i, col := range list.Columns {
			headers[i] = strings.ToUpper(col)
			rules[i] = strings.Repeat("-", len(col))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		fmt.Fprintln(tw, strings.Join(rules, "\t"))
	}

	for _, record := range list.Records {
		values := make([]string, len(list.Columns))
		for i, col := range list.Columns {
			values[i] = formatValue(record[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord formats a single record as label/value pairs.
func (f *TableFormatter) FormatRecord(w io.Writer, record Record, opts FormatOptions) error {
	if record.Values == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range record.Columns {
		// No truncation for detail view
		fmt.Fprintf(tw, "%s:\t%s\n", formatLabel(col), formatValue(record.Values[col], 0))
	}
	return tw.Flush()
}

// formatLabel turns snake_case into Title Case.
func formatLabel(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatValue(val any, maxWidth int) string {
	var str string
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		str = v
	case bool:
		str = "no"
		if v {
			str = "yes"
		}
	case []string:
		str = strings.Join(v, ", ")
	case fmt.Stringer:
		str = v.String()
	default:
		str = fmt.Sprint(v)
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}
