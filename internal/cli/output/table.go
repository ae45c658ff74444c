package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Tabular is implemented by results that know their table layout.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// TableFormatter formats data as an aligned text table.
type TableFormatter struct{}

// Format writes t as a table. Values that are not Tabular are printed
// with %v.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	t, ok := data.(Tabular)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if h := t.Headers(); len(h) > 0 {
		fmt.Fprintln(tw, strings.Join(h, "\t"))
	}
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// KV is a two-column key/value table.
type KV [][2]string

func (kv KV) Headers() []string { return nil }

func (kv KV) Rows() [][]string {
	rows := make([][]string, len(kv))
	for i, p := range kv {
		rows[i] = []string{p[0] + ":", p[1]}
	}
	return rows
}
