// Package dataset reads tabular movie metadata and rating exports, drops
// malformed rows and hands typed records to the ingestion pipeline.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Stats counts what happened to the rows of one input file.
type Stats struct {
	Rows     int
	Accepted int
	Dropped  int
	Reasons  map[string]int
}

func (s *Stats) drop(reason string) {
	s.Dropped++
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	s.Reasons[reason]++
}

// columns maps canonical column names to their index in the header row.
type columns map[string]int

// newColumns resolves each canonical name against its accepted aliases.
// Missing required columns are reported together.
func newColumns(header []string, required map[string][]string, optional map[string][]string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	resolve := func(aliases []string) (int, bool) {
		for _, a := range aliases {
			if i, ok := index[strings.ToLower(a)]; ok {
				return i, true
			}
		}
		return -1, false
	}

	cols := make(columns)
	var missing []string
	for name, aliases := range required {
		i, ok := resolve(aliases)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	for name, aliases := range optional {
		if i, ok := resolve(aliases); ok {
			cols[name] = i
		}
	}
	return cols, nil
}

// get returns the trimmed cell for a column, or "" when the column is absent
// or the row is short.
func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// eachRow reads a header followed by data rows and calls fn for every row.
// Rows the CSV reader cannot decode are skipped and reported to onBad.
func eachRow(r io.Reader, onHeader func([]string) error, fn func(line int, row []string), onBad func(line int, err error)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty input: no header row")
		}
		return fmt.Errorf("read header: %w", err)
	}
	if err := onHeader(header); err != nil {
		return err
	}

	line := 1
	for {
		row, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				onBad(line, err)
				continue
			}
			return fmt.Errorf("read row %d: %w", line, err)
		}
		fn(line, row)
	}
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func logStats(kind, path string, s Stats) {
	evt := log.Info().
		Str("kind", kind).
		Str("path", path).
		Int("rows", s.Rows).
		Int("accepted", s.Accepted).
		Int("dropped", s.Dropped)
	for reason, n := range s.Reasons {
		evt = evt.Int("dropped_"+reason, n)
	}
	evt.Msg("Normalized dataset")
}
