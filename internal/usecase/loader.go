package usecase

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"PriceCast/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	DateColumn  = "Date"
	CloseColumn = "Close"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadRawSeries reads a delimited table and keeps its Date and Close columns.
// Dates are left as text; only the header and the Close values are validated here.
func LoadRawSeries(r io.Reader) (models.RawSeries, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.RawSeries{}, fmt.Errorf("read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return models.RawSeries{}, fmt.Errorf("%w: empty file", models.ErrSchema)
	}

	delim := detectDelimiter(data)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return models.RawSeries{}, fmt.Errorf("%w: read header: %v", models.ErrSchema, err)
	}
	dateIdx, closeIdx := columnIndex(header, DateColumn), columnIndex(header, CloseColumn)

	var missing []string
	if dateIdx < 0 {
		missing = append(missing, DateColumn)
	}
	if closeIdx < 0 {
		missing = append(missing, CloseColumn)
	}
	if len(missing) > 0 {
		return models.RawSeries{}, fmt.Errorf("%w: missing required column(s): %s", models.ErrSchema, strings.Join(missing, ", "))
	}

	var out models.RawSeries
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.RawSeries{}, fmt.Errorf("%w: row %d: %v", models.ErrParse, row, err)
		}

		closeValue, err := parseClose(cell(rec, closeIdx), delim)
		if err != nil {
			return models.RawSeries{}, fmt.Errorf("%w: row %d: %v", models.ErrParse, row, err)
		}
		out.Rows = append(out.Rows, models.RawRow{
			Row:   row,
			Date:  cell(rec, dateIdx),
			Close: closeValue,
		})
	}

	if out.Len() == 0 {
		return models.RawSeries{}, fmt.Errorf("%w: no data rows", models.ErrSchema)
	}
	return out, nil
}

// detectDelimiter picks the most frequent of comma, semicolon and tab on the header line.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if c := bytes.Count(line, []byte{byte(d)}); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if normalizeHeader(h) == name {
			return i
		}
	}
	return -1
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.Trim(strings.TrimSpace(h), `"'`)
}

func cell(rec []string, idx int) string {
	if idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// parseClose returns NaN for blank or explicit missing markers.
func parseClose(s string, delim rune) (float64, error) {
	switch strings.ToLower(s) {
	case "", "null", "nan", "na", "n/a", "-":
		return math.NaN(), nil
	}
	if delim != ',' {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", CloseColumn, s)
	}
	f, _ := d.Float64()
	return f, nil
}
