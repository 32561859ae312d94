package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/loadboard/internal/domain/model"
)

// Canonical column names.
const (
	ColumnTimestamp = "Timestamp"
	ColumnProduct   = "Product"
	ColumnPlate     = "Plate"
	ColumnStatus    = "Status"
	ColumnEventID   = "Event ID"
)

// headerAliases maps sheet headers onto canonical columns. An alias only
// applies when the canonical column itself is absent.
var headerAliases = map[string]string{ //nolint:gochecknoglobals // fixed lookup table
	"Plate Number":  ColumnPlate,
	"Product Group": ColumnProduct,
	"Action":        ColumnStatus,
	"Time":          ColumnTimestamp,
}

var requiredColumns = []string{ColumnTimestamp, ColumnProduct, ColumnPlate, ColumnStatus} //nolint:gochecknoglobals // fixed column order

// DecodeCSV reads a headed CSV document into raw events. Missing required
// columns yield a *SchemaError. Rows shorter than the header are padded with
// empty fields; extra columns are ignored.
func DecodeCSV(r io.Reader) ([]model.RawEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Missing: append([]string(nil), requiredColumns...)}
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := columnIndex(header)
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []model.RawEvent
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		out = append(out, model.RawEvent{
			EventID:   strings.TrimSpace(field(rec, ColumnEventID)),
			Timestamp: field(rec, ColumnTimestamp),
			Product:   field(rec, ColumnProduct),
			Vehicle:   field(rec, ColumnPlate),
			Status:    field(rec, ColumnStatus),
		})
	}
	return out, nil
}

// columnIndex resolves canonical column positions, applying aliases only
// where the canonical name is absent.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for alias, canonical := range headerAliases {
		if _, ok := idx[canonical]; ok {
			continue
		}
		if i, ok := idx[alias]; ok {
			idx[canonical] = i
		}
	}
	return idx
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
