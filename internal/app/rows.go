package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"karoo_lodge/internal/domain"
)

/********** struct <-> row **********/

// toRow flattens a tagged struct into a row keyed by its json names. Every
// field is emitted, so an update replaces the whole editable shape.
func toRow(v any) (domain.Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r domain.Row
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// decodeRow overlays a row onto dst. Null columns are skipped so dst keeps
// its value, lists included; that is how section rows inherit catalog
// defaults.
func decodeRow(r domain.Row, dst any) error {
	set := make(domain.Row, len(r))
	for k, v := range r {
		if v != nil {
			set[k] = v
		}
	}
	b, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// decodeRows maps rows to T, dropping rows that do not fit the shape.
func decodeRows[T any](rows []domain.Row) ([]T, []error) {
	out := make([]T, 0, len(rows))
	var errs []error
	for _, r := range rows {
		var v T
		if err := decodeRow(r, &v); err != nil {
			errs = append(errs, fmt.Errorf("row %s: %w", rowString(r, "id"), err))
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

/********** tiny helpers **********/

// rowString reads the first present column as text, whatever scalar type
// the backend handed back (vintage may be numeric in one store and text in
// another).
func rowString(r domain.Row, cols ...string) string {
	for _, c := range cols {
		switch v := r[c].(type) {
		case nil:
			continue
		case string:
			return v
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano)
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func rowTime(r domain.Row, col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	return nil
}

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ptrInt(i int) *int { return &i }
