package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRows splits pipe-separated query output into rows of exactly cols
// fields. Extra separators fold into the last column, so free-text columns
// like error messages survive as long as they come last. A short row is a
// parse failure.
func ParseRows(raw string, cols int) ([][]string, error) {
	if cols <= 0 {
		return nil, &ParseFailedError{Raw: raw, Reason: "column count must be positive"}
	}

	var rows [][]string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, "|", cols)
		if len(fields) < cols {
			return nil, &ParseFailedError{
				Raw:    raw,
				Reason: fmt.Sprintf("row has %d columns, expected %d: %q", len(fields), cols, line),
			}
		}
		rows = append(rows, fields)
	}

	return rows, nil
}

// ParseInt parses one numeric field. Empty fields come from SQL NULLs and
// parse as zero.
func ParseInt(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}

	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		// SUM() and size expressions may come back as floats.
		f, ferr := strconv.ParseFloat(field, 64)
		if ferr != nil {
			return 0, &ParseFailedError{Raw: field, Reason: fmt.Sprintf("not a number: %q", field)}
		}
		return int64(f), nil
	}
	return v, nil
}

// ParseBool parses a sqlite boolean column (0/1).
func ParseBool(field string) bool {
	return strings.TrimSpace(field) == "1"
}
