package source

import (
	"strconv"
	"strings"

	"github.com/basinlabs/geoframe/internal/frame"
)

// inferColumn picks the narrowest kind that parses every non-empty value:
// int, then float, then bool, falling back to string. Empty strings become
// nulls.
func inferColumn(raw []string) (frame.Kind, []any) {
	allInt, allFloat, allBool := true, true, true
	empty := true

	for _, s := range raw {
		if s == "" {
			continue
		}
		empty = false
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allFloat = false
			}
		}
		if allBool && !isBool(s) {
			allBool = false
		}
		if !allInt && !allFloat && !allBool {
			break
		}
	}

	kind := frame.KindString
	switch {
	case empty:
		kind = frame.KindString
	case allInt:
		kind = frame.KindInt
	case allFloat:
		kind = frame.KindFloat
	case allBool:
		kind = frame.KindBool
	}

	values := make([]any, len(raw))
	for i, s := range raw {
		if s == "" {
			continue
		}
		switch kind {
		case frame.KindInt:
			v, _ := strconv.ParseInt(s, 10, 64)
			values[i] = v
		case frame.KindFloat:
			v, _ := strconv.ParseFloat(s, 64)
			values[i] = v
		case frame.KindBool:
			values[i] = parseBool(s)
		default:
			values[i] = s
		}
	}
	return kind, values
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}

// frameFromTable builds a frame from a header row and string records,
// inferring column kinds and optionally deriving point geometry from
// x/y columns.
func frameFromTable(name string, header []string, records [][]string, xcol, ycol string, srid int) (*frame.Frame, error) {
	f := frame.New(name)

	for col, colName := range header {
		raw := make([]string, len(records))
		for i, rec := range records {
			if col < len(rec) {
				raw[i] = rec[col]
			}
		}
		kind, values := inferColumn(raw)
		if err := f.AddColumn(colName, kind, values); err != nil {
			return nil, err
		}
	}

	if xcol != "" && ycol != "" {
		if err := f.PointsFromXY(xcol, ycol, srid); err != nil {
			return nil, err
		}
	}
	return f, nil
}
