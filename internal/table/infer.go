package table

// infer.go decides a JSON type per column the way dataframe loaders do:
// a column is numeric only if every non-missing cell is numeric, otherwise
// the whole column stays text.

import (
	"regexp"
	"strconv"
	"strings"
)

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
)

var (
	intRegex     = regexp.MustCompile(`^[+-]?\d+$`)
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// missing holds the cell spellings read as a missing value (JSON null).
var missing = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

func isMissing(cell string) bool {
	return missing[strings.TrimSpace(cell)]
}

func parseBool(cell string) (bool, bool) {
	switch strings.TrimSpace(cell) {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// inferKind picks the narrowest kind that fits every non-missing cell of
// column col. A column with no values at all is a string column, so its
// cells all become null.
func inferKind(rows [][]string, col int) kind {
	isInt, isFloat, isBool := true, true, true
	seen := false

	for _, row := range rows {
		if col >= len(row) || isMissing(row[col]) {
			continue
		}
		seen = true
		cell := strings.TrimSpace(row[col])

		if isInt {
			if !intRegex.MatchString(cell) {
				isInt = false
			} else if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat && !numericRegex.MatchString(cell) {
			isFloat = false
		}
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return kindString
		}
	}

	switch {
	case !seen:
		return kindString
	case isInt:
		return kindInt
	case isFloat:
		return kindFloat
	case isBool:
		return kindBool
	default:
		return kindString
	}
}

// convert turns one cell into its typed value. Missing cells are nil.
func convert(cell string, k kind) any {
	if isMissing(cell) {
		return nil
	}

	trimmed := strings.TrimSpace(cell)
	switch k {
	case kindInt:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case kindFloat:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	case kindBool:
		if v, ok := parseBool(trimmed); ok {
			return v
		}
	}
	return cell
}
