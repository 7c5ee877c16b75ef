package etl

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingDigits = regexp.MustCompile(`^[0-9]+`)

// sanitize trims whitespace and replaces invalid UTF-8, which shows up
// in CMS exports saved with Windows-1252 encoding.
func sanitize(s string) string {
	return strings.ToValidUTF8(strings.TrimSpace(s), "�")
}

// parseMoney accepts plain numbers as well as formatted amounts like
// "$1,234.56".
func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseDRGID extracts the numeric DRG id from a definition such as
// "470 - MAJOR HIP AND KNEE JOINT REPLACEMENT". Definitions without a
// leading number have no stable id and are rejected.
func parseDRGID(definition string) (int64, bool) {
	match := leadingDigits.FindString(strings.TrimSpace(definition))
	if match == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// normalizeZip collapses float-formatted ZIP codes ("10001.0") to their
// integer string form, matching how the coordinate table is keyed.
func normalizeZip(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}
