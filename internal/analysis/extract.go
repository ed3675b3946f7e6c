package analysis

import (
	"regexp"
	"strconv"
)

// elementNumberRe matches the element-code prefix, e.g. "as-7-/su-(10 Sc 03)".
var elementNumberRe = regexp.MustCompile(`^[a-z]+-(\d+)[/-]`)

// ExtractElementNumber returns the first number after the element-code prefix.
// Anything after the second delimiter is ignored.
func ExtractElementNumber(raw string) (int, bool) {
	m := elementNumberRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
