// Package strutil holds small string helpers.
package strutil

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxRangeLen bounds how many numbers ExpandRange returns.
const MaxRangeLen = 1024

// ExpandRange expands a list such as "0-3,7,9-10" into 0 1 2 3 7 9 10.
// Numbers are returned in the order written; duplicates are kept. Negative
// numbers and lists longer than MaxRangeLen are rejected.
func ExpandRange(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		startStr, endStr, isSpan := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(startStr))
		if err != nil {
			return nil, fmt.Errorf("strutil: invalid range %q: %w", part, err)
		}
		if start < 0 {
			return nil, fmt.Errorf("strutil: invalid range %q: negative number", part)
		}
		end := start
		if isSpan {
			end, err = strconv.Atoi(strings.TrimSpace(endStr))
			if err != nil {
				return nil, fmt.Errorf("strutil: invalid range %q: %w", part, err)
			}
			if end < start {
				return nil, fmt.Errorf("strutil: invalid range %q: end before start", part)
			}
		}
		if end-start >= MaxRangeLen-len(out) {
			return nil, fmt.Errorf("strutil: invalid range %q: more than %d numbers", s, MaxRangeLen)
		}
		for n := 0; n <= end-start; n++ {
			out = append(out, start+n)
		}
	}
	return out, nil
}
