package profile

import (
	"regexp"
	"strings"
)

var leakPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*\.[A-Za-z0-9_]+$`)

// ParseLeak splits "<category>.<leak>". Category names are lower-cased;
// leak names keep their case and may start with a digit ("3betDefense").
func ParseLeak(id string) (cat, leak string, err error) {
	id = strings.TrimSpace(id)
	if !leakPattern.MatchString(id) {
		return "", "", ErrMalformedLeak
	}
	cat, leak, _ = strings.Cut(id, ".")
	return strings.ToLower(cat), leak, nil
}
