package sqlinline

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMissingMarker is returned for statements without a leading --sql <uuid> line.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Split separates the audit marker from the executable statement.
func Split(query string) (marker string, body string, err error) {
	trimmed := strings.TrimSpace(query)
	lines := strings.Split(trimmed, "\n")
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(markerLine, "--sql "), strings.Join(lines[1:], "\n"), nil
}

// IsMarker reports whether line is a valid --sql <uuid> marker.
func IsMarker(line string) bool {
	return markerRegexp.MatchString(strings.TrimSpace(line))
}
