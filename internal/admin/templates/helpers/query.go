package helpers

import "strings"

// BuildURL replaces the query string of path with rawQuery. An empty query drops the "?".
func BuildURL(path, rawQuery string) string {
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	rawQuery = strings.TrimPrefix(strings.TrimSpace(rawQuery), "?")
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
