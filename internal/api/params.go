package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/softguidetech/karage/internal/domain/catalog"
)

// parseActiveOnly normalizes the string-or-boolean active_only query
// parameter into a strict boolean before any domain logic runs. An absent
// parameter defaults to true; the forms "false", "0", "no", and "" are false
// (case-insensitive); everything else is true.
func parseActiveOnly(q url.Values) bool {
	if !q.Has("active_only") {
		return true
	}
	switch strings.ToLower(q.Get("active_only")) {
	case "false", "0", "no", "":
		return false
	default:
		return true
	}
}

// parseListParams extracts limit/offset (and active_only) from the query.
// Absent or unparseable values fall back to "no limit" / zero offset.
func parseListParams(q url.Values) catalog.ListParams {
	p := catalog.ListParams{ActiveOnly: parseActiveOnly(q)}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}
