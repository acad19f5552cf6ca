package utils

// Strings reads a claim-style list. JSON arrays decode to []any, so non-string
// elements are skipped; a single string becomes a one-element list.
func Strings(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		return []string{list}, true
	}
	return nil, false
}
