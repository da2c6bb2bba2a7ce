package store

import "strings"

// DedupeStrings drops empty and repeated values, keeping first-seen order.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MatchesKey applies a KeyMatch comparison between a node key and a text.
// Empty keys never match.
func MatchesKey(key, text string, mode KeyMatch) bool {
	if key == "" || text == "" {
		return false
	}
	switch mode {
	case KeyContainedIn:
		return strings.Contains(text, key)
	case KeyOverlaps:
		return strings.Contains(text, key) || strings.Contains(key, text)
	default:
		return false
	}
}

// MergeProps returns a copy of base with every entry of overlay applied.
func MergeProps(base map[string]string, overlay ...map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overlay {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}
