package util

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. Used for notification previews and log lines.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
