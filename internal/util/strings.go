package util

// Truncate caps s at n bytes for diagnostic output.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
