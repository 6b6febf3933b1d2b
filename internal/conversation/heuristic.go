package conversation

import "strings"

// LooksIncomplete reports whether s contains an arithmetic operator and at
// least one ASCII letter, which is read as an expression with unknowns.
func LooksIncomplete(s string) bool {
	if !strings.ContainsAny(s, "+-*/") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			return true
		}
	}
	return false
}
