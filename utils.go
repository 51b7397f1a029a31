package curatorgate

import (
	"strings"
)

const MaxCodeLength = 64

// NormalizeCode trims and uppercases an invite code. It reports false if the
// result is empty, too long or contains characters outside [A-Z0-9-_].
func NormalizeCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" || len(code) > MaxCodeLength {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if !isCodeChar(code[i]) {
			return "", false
		}
	}
	return code, true
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func isCodeChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}
