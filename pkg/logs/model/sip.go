package model

import (
	"strings"
	"unicode"
)

// SipMethods is the fixed-precedence keyword list used by the parser for
// first-payload-line method detection. First match wins; numeric-only response
// lines such as "SIP/2.0 100 Trying" are deliberately not detected.
var SipMethods = []string{
	"INVITE",
	"BYE",
	"CANCEL",
	"OPTIONS",
	"REGISTER",
	"ACK",
	" 200 OK",
}

// NormalizeSipMethod collapses 3-digit response methods to
// "<code> <CapitalizedFirstReasonWord>" so that variants with trailing reason
// text compare equal. Request methods pass through unchanged.
func NormalizeSipMethod(method string) string {
	method = strings.TrimSpace(method)
	if len(method) < 3 || !isDigits(method[:3]) {
		return method
	}
	code := method[:3]
	reason := strings.TrimSpace(method[3:])
	if reason == "" {
		return code
	}
	word := strings.Fields(reason)[0]
	runes := []rune(word)
	runes[0] = unicode.ToUpper(runes[0])
	return code + " " + string(runes)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// IsSipResponse reports whether a (normalized or raw) method token is a
// response rather than a request method.
func IsSipResponse(method string) bool {
	return len(method) >= 3 && isDigits(method[:3])
}
