package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// LoginKeyword is the fixed first field of every request.
const LoginKeyword = "login"

// Reply tokens written back to the peer.
const (
	ReplySuccess     = "SUCCESS"
	ReplyAuthFailed  = "ERROR: Authentication failed"
	ReplyInvalidRSSI = "ERROR: Invalid RSSI format"
)

const fieldSeparator = "|"

// Login is a parsed request.
type Login struct {
	Name string
	RSSI int
}

// ParseLogin parses a "login|<name>|<rssi>" request.
//
// Trailing whitespace is stripped before splitting. The RSSI field accepts
// surrounding whitespace, an optional sign, and single underscores between
// digits ("-1_0"); anything else is ErrInvalidRSSI.
// On error the returned Login carries the name when one was present, so
// rejected attempts can still be attributed.
func ParseLogin(line string) (Login, error) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	fields := strings.Split(line, fieldSeparator)

	var login Login
	if len(fields) >= 2 {
		login.Name = fields[1]
	}

	if len(fields) != 3 || fields[0] != LoginKeyword {
		return login, fmt.Errorf("%w: %d fields", ErrAuthenticationFailed, len(fields))
	}

	rssi, err := parseRSSI(fields[2])
	if err != nil {
		return login, fmt.Errorf("%w: %q", ErrInvalidRSSI, fields[2])
	}
	login.RSSI = rssi

	return login, nil
}

var errDigitSeparator = errors.New("misplaced digit separator")

// parseRSSI parses a decimal integer field.
func parseRSSI(field string) (int, error) {
	s := strings.TrimSpace(field)
	if strings.Contains(s, "_") {
		digits := strings.TrimLeft(s, "+-")
		if len(s)-len(digits) > 1 || strings.HasPrefix(digits, "_") ||
			strings.HasSuffix(digits, "_") || strings.Contains(digits, "__") {
			return 0, errDigitSeparator
		}
		s = strings.ReplaceAll(s, "_", "")
	}
	return strconv.Atoi(s)
}

// FormatLogin builds the request line for name and rssi.
func FormatLogin(name string, rssi int) string {
	return LoginKeyword + fieldSeparator + name + fieldSeparator + strconv.Itoa(rssi)
}

// ReplyFor maps a ParseLogin result to the token sent to the peer.
// Unknown errors are reported as an authentication failure.
func ReplyFor(err error) string {
	switch {
	case err == nil:
		return ReplySuccess
	case errors.Is(err, ErrInvalidRSSI):
		return ReplyInvalidRSSI
	default:
		return ReplyAuthFailed
	}
}
