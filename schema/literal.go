package schema

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/wirecodec/errors"
)

const intPrefixHint = "integers are not supported; if you want to use a single byte constant then append either 'u8' or 'i8' to it"

// ParsePrefix converts a constant_prefix literal into its bytes. Accepted
// forms: "text", b"bytes", b'x', 'c', true, false, Nu8, Ni8 and -Ni8.
func ParsePrefix(lit, pos string) ([]byte, error) {
	lit = strings.TrimSpace(lit)
	fail := func(msg string) ([]byte, error) {
		return nil, errors.InvalidLiteral(pos, msg)
	}
	if lit == "" {
		return fail("unsupported expression; only basic literals are supported")
	}

	switch lit {
	case "true":
		return []byte{1}, nil
	case "false":
		return []byte{0}, nil
	}

	switch {
	case lit[0] == '"' || lit[0] == '`':
		s, err := strconv.Unquote(lit)
		if err != nil {
			return fail("malformed string literal")
		}
		return []byte(s), nil
	case strings.HasPrefix(lit, `b"`):
		s, err := strconv.Unquote(lit[1:])
		if err != nil {
			return fail("malformed byte string literal")
		}
		return []byte(s), nil
	case strings.HasPrefix(lit, "b'"):
		v, err := unquoteChar(lit[1:])
		if err != nil || v > 0xff {
			return fail("malformed byte literal")
		}
		return []byte{byte(v)}, nil
	case lit[0] == '\'':
		v, err := unquoteChar(lit)
		if err != nil {
			return fail("malformed char literal")
		}
		return utf8.AppendRune(nil, v), nil
	}

	return parseIntPrefix(lit, pos)
}

func unquoteChar(lit string) (rune, error) {
	if len(lit) < 3 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return 0, strconv.ErrSyntax
	}
	v, _, tail, err := strconv.UnquoteChar(lit[1:len(lit)-1], '\'')
	if err != nil {
		return 0, err
	}
	if tail != "" {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func parseIntPrefix(lit, pos string) ([]byte, error) {
	neg := strings.HasPrefix(lit, "-")
	body := strings.TrimPrefix(lit, "-")
	if body == "" || !isNumberStart(body[0]) {
		return nil, errors.InvalidLiteral(pos, "unsupported expression; only basic literals are supported")
	}

	digits, suffix := splitSuffix(body)
	switch suffix {
	case "u8":
		if neg {
			return nil, errors.InvalidLiteral(pos, "unsupported expression; only basic literals are supported")
		}
		v, err := strconv.ParseUint(digits, 0, 8)
		if err != nil {
			return nil, errors.InvalidLiteral(pos, "value out of range for u8")
		}
		return []byte{byte(v)}, nil
	case "i8":
		if neg {
			digits = "-" + digits
		}
		v, err := strconv.ParseInt(digits, 0, 8)
		if err != nil {
			return nil, errors.InvalidLiteral(pos, "value out of range for i8")
		}
		return []byte{byte(int8(v))}, nil
	case "f32", "f64":
		return nil, errors.InvalidLiteral(pos, "floats are not supported")
	case "":
		if _, err := strconv.ParseInt(digits, 0, 64); err == nil {
			return nil, errors.InvalidLiteral(pos, intPrefixHint)
		}
		if _, err := strconv.ParseUint(digits, 0, 64); err == nil {
			return nil, errors.InvalidLiteral(pos, intPrefixHint)
		}
		if _, err := strconv.ParseFloat(digits, 64); err == nil {
			return nil, errors.InvalidLiteral(pos, "floats are not supported")
		}
	default:
		if _, err := strconv.ParseUint(digits, 0, 64); err == nil {
			return nil, errors.InvalidLiteral(pos, intPrefixHint)
		}
	}
	return nil, errors.InvalidLiteral(pos, "unsupported expression; only basic literals are supported")
}

func isNumberStart(c byte) bool {
	return c >= '0' && c <= '9' || c == '.'
}

// splitSuffix separates a Rust-style width suffix ("u8", "i8", "u16",
// "f32", ...) from the digits of a numeric literal.
func splitSuffix(s string) (string, string) {
	for _, prefix := range []string{"u", "i", "f"} {
		i := strings.LastIndex(s, prefix)
		if i <= 0 {
			continue
		}
		rest := s[i+1:]
		if rest == "" || strings.Trim(rest, "0123456789") != "" {
			continue
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			if prefix == "f" {
				continue
			}
		}
		return s[:i], s[i:]
	}
	return s, ""
}
