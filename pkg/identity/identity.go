// Package identity turns raw phone numbers, names and vehicle plates into
// canonical merge keys. Every function is pure and idempotent: feeding a
// canonical value back in returns it unchanged.
package identity

import (
	"regexp"
	"strings"
	"unicode"
)

// NationalPrefix is the country calling code stripped from phone numbers.
const NationalPrefix = "91"

// PhoneDigits is the length of a canonical phone number.
const PhoneDigits = 10

// serviceNumbers are short codes that never identify a person.
var serviceNumbers = map[string]struct{}{
	"100": {},
	"101": {},
	"112": {},
	"121": {},
	"198": {},
	"199": {},
}

// nameSentinels are placeholder values extraction emits for missing names.
var nameSentinels = map[string]struct{}{
	"":        {},
	"none":    {},
	"unknown": {},
	"n/a":     {},
	"null":    {},
}

// plateShape matches a separator-free plate: 2 letters, 1-2 digits,
// 1-3 letters, 3-4 digits.
var plateShape = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{1,3}[0-9]{3,4}$`)

// Normalizer maps a raw value to its canonical form, reporting false when
// the value must be rejected.
type Normalizer func(raw string) (string, bool)

// NormalizePhone keeps digits only and strips the national prefix and
// trunk zeros while the number is longer than ten digits. Numbers shorter
// than ten digits and service numbers are rejected.
func NormalizePhone(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	for len(digits) > PhoneDigits {
		if strings.HasPrefix(digits, NationalPrefix) {
			digits = digits[len(NationalPrefix):]
		} else if digits[0] == '0' {
			digits = digits[1:]
		} else {
			break
		}
	}

	if _, ok := serviceNumbers[digits]; ok {
		return "", false
	}
	if len(digits) < PhoneDigits {
		return "", false
	}
	return digits, true
}

// NormalizeName trims and collapses whitespace. Sentinel placeholders such
// as "unknown" or "n/a" are rejected case-insensitively. Letter case is
// preserved because transaction matching is case-sensitive.
func NormalizeName(raw string) (string, bool) {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if _, ok := nameSentinels[strings.ToLower(cleaned)]; ok {
		return "", false
	}
	return cleaned, true
}

// NormalizePlate uppercases the plate and removes separators. The result
// must match the registration plate shape.
func NormalizePlate(raw string) (string, bool) {
	compact := CompactText(raw)
	if !plateShape.MatchString(compact) {
		return "", false
	}
	return compact, true
}

// CompactText uppercases s and drops everything but letters and digits.
// It is the comparison form for free OCR text against stored plates.
func CompactText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return unicode.ToUpper(r)
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, s)
}

// ToArray normalizes a scalar string or a sequence of strings, dropping
// rejected and duplicate values while keeping first-seen order. Values of
// any other type yield an empty result.
func ToArray(value any, normalize Normalizer) []string {
	var raws []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		raws = []string{v}
	case []string:
		raws = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raws = append(raws, s)
			}
		}
	default:
		return nil
	}

	out := make([]string, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		canonical, ok := normalize(raw)
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}
