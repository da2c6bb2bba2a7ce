package util

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// FallbackCaseIDPrefix marks case ids that were synthesized because the
// source report carried none. Such cases can never be matched by a later
// re-upload of the same report.
const FallbackCaseIDPrefix = "UNFILED_"

const (
	fallbackAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	fallbackLength   = 10
)

// NewFallbackCaseID returns a unique case id for a report without one.
func NewFallbackCaseID() (string, error) {
	suffix, err := gonanoid.Generate(fallbackAlphabet, fallbackLength)
	if err != nil {
		return "", err
	}
	return FallbackCaseIDPrefix + suffix, nil
}

// IsFallbackCaseID reports whether id was produced by NewFallbackCaseID.
func IsFallbackCaseID(id string) bool {
	suffix, ok := strings.CutPrefix(id, FallbackCaseIDPrefix)
	if !ok || len(suffix) != fallbackLength {
		return false
	}
	for _, r := range suffix {
		if !strings.ContainsRune(fallbackAlphabet, r) {
			return false
		}
	}
	return true
}
