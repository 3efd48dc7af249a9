package nl2sql

import (
	"regexp"
	"strings"
)

// GeneratedQuery is the outcome of extracting SQL from one model response.
type GeneratedQuery struct {
	RawModelText    string `json:"raw_model_text"`
	NormalizedText  string `json:"normalized_text"`
	Valid           bool   `json:"valid"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Extractor pulls an executable statement out of raw model output and decides
// whether it may run.
type Extractor interface {
	Extract(raw string) GeneratedQuery
}

var fencePattern = regexp.MustCompile("(?i)```(?:sql|mysql|mariadb)?")

// PrefixExtractor accepts only text whose leading token is SELECT. It strips
// code fences and any prose before the first SELECT token. It does not parse
// SQL.
type PrefixExtractor struct{}

var _ Extractor = PrefixExtractor{}

func (PrefixExtractor) Extract(raw string) GeneratedQuery {
	out := GeneratedQuery{RawModelText: raw}

	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	if hasPrefixFold(cleaned, InvalidQuerySentinel) {
		out.NormalizedText = cleaned
		out.RejectionReason = "model declined: the request is not a read-only query"
		return out
	}
	if idx := indexKeyword(cleaned, "SELECT"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[idx:])
	}
	out.NormalizedText = cleaned

	switch {
	case cleaned == "":
		out.RejectionReason = "model returned no query text"
	case indexKeyword(cleaned, "SELECT") != 0:
		out.RejectionReason = "query does not start with SELECT"
	default:
		out.Valid = true
	}
	return out
}

// indexKeyword returns the byte offset of the first case-insensitive
// occurrence not glued to ASCII identifier bytes of keyword in s, or -1.
func indexKeyword(s, keyword string) int {
	n := len(keyword)
	for i := 0; i+n <= len(s); i++ {
		if !equalFoldASCII(s[i:i+n], keyword) {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if end := i + n; end < len(s) && isWordByte(s[end]) {
			continue
		}
		return i
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && equalFoldASCII(s[:len(prefix)], prefix)
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// isWordByte reports ASCII identifier bytes. Anything else, including bytes
// of multi-byte runes, separates a keyword from its neighbours.
func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
