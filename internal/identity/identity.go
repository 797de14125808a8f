// Package identity derives a structured person name from unstructured input
// such as an Instagram display name or username. Display names carry the
// most information but are frequently decorative (emoji, stylized glyphs),
// so parsing degrades step by step to something usable instead of failing.
package identity

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Parsed is a structured name. FirstName is always non-empty; MiddleName
// and LastName are empty when the input did not yield them.
type Parsed struct {
	FirstName  string
	MiddleName string
	LastName   string
}

// Sentinel values returned when neither display name nor username yield a
// single usable token. Callers must treat this as "unknown identity".
const (
	FallbackFirstName = "Instagram"
	FallbackLastName  = "Contact"
)

// Compound-split scoring. The relative ranking (both halves known > one
// known > neither) is what matters; the numeric weights are tunable.
const (
	bothKnownBonus  = 200
	oneKnownBonus   = 80
	vowelBridgeBonus = 20
	lengthWeight    = 10
	symmetryWeight  = 5
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Parse derives a structured name, preferring the display name and falling
// back to the username. Pure and deterministic.
func Parse(displayName, username string) Parsed {
	if tokens := displayTokens(displayName); len(tokens) > 0 {
		return assemble(tokens)
	}
	return parseUsername(username)
}

func displayTokens(displayName string) []string {
	normalized := normalizeDisplayName(displayName)
	if normalized == "" {
		return nil
	}
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if token := titleCase(field); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// normalizeDisplayName reduces a decorated display name to plain ASCII
// letters, spaces, hyphens and apostrophes.
func normalizeDisplayName(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	mapped := strings.Map(func(r rune) rune {
		if ascii, ok := smallCaps[r]; ok {
			return ascii
		}
		return r
	}, raw)

	mapped = norm.NFKC.String(mapped)
	mapped = canonicalizePunct(mapped)

	if stripped, _, err := transform.String(stripMarks, mapped); err == nil {
		mapped = stripped
	}
	mapped = unidecode.Unidecode(mapped)

	var b strings.Builder
	b.Grow(len(mapped))
	for _, r := range mapped {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r == '-' || r == '\'':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '/' || r == '_' || r == '+' || r == '|' || r == '\\':
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// canonicalizePunct folds dash and apostrophe variants to ASCII.
func canonicalizePunct(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '‐', '‑', '‒', '–', '—', '―', '−':
			return '-'
		case '‘', '’', 'ʼ', '`', '´':
			return '\''
		}
		return r
	}, raw)
}

// titleCase lowercases a token and capitalizes its first letter plus every
// letter following an internal hyphen or apostrophe ("o'brien" → "O'Brien").
// Leading and trailing separators are trimmed away.
func titleCase(token string) string {
	token = strings.Trim(strings.ToLower(token), "-'")
	if token == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(token))
	upper := true
	for _, r := range token {
		if r == '-' || r == '\'' {
			b.WriteRune(r)
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// assemble maps an ordered token list onto first/middle/last.
func assemble(tokens []string) Parsed {
	switch len(tokens) {
	case 1:
		return Parsed{FirstName: tokens[0]}
	case 2:
		return Parsed{FirstName: tokens[0], LastName: tokens[1]}
	default:
		return Parsed{
			FirstName:  tokens[0],
			MiddleName: strings.Join(tokens[1:len(tokens)-1], " "),
			LastName:   tokens[len(tokens)-1],
		}
	}
}

func parseUsername(username string) Parsed {
	cleaned := strings.Trim(username, "_")
	cleaned = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, cleaned)

	parts := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := titleCase(part); token != "" {
			tokens = append(tokens, token)
		}
	}

	switch len(tokens) {
	case 0:
		return Parsed{FirstName: FallbackFirstName, LastName: FallbackLastName}
	case 1:
		if first, last, ok := splitCompound(strings.ToLower(tokens[0])); ok {
			return Parsed{FirstName: titleCase(first), LastName: titleCase(last)}
		}
		return Parsed{FirstName: tokens[0]}
	default:
		return assemble(tokens)
	}
}

// splitCompound tries to break a single-token handle like "johndoe" into two
// name halves using the common-name dictionary. Split points where both
// halves are known and the boundary sits on a vowel are taken immediately;
// otherwise every split is scored and the best one wins if at least one
// half is a known name. Ties keep the earliest split.
func splitCompound(token string) (string, string, bool) {
	if isKnownName(token) || len(token) < 4 {
		return "", "", false
	}

	for i := 2; i <= len(token)-2; i++ {
		left, right := token[:i], token[i:]
		if isKnownName(left) && isKnownName(right) && (isVowel(token[i-1]) || isVowel(token[i])) {
			return left, right, true
		}
	}

	bestScore := 0
	bestAt := -1
	for i := 2; i <= len(token)-2; i++ {
		left, right := token[:i], token[i:]
		leftKnown, rightKnown := isKnownName(left), isKnownName(right)
		if !leftKnown && !rightKnown {
			continue
		}
		score := lengthWeight * len(token)
		if leftKnown && rightKnown {
			score += bothKnownBonus
		} else {
			score += oneKnownBonus
		}
		if isVowel(token[i-1]) || isVowel(token[i]) {
			score += vowelBridgeBonus
		}
		diff := len(left) - len(right)
		if diff < 0 {
			diff = -diff
		}
		score -= symmetryWeight * diff
		if score > bestScore {
			bestScore = score
			bestAt = i
		}
	}
	if bestAt < 0 {
		return "", "", false
	}
	return token[:bestAt], token[bestAt:], true
}
