// Package normalizers provides the comparison keys used by matching and duplicate detection
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("strip_accents", StripAccents)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("nname", NormalizeName)
	Register("ntitle", NormalizeTitle)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// ligatures do not decompose under NFD
var ligatures = strings.NewReplacer(
	"œ", "oe", "Œ", "OE",
	"æ", "ae", "Æ", "AE",
	"ß", "ss",
)

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// StripAccents decomposes s and drops every combining mark
func StripAccents(s string) string {
	// transformers carry state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		return s
	}
	return out
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is the comparison key for person names.
// - Lowercase
// - Strip diacritics
// - Keep only a-z, space and hyphen
// - Collapse whitespace
func NormalizeName(s string) string {
	return keep(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || r == '-'
	})
}

// NormalizeTitle is NormalizeName that also keeps digits, used for affair titles
// where years and article numbers carry meaning.
func NormalizeTitle(s string) string {
	return keep(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
	})
}

func keep(s string, allowed func(rune) bool) string {
	s = strings.ToLower(StripAccents(s))

	var result strings.Builder
	prevSpace := true
	for _, r := range s {
		switch {
		case allowed(r):
			result.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// NameTokens splits a normalized name into its space separated tokens
func NameTokens(s string) []string {
	return strings.Fields(NormalizeName(s))
}

// SwappedForms returns the alternative orderings of a name to absorb providers that
// list the family name first. "jean-luc de la tour" yields every rotation of its tokens
// except the original. Names of one token or more than four tokens have no swapped forms.
func SwappedForms(s string) []string {
	tokens := NameTokens(s)
	if len(tokens) < 2 || len(tokens) > 4 {
		return nil
	}

	original := strings.Join(tokens, " ")
	seen := map[string]bool{original: true}
	var forms []string
	for i := 1; i < len(tokens); i++ {
		rotated := append(append([]string{}, tokens[i:]...), tokens[:i]...)
		form := strings.Join(rotated, " ")
		if seen[form] {
			continue
		}
		seen[form] = true
		forms = append(forms, form)
	}
	return forms
}
