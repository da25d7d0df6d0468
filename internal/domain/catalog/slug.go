package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugAttempts bounds the numeric suffix search
const maxSlugAttempts = 10000

// ErrSlugSpaceExhausted is returned when no free slug candidate was found
var ErrSlugSpaceExhausted = errors.New("catalog: unable to find a free slug")

// SlugExistsFunc reports whether a slug is already taken in the target scope
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g", 'ў': "u",
}

// Slugify transliterates value into an ASCII URL slug.
func Slugify(value string) string {
	var translit strings.Builder
	for _, r := range strings.ToLower(value) {
		if latin, ok := cyrillicToLatin[r]; ok {
			translit.WriteString(latin)
			continue
		}
		translit.WriteRune(r)
	}

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, translit.String())
	if err != nil {
		plain = translit.String()
	}

	var out strings.Builder
	separate := false
	for _, r := range plain {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if separate && out.Len() > 0 {
				out.WriteByte('-')
			}
			separate = false
			out.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			separate = true
		}
	}
	return strings.Trim(out.String(), "-_")
}

// FormatSlugCandidate builds the n-th candidate for base within maxLen.
// The numeric suffix is never truncated; the base is.
func FormatSlugCandidate(base string, counter, maxLen int) string {
	if counter <= 1 {
		return strings.TrimRight(truncate(base, maxLen), "-")
	}
	suffix := "-" + strconv.Itoa(counter)
	trimmed := strings.TrimRight(truncate(base, maxLen-len(suffix)), "-")
	return trimmed + suffix
}

// GenerateUniqueSlug returns the first candidate derived from seed that exists
// reports as free. An empty slug falls back to a random token.
func GenerateUniqueSlug(ctx context.Context, seed string, maxLen int, exists SlugExistsFunc) (string, error) {
	base := Slugify(seed)
	if base == "" {
		base = uuid.NewString()
	}
	for counter := 1; counter <= maxSlugAttempts; counter++ {
		candidate := FormatSlugCandidate(base, counter, maxLen)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrSlugSpaceExhausted
}

// LooksLikeCode reports whether value looks auto-generated rather than derived
// from a real name: empty, a UUID, all digits, or equal (as a slug) to one of
// the known identifiers.
func LooksLikeCode(value string, knownIDs ...string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	if _, err := uuid.Parse(value); err == nil {
		return true
	}
	if isDigits(value) {
		return true
	}
	slug := Slugify(value)
	for _, id := range knownIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if Slugify(id) == slug {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
