package model

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Subject identifies the professional being audited.
type Subject struct {
	Name     string `json:"name" yaml:"name"`
	Locality string `json:"locality" yaml:"locality"`
	Category string `json:"category" yaml:"category"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Validate checks the minimal identifying fields.
func (s Subject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return eris.New("subject: name is required")
	}
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil || u.Host == "" {
			return eris.Errorf("subject: invalid url %q", s.URL)
		}
	}
	return nil
}

// MarketQuery returns the free-text query used for the local market search.
func (s Subject) MarketQuery() string {
	category := strings.TrimSpace(s.Category)
	locality := strings.TrimSpace(s.Locality)
	switch {
	case category == "":
		return locality
	case locality == "":
		return category
	default:
		return fmt.Sprintf("%s em %s", category, locality)
	}
}

// Slug returns an ASCII, accent-folded key for the subject, suitable for
// log fields and run filters ("Dra. Conceição" -> "dra-conceicao").
func (s Subject) Slug() string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s.Name)
	if err != nil {
		folded = s.Name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
