package ingest

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IDPrefix namespaces building ids derived from the export.
const IDPrefix = "ap_"

// fallbackName is slugified when a building has neither name nor address.
const fallbackName = "Edificio"

var (
	listingSlugRe = regexp.MustCompile(`assetplan\.cl/arriendo/[^/]+/[^/]+/[^/]+/([^/?#]+)`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Identity is the derived id and slug of a building.
type Identity struct {
	ID   string
	Slug string
}

// DeriveIdentity takes the slug from a listing URL of the form
// assetplan.cl/arriendo/<region>/<comuna>/<building>/<slug> when possible,
// and otherwise slugifies name. The result depends only on its inputs.
func DeriveIdentity(link, name string) Identity {
	slug := ""
	if m := listingSlugRe.FindStringSubmatch(link); m != nil {
		slug = m[1]
	}
	if slug == "" {
		if strings.TrimSpace(name) == "" {
			name = fallbackName
		}
		slug = Slugify(name)
	}
	return Identity{ID: IDPrefix + slug, Slug: slug}
}

// Slugify lowercases s, strips diacritics, and collapses every run of other
// characters into a single hyphen.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}
	return strings.Trim(nonAlnumRe.ReplaceAllString(stripped, "-"), "-")
}
