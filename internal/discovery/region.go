package discovery

import "strings"

// Region groups markets that share a TLD preference order.
type Region string

const (
	RegionDACH    Region = "dach"
	RegionUK      Region = "uk"
	RegionBenelux Region = "benelux"
	RegionNordics Region = "nordics"
)

// defaultRegionTLDs maps each region to its TLD probe order.
var defaultRegionTLDs = map[Region][]string{
	RegionDACH:    {".de", ".com", ".at", ".ch", ".io"},
	RegionUK:      {".co.uk", ".com", ".uk", ".io"},
	RegionBenelux: {".nl", ".be", ".com", ".eu", ".io"},
	RegionNordics: {".se", ".dk", ".no", ".fi", ".com", ".io"},
}

// regionMarkers are scanned against a deal title hint. First match
// wins; country names count alongside the short region codes.
var regionMarkers = []struct {
	marker string
	region Region
}{
	{"uk", RegionUK},
	{"united kingdom", RegionUK},
	{"britain", RegionUK},
	{"benelux", RegionBenelux},
	{"belgium", RegionBenelux},
	{"netherlands", RegionBenelux},
	{"luxembourg", RegionBenelux},
	{"sv", RegionNordics},
	{"sweden", RegionNordics},
	{"swedish", RegionNordics},
	{"dach", RegionDACH},
	{"germany", RegionDACH},
	{"austria", RegionDACH},
	{"switzerland", RegionDACH},
}

// DetectRegion infers the market region from a deal title hint, such as
// "UK | Acme Ltd". Unknown or empty hints default to DACH.
func DetectRegion(titleHint string) Region {
	lowered := strings.ToLower(titleHint)
	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return r == '|' || r == '-' || r == ' ' || r == ':'
	})
	for _, m := range regionMarkers {
		// Multi-word markers cannot survive tokenization, so they
		// match as substrings instead.
		if strings.Contains(m.marker, " ") {
			if strings.Contains(lowered, m.marker) {
				return m.region
			}
			continue
		}
		for _, token := range tokens {
			if token == m.marker {
				return m.region
			}
		}
	}
	return RegionDACH
}
