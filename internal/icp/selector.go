// Package icp selects the best-fit contact from a list of enrichment
// search candidates, ranked by job title against the ideal customer
// profile.
package icp

import "strings"

// Person is one candidate returned by people search.
type Person struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Company     string   `json:"company"`
	CompanyName string   `json:"companyName"`
	JobTitle    string   `json:"jobTitle"`
	Seniorities []string `json:"seniorities"`
	LinkedInURL string   `json:"linkedInUrl"`
}

// Name returns the candidate's full name.
func (p Person) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// companyOf returns whichever company field the search populated.
func (p Person) companyOf() string {
	if p.Company != "" {
		return p.Company
	}
	return p.CompanyName
}

// titleGroups are checked in priority order; the first group with a
// matching candidate wins.
var titleGroups = [][]string{
	{"ciso", "information security"},
	{"compliance"},
	{"it manager", "it director", "it-leiter", "it leiter"},
	{"cto", "chief technology"},
	{"ceo", "chief executive", "geschäftsführer", "geschaftsfuhrer"},
	{"founder", "gründer", "grunder", "owner", "inhaber"},
}

// seniorityFallback matches when no title group did.
var seniorityFallback = []string{"c-level", "clevel", "vp", "director"}

// legalSuffixes are stripped from company names before comparing.
var legalSuffixes = []string{
	"gmbh & co. kg", "gmbh & co kg", "gmbh", "ag", "kg", "ohg", "gbr",
	"se", "ug", "e.v.", "e.k.", "inc.", "inc", "ltd.", "ltd", "llc",
	"corp.", "corp", "bv", "b.v.", "nv", "n.v.", "vof", "ab", "hb",
	"plc", "limited",
}

func normalizeCompany(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Trim(s, ".,")
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(s, " "+suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, " "+suffix))
			break
		}
	}
	return s
}

// companyMatches reports whether a candidate's company plausibly names
// the target company. Comparison is loose: substring either way after
// stripping legal suffixes, or any shared word of length > 3.
func companyMatches(candidate, target string) bool {
	c := normalizeCompany(candidate)
	t := normalizeCompany(target)
	if c == "" || t == "" {
		return false
	}
	if strings.Contains(c, t) || strings.Contains(t, c) {
		return true
	}
	for _, word := range strings.Fields(t) {
		if len(word) > 3 && strings.Contains(c, word) {
			return true
		}
	}
	return false
}

// SelectBest picks the candidate whose title or seniority tags best
// match the profile. Candidates from other companies are filtered out
// first; if nobody is left, SelectBest returns nil. With no title or
// seniority match the first surviving candidate wins.
func SelectBest(people []Person, targetCompany string) *Person {
	var pool []Person
	for _, p := range people {
		if companyMatches(p.companyOf(), targetCompany) {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		return nil
	}

	for _, group := range titleGroups {
		for i := range pool {
			// Some search results carry the role in the seniority tags
			// instead of the title, so both are scanned.
			haystack := strings.ToLower(pool[i].JobTitle + " " + strings.Join(pool[i].Seniorities, " "))
			for _, kw := range group {
				if strings.Contains(haystack, kw) {
					return &pool[i]
				}
			}
		}
	}

	for i := range pool {
		for _, s := range pool[i].Seniorities {
			seniority := strings.ToLower(s)
			for _, kw := range seniorityFallback {
				if strings.Contains(seniority, kw) {
					return &pool[i]
				}
			}
		}
	}

	return &pool[0]
}
