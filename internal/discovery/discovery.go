// Package discovery resolves a company's web domain from its CRM record:
// the explicit website wins, then DNS probing of name-derived candidates,
// then a web search fallback.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"crmbridge_backend/internal/websearch"
	"crmbridge_backend/platform/logger"
)

// Resolver answers DNS lookups. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Searcher runs web queries for the search fallback.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// Service discovers company domains.
type Service struct {
	resolver Resolver
	searcher Searcher
	tlds     map[Region][]string
	log      *logger.Logger
}

// NewService creates a discovery service. A nil tlds map falls back to
// the compiled-in region table.
func NewService(resolver Resolver, searcher Searcher, tlds map[Region][]string, log *logger.Logger) *Service {
	if tlds == nil {
		tlds = defaultRegionTLDs
	}
	return &Service{resolver: resolver, searcher: searcher, tlds: tlds, log: log}
}

// legalForms are removed from an organization name before deriving
// domain candidates.
var legalForms = []string{
	"gmbh & co. kg", "gmbh & co kg", "& co. kg", "co. kg", "& co.",
	"gmbh", "ag", "kg", "ohg", "gbr", "se", "ug", "e.v.", "e.k.",
	"inc.", "inc", "ltd.", "ltd", "llc", "corp.", "corp", "bv", "b.v.",
	"nv", "n.v.", "vof", "ab", "hb", "plc", "limited",
}

// searchDenylist filters directory and social sites out of search hits.
var searchDenylist = []string{
	"linkedin.", "facebook.", "twitter.", "x.com", "xing.", "wikipedia.",
	"bloomberg.", "crunchbase.", "dnb.com", "google.", "yelp.",
	"glassdoor.", "indeed.",
}

// StripWebsite reduces a stored website value to its bare host.
func StripWebsite(website string) string {
	s := strings.TrimSpace(website)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.TrimSpace(website), "www.")
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}

// nameVariants derives slug candidates from an organization name: the
// full hyphenated form and, when hyphens occur, a collapsed form.
func nameVariants(orgName string) []string {
	s := strings.ToLower(strings.TrimSpace(orgName))
	for _, form := range legalForms {
		if strings.HasSuffix(s, " "+form) {
			s = strings.TrimSpace(strings.TrimSuffix(s, " "+form))
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'ä':
			b.WriteString("ae")
		case r == 'ö':
			b.WriteString("oe")
		case r == 'ü':
			b.WriteString("ue")
		case r == 'ß':
			b.WriteString("ss")
		default:
			b.WriteRune('-')
		}
	}

	hyphenated := strings.Trim(b.String(), "-")
	for strings.Contains(hyphenated, "--") {
		hyphenated = strings.ReplaceAll(hyphenated, "--", "-")
	}
	if hyphenated == "" {
		return nil
	}

	variants := []string{hyphenated}
	if collapsed := strings.ReplaceAll(hyphenated, "-", ""); collapsed != hyphenated {
		variants = append(variants, collapsed)
	}
	return variants
}

func denylisted(host string) bool {
	lowered := strings.ToLower(host)
	for _, bad := range searchDenylist {
		if strings.Contains(lowered, bad) {
			return true
		}
	}
	return false
}

// Discover resolves the organization's domain. The second return value
// reports whether the domain was discovered (probed or searched) rather
// than read from the record; discovered domains should be written back.
func (s *Service) Discover(ctx context.Context, orgName, website, titleHint string) (string, bool, error) {
	if host := StripWebsite(website); host != "" {
		return host, false, nil
	}

	region := DetectRegion(titleHint)
	tlds, ok := s.tlds[region]
	if !ok {
		tlds = defaultRegionTLDs[RegionDACH]
	}

	for _, variant := range nameVariants(orgName) {
		for _, tld := range tlds {
			candidate := variant + tld
			if _, err := s.resolver.LookupHost(ctx, candidate); err == nil {
				s.log.Info("domain discovered via dns", "org", orgName, "domain", candidate)
				return candidate, true, nil
			}
		}
	}

	domain, err := s.searchDomain(ctx, orgName)
	if err != nil {
		return "", false, err
	}
	if domain != "" {
		s.log.Info("domain discovered via search", "org", orgName, "domain", domain)
		return domain, true, nil
	}
	return "", false, nil
}

// searchDomain extracts a plausible company domain from web search hits.
// Hits whose host or page title contains a name token are preferred;
// otherwise the first non-denylisted hit wins.
func (s *Service) searchDomain(ctx context.Context, orgName string) (string, error) {
	if s.searcher == nil {
		return "", nil
	}

	results, err := s.searcher.Search(ctx, fmt.Sprintf("%s official website", orgName))
	if err != nil {
		return "", err
	}

	var tokens []string
	for _, v := range nameVariants(orgName) {
		tokens = append(tokens, strings.Split(v, "-")...)
	}

	var fallback string
	for _, r := range results {
		host := StripWebsite(r.URL)
		if host == "" || denylisted(host) {
			continue
		}
		if fallback == "" {
			fallback = host
		}
		title := strings.ToLower(r.Title)
		for _, token := range tokens {
			if len(token) > 3 && (strings.Contains(host, token) || strings.Contains(title, token)) {
				return host, nil
			}
		}
	}
	return fallback, nil
}
