package enrichment

import "strings"

// EmailResult is one email candidate from an enrichment result.
type EmailResult struct {
	Email            string `json:"email"`
	ValidationStatus string `json:"validationStatus"`
}

// PhoneResult is one mobile number candidate from an enrichment result.
type PhoneResult struct {
	MobilePhone     string  `json:"mobilePhone"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// EnrichedPerson is the provider's per-person enrichment result.
type EnrichedPerson struct {
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	JobTitle     string        `json:"jobTitle"`
	LinkedInURL  string        `json:"linkedInUrl"`
	Emails       []EmailResult `json:"emails"`
	MobilePhones []PhoneResult `json:"mobilePhones"`
}

// BestEmail prefers a VALID address; otherwise the first one offered.
func (p EnrichedPerson) BestEmail() string {
	for _, e := range p.Emails {
		if strings.EqualFold(e.ValidationStatus, "VALID") && e.Email != "" {
			return e.Email
		}
	}
	for _, e := range p.Emails {
		if e.Email != "" {
			return e.Email
		}
	}
	return ""
}

// BestPhone returns the mobile number with the highest confidence.
func (p EnrichedPerson) BestPhone() string {
	best := ""
	bestScore := -1.0
	for _, m := range p.MobilePhones {
		if m.MobilePhone != "" && m.ConfidenceScore > bestScore {
			best = m.MobilePhone
			bestScore = m.ConfidenceScore
		}
	}
	return best
}

// Completion is the provider's webhook callback payload. Depending on
// API version the result arrives as a single person or a list.
type Completion struct {
	EnrichmentID string           `json:"enrichmentID"`
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Person       *EnrichedPerson  `json:"person"`
	People       []EnrichedPerson `json:"people"`
}

// CorrelationID returns whichever id field the provider populated.
func (c Completion) CorrelationID() string {
	if c.EnrichmentID != "" {
		return c.EnrichmentID
	}
	return c.ID
}

// Result returns the enriched person, or nil when the payload carries none.
func (c Completion) Result() *EnrichedPerson {
	if c.Person != nil {
		return c.Person
	}
	if len(c.People) > 0 {
		return &c.People[0]
	}
	return nil
}
