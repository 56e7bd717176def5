package enrichment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crmbridge_backend/internal/crm"
	"crmbridge_backend/internal/discovery"
	domainevents "crmbridge_backend/internal/events"
	"crmbridge_backend/internal/icp"
	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"
	"crmbridge_backend/platform/phone"
)

// CRMGateway is the slice of the CRM client the orchestrator needs.
type CRMGateway interface {
	GetOrganization(ctx context.Context, id int64) (*crm.Organization, error)
	GetPerson(ctx context.Context, id int64) (*crm.Person, error)
	CreateContact(ctx context.Context, nc crm.NewContact) (int64, error)
	UpdateContact(ctx context.Context, personID int64, upd crm.ContactUpdate) error
	LinkContactToDeal(ctx context.Context, dealID, personID int64) error
	UpdateOrganizationWebsite(ctx context.Context, orgID int64, website string) error
	AddDealNote(ctx context.Context, dealID int64, content string) error
}

// Enricher is the provider client surface the orchestrator needs.
type Enricher interface {
	EnrichPerson(ctx context.Context, hints EnrichHints) (string, error)
	SearchPeople(ctx context.Context, domain string, jobTitles []string) ([]icp.Person, error)
}

// DomainDiscoverer resolves a company domain from its record.
type DomainDiscoverer interface {
	Discover(ctx context.Context, orgName, website, titleHint string) (string, bool, error)
}

// Claims gates stage triggers per deal and action.
type Claims interface {
	Claim(ctx context.Context, dealID int64, action string) (bool, error)
}

// RequestStore persists enrichment request correlation state.
type RequestStore interface {
	Save(ctx context.Context, req Request) error
	Get(ctx context.Context, enrichmentID string) (Request, bool, error)
	MarkCompleted(ctx context.Context, enrichmentID string) error
}

// TitleSource provides the ICP title filter per locale.
type TitleSource interface {
	TitlesForLocale(locale string) []string
}

// Orchestrator runs the two stage triggers and their completion
// callbacks. All CRM notes are best effort: a failed note is logged and
// never fails the surrounding operation.
type Orchestrator struct {
	crm       CRMGateway
	enricher  Enricher
	discovery DomainDiscoverer
	requests  RequestStore
	claims    Claims
	titles    TitleSource
	bus       events.Bus
	log       *logger.Logger
}

// NewOrchestrator wires the enrichment orchestrator.
func NewOrchestrator(crmClient CRMGateway, enricher Enricher, disco DomainDiscoverer, requests RequestStore, claims Claims, titles TitleSource, bus events.Bus, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		crm:       crmClient,
		enricher:  enricher,
		discovery: disco,
		requests:  requests,
		claims:    claims,
		titles:    titles,
		bus:       bus,
		log:       log.WithComponent("enrichment"),
	}
}

func (o *Orchestrator) note(ctx context.Context, dealID int64, content string) {
	if err := o.crm.AddDealNote(ctx, dealID, content); err != nil {
		o.log.WithContext(ctx).Error("deal note failed", "deal_id", dealID, "error", err)
	}
}

// TriggerDownload enriches the deal's existing contact with a mobile
// number and job title. Fires once per deal; deals without a contact or
// without an email are skipped with a note, and contacts that already
// carry a usable phone number need no enrichment.
func (o *Orchestrator) TriggerDownload(ctx context.Context, deal *crm.Deal) error {
	log := o.log.WithContext(ctx)

	if !deal.PersonID.Present() {
		o.note(ctx, deal.ID, "Enrichment skipped: deal has no linked contact.")
		return nil
	}

	claimed, err := o.claims.Claim(ctx, deal.ID, VariantDownload)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug("download trigger already claimed", "deal_id", deal.ID)
		return nil
	}

	person, err := o.crm.GetPerson(ctx, deal.PersonID.ID)
	if err != nil {
		return err
	}

	email := person.PrimaryEmail()
	if email == "" {
		o.note(ctx, deal.ID, fmt.Sprintf("Enrichment skipped: contact %s has no email address.", person.Name))
		return nil
	}
	if phone.Usable(person.PrimaryPhone()) {
		log.Info("contact already has usable phone", "deal_id", deal.ID, "person_id", person.ID)
		return nil
	}

	first, last := splitName(person.Name)
	hints := EnrichHints{
		FirstName:  first,
		LastName:   last,
		ExternalID: strconv.FormatInt(person.ID, 10),
	}
	if person.OrgID.Present() {
		if org, err := o.crm.GetOrganization(ctx, person.OrgID.ID); err == nil {
			hints.CompanyName = org.Name
			hints.CompanyDomain = discovery.StripWebsite(orgDomain(org))
		} else {
			log.Error("organization lookup failed", "org_id", person.OrgID.ID, "error", err)
		}
	}
	if hints.CompanyDomain == "" {
		hints.CompanyDomain = emailDomain(email)
	}

	enrichmentID, err := o.enricher.EnrichPerson(ctx, hints)
	if err != nil {
		o.note(ctx, deal.ID, "Enrichment request failed; contact data unchanged.")
		return err
	}

	personID := person.ID
	if err := o.requests.Save(ctx, Request{
		EnrichmentID: enrichmentID,
		DealID:       deal.ID,
		PersonID:     &personID,
		Variant:      VariantDownload,
	}); err != nil {
		return err
	}

	o.bus.Publish(ctx, domainevents.EnrichmentStartedEvent{BaseEvent: events.NewBaseEvent(), EnrichmentID: enrichmentID, DealID: deal.ID, Variant: VariantDownload})
	log.Info("download enrichment requested", "deal_id", deal.ID, "enrichment_id", enrichmentID)
	return nil
}

// TriggerLeadDiscovery finds the best-fit contact at the deal's
// organization and enriches them. The contact itself is created later,
// when the completion callback delivers a verified email.
func (o *Orchestrator) TriggerLeadDiscovery(ctx context.Context, deal *crm.Deal) error {
	log := o.log.WithContext(ctx)

	if !deal.OrgID.Present() {
		o.note(ctx, deal.ID, "Lead discovery skipped: deal has no organization.")
		return nil
	}
	if deal.PersonID.Present() {
		log.Info("deal already has a contact", "deal_id", deal.ID)
		return nil
	}

	claimed, err := o.claims.Claim(ctx, deal.ID, VariantLeadDiscovery)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug("lead discovery already claimed", "deal_id", deal.ID)
		return nil
	}

	org, err := o.crm.GetOrganization(ctx, deal.OrgID.ID)
	if err != nil {
		return err
	}

	domain, discovered, err := o.discovery.Discover(ctx, org.Name, orgDomain(org), deal.Title)
	if err != nil {
		log.Error("domain discovery failed", "org", org.Name, "error", err)
	}
	if domain == "" {
		o.note(ctx, deal.ID, fmt.Sprintf("Lead discovery failed: no web domain found for %s.", org.Name))
		return nil
	}
	if discovered {
		if err := o.crm.UpdateOrganizationWebsite(ctx, org.ID, domain); err != nil {
			log.Error("website write-back failed", "org_id", org.ID, "error", err)
		}
	}

	locale, _ := localeOf(org.Language)
	people, err := o.enricher.SearchPeople(ctx, domain, o.titles.TitlesForLocale(locale))
	if err != nil {
		return err
	}
	if len(people) == 0 {
		// The title filter can be too narrow for small companies.
		people, err = o.enricher.SearchPeople(ctx, domain, nil)
		if err != nil {
			return err
		}
	}

	best := icp.SelectBest(people, org.Name)
	if best == nil {
		o.note(ctx, deal.ID, fmt.Sprintf("Lead discovery found no suitable contact at %s.", domain))
		return nil
	}

	enrichmentID, err := o.enricher.EnrichPerson(ctx, EnrichHints{
		FirstName:     best.FirstName,
		LastName:      best.LastName,
		CompanyName:   org.Name,
		CompanyDomain: domain,
		LinkedInURL:   best.LinkedInURL,
	})
	if err != nil {
		o.note(ctx, deal.ID, "Lead discovery enrichment request failed.")
		return err
	}

	if err := o.requests.Save(ctx, Request{
		EnrichmentID: enrichmentID,
		DealID:       deal.ID,
		Variant:      VariantLeadDiscovery,
		Pending: &PendingContact{
			FirstName:   best.FirstName,
			LastName:    best.LastName,
			OrgID:       org.ID,
			OwnerID:     org.Owner(),
			JobTitle:    best.JobTitle,
			LinkedInURL: best.LinkedInURL,
		},
	}); err != nil {
		return err
	}

	o.bus.Publish(ctx, domainevents.EnrichmentStartedEvent{BaseEvent: events.NewBaseEvent(), EnrichmentID: enrichmentID, DealID: deal.ID, Variant: VariantLeadDiscovery})
	log.Info("lead discovery enrichment requested", "deal_id", deal.ID, "enrichment_id", enrichmentID, "candidate", best.Name())
	return nil
}

// HandleCompletion correlates a provider callback with its request and
// applies the result. Unknown ids and already-completed requests are
// safe no-ops, so provider redeliveries cannot double-apply.
func (o *Orchestrator) HandleCompletion(ctx context.Context, completion Completion) error {
	log := o.log.WithContext(ctx)

	id := completion.CorrelationID()
	if id == "" {
		return nil
	}
	req, ok, err := o.requests.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		log.Warn("completion for unknown enrichment", "enrichment_id", id)
		return nil
	}
	if req.Status == StatusCompleted {
		log.Debug("completion already applied", "enrichment_id", id)
		return nil
	}

	result := completion.Result()
	if result == nil {
		o.note(ctx, req.DealID, "Enrichment completed without results.")
		return o.requests.MarkCompleted(ctx, id)
	}

	switch req.Variant {
	case VariantDownload:
		if err := o.applyDownload(ctx, req, result); err != nil {
			return err
		}
	case VariantLeadDiscovery:
		if err := o.applyLeadDiscovery(ctx, req, result); err != nil {
			return err
		}
	default:
		log.Warn("completion for unknown variant", "enrichment_id", id, "variant", req.Variant)
	}

	return o.requests.MarkCompleted(ctx, id)
}

func (o *Orchestrator) applyDownload(ctx context.Context, req Request, result *EnrichedPerson) error {
	if req.PersonID == nil {
		return nil
	}

	upd := crm.ContactUpdate{JobTitle: result.JobTitle}
	if mobile := result.BestPhone(); mobile != "" {
		upd.Phone = phone.NormalizeE164(mobile)
	}
	if upd.Phone == "" && upd.JobTitle == "" {
		o.note(ctx, req.DealID, "Enrichment found no new contact details.")
		return nil
	}

	if err := o.crm.UpdateContact(ctx, *req.PersonID, upd); err != nil {
		return err
	}
	o.note(ctx, req.DealID, "Contact enriched with mobile number and job title.")
	o.bus.Publish(ctx, domainevents.ContactEnrichedEvent{BaseEvent: events.NewBaseEvent(), EnrichmentID: req.EnrichmentID, PersonID: *req.PersonID})
	return nil
}

func (o *Orchestrator) applyLeadDiscovery(ctx context.Context, req Request, result *EnrichedPerson) error {
	email := result.BestEmail()
	if email == "" {
		o.note(ctx, req.DealID, "Lead discovery found a contact but no email address; contact not created.")
		return nil
	}

	pending := req.Pending
	if pending == nil {
		pending = &PendingContact{FirstName: result.FirstName, LastName: result.LastName}
	}

	nc := crm.NewContact{
		Name:     strings.TrimSpace(pending.FirstName + " " + pending.LastName),
		OrgID:    pending.OrgID,
		OwnerID:  pending.OwnerID,
		Email:    email,
		JobTitle: pending.JobTitle,
	}
	if nc.JobTitle == "" {
		nc.JobTitle = result.JobTitle
	}
	if mobile := result.BestPhone(); mobile != "" {
		nc.Phone = phone.NormalizeE164(mobile)
	}

	personID, err := o.crm.CreateContact(ctx, nc)
	if err != nil {
		return err
	}
	if err := o.crm.LinkContactToDeal(ctx, req.DealID, personID); err != nil {
		o.log.WithContext(ctx).Error("contact link failed", "deal_id", req.DealID, "person_id", personID, "error", err)
	}

	o.note(ctx, req.DealID, fmt.Sprintf("Lead discovery created contact %s (%s).", nc.Name, email))
	o.bus.Publish(ctx, domainevents.ContactCreatedEvent{BaseEvent: events.NewBaseEvent(), EnrichmentID: req.EnrichmentID, DealID: req.DealID, PersonID: personID})
	return nil
}

// splitName divides a display name into first and last at the final space.
func splitName(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	idx := strings.LastIndex(trimmed, " ")
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], trimmed[idx+1:]
}

// freemailDomains are never a company domain.
var freemailDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "outlook.com": {}, "hotmail.com": {},
	"yahoo.com": {}, "yahoo.de": {}, "gmx.de": {}, "gmx.net": {}, "web.de": {},
	"t-online.de": {}, "icloud.com": {}, "aol.com": {},
}

// emailDomain extracts a company domain from an email address, rejecting
// consumer mail providers.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	if _, free := freemailDomains[domain]; free {
		return ""
	}
	return domain
}

// orgDomain pulls the best domain hint off an organization record.
func orgDomain(org *crm.Organization) string {
	if org.Website != "" {
		return org.Website
	}
	if d := emailDomain(org.CcEmail); d != "" {
		return d
	}
	return ""
}

// localeOf maps the CRM language value to the locale keys of the ICP
// title table.
func localeOf(lang string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "de", "german", "deutsch", "de_de":
		return "de_DE", true
	case "":
		return "en_US", false
	}
	return "en_US", true
}
