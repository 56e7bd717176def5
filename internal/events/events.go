// Package events defines the domain events published by the sync and
// enrichment modules.
package events

import "crmbridge_backend/platform/events"

// Event names.
const (
	OrganizationSynced = "sync.organization.synced"
	PersonSynced       = "sync.person.synced"
	DealSynced         = "sync.deal.synced"
	DealArchived       = "sync.deal.archived"
	EnrichmentStarted  = "enrichment.request.started"
	ContactEnriched    = "enrichment.contact.enriched"
	ContactCreated     = "enrichment.contact.created"
)

// OrganizationSyncedEvent fires after an organization is reconciled.
type OrganizationSyncedEvent struct {
	events.BaseEvent
	ExternalID int64 `json:"external_id"`
	ERPID      int64 `json:"erp_id"`
	Created    bool  `json:"created"`
}

func (OrganizationSyncedEvent) EventName() string { return OrganizationSynced }

// PersonSyncedEvent fires after a person is reconciled.
type PersonSyncedEvent struct {
	events.BaseEvent
	ExternalID int64 `json:"external_id"`
	ERPID      int64 `json:"erp_id"`
	Created    bool  `json:"created"`
}

func (PersonSyncedEvent) EventName() string { return PersonSynced }

// DealSyncedEvent fires after a deal is reconciled.
type DealSyncedEvent struct {
	events.BaseEvent
	ExternalID int64 `json:"external_id"`
	ERPID      int64 `json:"erp_id"`
	Created    bool  `json:"created"`
}

func (DealSyncedEvent) EventName() string { return DealSynced }

// DealArchivedEvent fires after a deleted deal is archived in the ERP.
type DealArchivedEvent struct {
	events.BaseEvent
	ExternalID int64 `json:"external_id"`
	ERPID      int64 `json:"erp_id"`
}

func (DealArchivedEvent) EventName() string { return DealArchived }

// EnrichmentStartedEvent fires when an async enrichment is requested.
type EnrichmentStartedEvent struct {
	events.BaseEvent
	EnrichmentID string `json:"enrichment_id"`
	DealID       int64  `json:"deal_id"`
	Variant      string `json:"variant"`
}

func (EnrichmentStartedEvent) EventName() string { return EnrichmentStarted }

// ContactEnrichedEvent fires when a completion updated an existing person.
type ContactEnrichedEvent struct {
	events.BaseEvent
	EnrichmentID string `json:"enrichment_id"`
	PersonID     int64  `json:"person_id"`
}

func (ContactEnrichedEvent) EventName() string { return ContactEnriched }

// ContactCreatedEvent fires when a completion created a new person.
type ContactCreatedEvent struct {
	events.BaseEvent
	EnrichmentID string `json:"enrichment_id"`
	DealID       int64  `json:"deal_id"`
	PersonID     int64  `json:"person_id"`
}

func (ContactCreatedEvent) EventName() string { return ContactCreated }
