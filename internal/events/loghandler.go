package events

import (
	"context"

	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"
)

// AllEventNames lists every domain event published by the application.
var AllEventNames = []string{
	OrganizationSynced,
	PersonSynced,
	DealSynced,
	DealArchived,
	EnrichmentStarted,
	ContactEnriched,
	ContactCreated,
}

// LogObserver writes one structured log line per domain event. It is
// the audit trail for everything the reconciler and the enrichment
// orchestrator do to remote systems.
type LogObserver struct {
	log *logger.Logger
}

// NewLogObserver creates the logging observer.
func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log.WithComponent("events")}
}

// Handle logs the event with its identifying fields.
func (o *LogObserver) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case OrganizationSyncedEvent:
		o.log.Info(e.EventName(), "external_id", e.ExternalID, "erp_id", e.ERPID, "created", e.Created)
	case PersonSyncedEvent:
		o.log.Info(e.EventName(), "external_id", e.ExternalID, "erp_id", e.ERPID, "created", e.Created)
	case DealSyncedEvent:
		o.log.Info(e.EventName(), "external_id", e.ExternalID, "erp_id", e.ERPID, "created", e.Created)
	case DealArchivedEvent:
		o.log.Info(e.EventName(), "external_id", e.ExternalID, "erp_id", e.ERPID)
	case EnrichmentStartedEvent:
		o.log.Info(e.EventName(), "enrichment_id", e.EnrichmentID, "deal_id", e.DealID, "variant", e.Variant)
	case ContactEnrichedEvent:
		o.log.Info(e.EventName(), "enrichment_id", e.EnrichmentID, "person_id", e.PersonID)
	case ContactCreatedEvent:
		o.log.Info(e.EventName(), "enrichment_id", e.EnrichmentID, "deal_id", e.DealID, "person_id", e.PersonID)
	default:
		o.log.Info(event.EventName())
	}
	return nil
}

// SubscribeLogging attaches the observer to every domain event.
func SubscribeLogging(bus events.Bus, log *logger.Logger) {
	obs := NewLogObserver(log)
	for _, name := range AllEventNames {
		bus.Subscribe(name, obs)
	}
}
