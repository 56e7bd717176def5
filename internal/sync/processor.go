package sync

import (
	"context"
	"fmt"

	"crmbridge_backend/internal/crm"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/logger"
)

// ObjectType is the closed set of CRM objects the processor handles.
type ObjectType string

const (
	ObjectDeal         ObjectType = "deal"
	ObjectPerson       ObjectType = "person"
	ObjectOrganization ObjectType = "organization"
)

// ParseObjectType validates an inbound object name.
func ParseObjectType(s string) (ObjectType, bool) {
	switch ObjectType(s) {
	case ObjectDeal, ObjectPerson, ObjectOrganization:
		return ObjectType(s), true
	}
	return "", false
}

// Actions delivered by the CRM's webhook, after normalization.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// NormalizeAction folds the CRM's action vocabulary variants ("added",
// "change") onto the canonical set.
func NormalizeAction(s string) string {
	switch s {
	case "added", "create":
		return ActionCreate
	case "updated", "change", "update":
		return ActionUpdate
	case "deleted", "delete":
		return ActionDelete
	}
	return s
}

// StageTrigger fires enrichment side effects when a deal enters a
// trigger stage. Trigger failures are reported but never abort the sync.
type StageTrigger interface {
	TriggerDownload(ctx context.Context, deal *crm.Deal) error
	TriggerLeadDiscovery(ctx context.Context, deal *crm.Deal) error
}

// Processor routes dequeued webhook events to the reconciler and fires
// stage triggers.
type Processor struct {
	reconciler *Reconciler
	crm        CRMReader
	trigger    StageTrigger
	mappings   *Mappings

	downloadStageID      int64
	leadDiscoveryStageID int64

	log *logger.Logger
}

// NewProcessor wires the event processor.
func NewProcessor(reconciler *Reconciler, crmClient CRMReader, trigger StageTrigger, mappings *Mappings, cfg config.SyncConfig, log *logger.Logger) *Processor {
	return &Processor{
		reconciler:           reconciler,
		crm:                  crmClient,
		trigger:              trigger,
		mappings:             mappings,
		downloadStageID:      cfg.GetDownloadStageID(),
		leadDiscoveryStageID: cfg.GetLeadDiscoveryStageID(),
		log:                  log.WithComponent("processor"),
	}
}

// Process handles one deduplicated webhook event.
func (p *Processor) Process(ctx context.Context, object ObjectType, action string, entityID int64) error {
	log := p.log.WithContext(ctx)
	action = NormalizeAction(action)

	switch object {
	case ObjectDeal:
		return p.processDeal(ctx, action, entityID)
	case ObjectPerson:
		if action == ActionDelete {
			log.Info("ignoring person deletion", "person_id", entityID)
			return nil
		}
		res, err := p.reconciler.ReconcilePerson(ctx, entityID)
		if err != nil {
			return err
		}
		p.logResult(log, "person", entityID, res)
		return nil
	case ObjectOrganization:
		if action == ActionDelete {
			log.Info("ignoring organization deletion", "org_id", entityID)
			return nil
		}
		res, err := p.reconciler.ReconcileOrganization(ctx, entityID)
		if err != nil {
			return err
		}
		p.logResult(log, "organization", entityID, res)
		return nil
	}
	return fmt.Errorf("unknown object type %q", object)
}

func (p *Processor) processDeal(ctx context.Context, action string, dealID int64) error {
	log := p.log.WithContext(ctx)

	if action == ActionDelete {
		res, err := p.reconciler.ArchiveDeal(ctx, dealID)
		if err != nil {
			return err
		}
		p.logResult(log, "deal", dealID, res)
		return nil
	}

	deal, err := p.crm.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}

	if deal.Status == "deleted" {
		p.logResult(log, "deal", dealID, skipped("deal deleted upstream"))
		return nil
	}

	if p.mappings.TriggerOnly(deal.PipelineID) {
		p.fireTriggers(ctx, deal)
		return nil
	}

	res, err := p.reconciler.ReconcileDeal(ctx, deal)
	if err != nil {
		return err
	}
	p.logResult(log, "deal", dealID, res)

	p.fireTriggers(ctx, deal)
	return nil
}

// fireTriggers runs stage-entry side effects. The trigger layer owns
// per-deal claims, so redelivered events fall through there; trigger
// errors are logged and never fail the event.
func (p *Processor) fireTriggers(ctx context.Context, deal *crm.Deal) {
	if p.trigger == nil {
		return
	}
	log := p.log.WithContext(ctx)

	switch deal.StageID {
	case p.downloadStageID:
		if err := p.trigger.TriggerDownload(ctx, deal); err != nil {
			log.Error("download trigger failed", "deal_id", deal.ID, "error", err)
		}
	case p.leadDiscoveryStageID:
		if err := p.trigger.TriggerLeadDiscovery(ctx, deal); err != nil {
			log.Error("lead discovery trigger failed", "deal_id", deal.ID, "error", err)
		}
	}
}

func (p *Processor) logResult(log *logger.Logger, object string, id int64, res Result) {
	if res.Skipped {
		log.Info("sync skipped", "object", object, "id", id, "reason", res.Reason)
		return
	}
	log.Info("sync applied", "object", object, "id", id, "erp_id", res.ERPID, "created", res.Created)
}
