package sync

import (
	"context"
	"fmt"

	"crmbridge_backend/internal/crm"
	domainevents "crmbridge_backend/internal/events"
	"crmbridge_backend/internal/erp"
	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"
)

// Object type discriminators for the identity mapping table.
const (
	TypeOrganization = "organization"
	TypePerson       = "person"
	TypeDeal         = "deal"
)

// CRMReader is the slice of the CRM client the reconciler needs.
type CRMReader interface {
	GetOrganization(ctx context.Context, id int64) (*crm.Organization, error)
	GetPerson(ctx context.Context, id int64) (*crm.Person, error)
	GetDeal(ctx context.Context, id int64) (*crm.Deal, error)
}

// ERPWriter is the slice of the ERP client the reconciler needs.
type ERPWriter interface {
	Search(ctx context.Context, model string, conds []erp.Cond, limit int) ([]int64, error)
	SearchRead(ctx context.Context, model string, conds []erp.Cond, fields []string, limit int) ([]map[string]any, error)
	Create(ctx context.Context, model string, vals map[string]any) (int64, error)
	Write(ctx context.Context, model string, id int64, vals map[string]any) error
}

// IdentityStore persists CRM-to-ERP id mappings.
type IdentityStore interface {
	Get(ctx context.Context, objectType string, externalID int64) (int64, bool, error)
	Set(ctx context.Context, objectType string, externalID, erpID int64) error
}

// Result reports the outcome of a reconciliation.
type Result struct {
	ERPID   int64
	Created bool
	Skipped bool
	Reason  string
}

func skipped(reason string) Result { return Result{Skipped: true, Reason: reason} }

// Reconciler mirrors CRM records into the ERP: match-or-create with an
// identity mapping so reprocessing the same record is idempotent.
type Reconciler struct {
	crm      CRMReader
	erp      ERPWriter
	ids      IdentityStore
	mappings *Mappings
	bus      events.Bus
	log      *logger.Logger
}

// NewReconciler wires the reconciliation engine.
func NewReconciler(crmClient CRMReader, erpClient ERPWriter, ids IdentityStore, mappings *Mappings, bus events.Bus, log *logger.Logger) *Reconciler {
	return &Reconciler{
		crm:      crmClient,
		erp:      erpClient,
		ids:      ids,
		mappings: mappings,
		bus:      bus,
		log:      log.WithComponent("reconciler"),
	}
}

// ReconcileOrganization mirrors a CRM organization into an ERP company
// partner. Matching is by exact name; an existing match is adopted
// rather than duplicated.
func (r *Reconciler) ReconcileOrganization(ctx context.Context, orgID int64) (Result, error) {
	if erpID, ok, err := r.ids.Get(ctx, TypeOrganization, orgID); err != nil {
		return Result{}, err
	} else if ok {
		org, err := r.crm.GetOrganization(ctx, orgID)
		if err != nil {
			return Result{}, err
		}
		if err := r.erp.Write(ctx, "res.partner", erpID, r.orgValues(org)); err != nil {
			return Result{}, err
		}
		r.bus.Publish(ctx, domainevents.OrganizationSyncedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: orgID, ERPID: erpID})
		return Result{ERPID: erpID}, nil
	}

	org, err := r.crm.GetOrganization(ctx, orgID)
	if err != nil {
		return Result{}, err
	}
	if org.Name == "" {
		return skipped("organization has no name"), nil
	}

	ids, err := r.erp.Search(ctx, "res.partner", []erp.Cond{
		erp.Eq("name", org.Name),
		erp.Eq("is_company", true),
	}, 1)
	if err != nil {
		return Result{}, err
	}

	var erpID int64
	created := false
	if len(ids) > 0 {
		erpID = ids[0]
		if err := r.erp.Write(ctx, "res.partner", erpID, r.orgValues(org)); err != nil {
			return Result{}, err
		}
	} else {
		erpID, err = r.erp.Create(ctx, "res.partner", r.orgValues(org))
		if err != nil {
			return Result{}, err
		}
		created = true
	}

	if err := r.ids.Set(ctx, TypeOrganization, orgID, erpID); err != nil {
		return Result{}, err
	}
	r.bus.Publish(ctx, domainevents.OrganizationSyncedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: orgID, ERPID: erpID, Created: created})
	return Result{ERPID: erpID, Created: created}, nil
}

func (r *Reconciler) orgValues(org *crm.Organization) map[string]any {
	vals := map[string]any{
		"name":       org.Name,
		"is_company": true,
	}
	if org.Website != "" {
		vals["website"] = org.Website
	}
	if locale, ok := NormalizeLocale(org.Language); ok {
		vals["lang"] = locale
	}
	if erpUser, ok := r.mappings.UserForOwner(org.Owner()); ok {
		vals["user_id"] = erpUser
	}
	return vals
}

// ReconcilePerson mirrors a CRM person into an ERP contact partner.
// Matching is by email; persons without an email always create.
func (r *Reconciler) ReconcilePerson(ctx context.Context, personID int64) (Result, error) {
	person, err := r.crm.GetPerson(ctx, personID)
	if err != nil {
		return Result{}, err
	}

	var parentID int64
	if person.OrgID.Present() {
		orgRes, err := r.ReconcileOrganization(ctx, person.OrgID.ID)
		if err != nil {
			return Result{}, err
		}
		if !orgRes.Skipped {
			parentID = orgRes.ERPID
		}
	}

	if erpID, ok, err := r.ids.Get(ctx, TypePerson, personID); err != nil {
		return Result{}, err
	} else if ok {
		if err := r.erp.Write(ctx, "res.partner", erpID, r.personValues(person, parentID)); err != nil {
			return Result{}, err
		}
		r.bus.Publish(ctx, domainevents.PersonSyncedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: personID, ERPID: erpID})
		return Result{ERPID: erpID}, nil
	}

	var erpID int64
	created := false
	if email := person.PrimaryEmail(); email != "" {
		ids, err := r.erp.Search(ctx, "res.partner", []erp.Cond{
			erp.Eq("email", email),
			erp.Eq("is_company", false),
		}, 1)
		if err != nil {
			return Result{}, err
		}
		if len(ids) > 0 {
			erpID = ids[0]
			if err := r.erp.Write(ctx, "res.partner", erpID, r.personValues(person, parentID)); err != nil {
				return Result{}, err
			}
		}
	}
	if erpID == 0 {
		erpID, err = r.erp.Create(ctx, "res.partner", r.personValues(person, parentID))
		if err != nil {
			return Result{}, err
		}
		created = true
	}

	if err := r.ids.Set(ctx, TypePerson, personID, erpID); err != nil {
		return Result{}, err
	}
	r.bus.Publish(ctx, domainevents.PersonSyncedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: personID, ERPID: erpID, Created: created})
	return Result{ERPID: erpID, Created: created}, nil
}

func (r *Reconciler) personValues(person *crm.Person, parentID int64) map[string]any {
	vals := map[string]any{
		"name":       person.Name,
		"is_company": false,
	}
	if email := person.PrimaryEmail(); email != "" {
		vals["email"] = email
	}
	if phone := person.PrimaryPhone(); phone != "" {
		vals["phone"] = phone
	}
	if person.JobTitle != "" {
		vals["function"] = person.JobTitle
	}
	if parentID > 0 {
		vals["parent_id"] = parentID
	}
	if locale, ok := NormalizeLocale(person.Language); ok {
		vals["lang"] = locale
	}
	if erpUser, ok := r.mappings.UserForOwner(person.Owner()); ok {
		vals["user_id"] = erpUser
	}
	return vals
}

// ReconcileDeal mirrors a CRM deal into an ERP lead. Out-of-scope
// pipelines and disallowed owners skip with a reason; related records
// are reconciled first so the lead can reference them.
func (r *Reconciler) ReconcileDeal(ctx context.Context, deal *crm.Deal) (Result, error) {
	// The deal can be deleted between webhook delivery and processing;
	// the fetched record then still arrives with status "deleted".
	if deal.Status == "deleted" {
		return skipped("deal deleted upstream"), nil
	}
	team, inScope := r.mappings.TeamForPipeline(deal.PipelineID)
	if !inScope {
		return skipped(fmt.Sprintf("pipeline %d not mapped", deal.PipelineID)), nil
	}
	if !r.mappings.OwnerAllowed(deal.Owner(), deal.PipelineID) {
		return skipped(fmt.Sprintf("owner %d not allowed", deal.Owner())), nil
	}

	var partnerID int64
	if deal.PersonID.Present() {
		res, err := r.ReconcilePerson(ctx, deal.PersonID.ID)
		if err != nil {
			return Result{}, err
		}
		if !res.Skipped {
			partnerID = res.ERPID
		}
	} else if deal.OrgID.Present() {
		res, err := r.ReconcileOrganization(ctx, deal.OrgID.ID)
		if err != nil {
			return Result{}, err
		}
		if !res.Skipped {
			partnerID = res.ERPID
		}
	}

	if erpID, ok, err := r.ids.Get(ctx, TypeDeal, deal.ID); err != nil {
		return Result{}, err
	} else if ok {
		if err := r.erp.Write(ctx, "crm.lead", erpID, r.dealValues(deal, team, partnerID)); err != nil {
			return Result{}, err
		}
		r.bus.Publish(ctx, domainevents.DealSyncedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: deal.ID, ERPID: erpID})
		return Result{ERPID: erpID}, nil
	}

	erpID, err := r.findExistingDeal(ctx, deal, team, partnerID)
	if err != nil {
		return Result{}, err
	}

	created := false
	if erpID > 0 {
		if err := r.erp.Write(ctx, "crm.lead", erpID, r.dealValues(deal, team, partnerID)); err != nil {
			return Result{}, err
		}
	} else {
		erpID, err = r.erp.Create(ctx, "crm.lead", r.dealValues(deal, team, partnerID))
		if err != nil {
			return Result{}, err
		}
		created = true
	}

	if err := r.ids.Set(ctx, TypeDeal, deal.ID, erpID); err != nil {
		return Result{}, err
	}
	r.bus.Publish(ctx, domainevents.DealSyncedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: deal.ID, ERPID: erpID, Created: created})
	return Result{ERPID: erpID, Created: created}, nil
}

// findExistingDeal matches unmapped deals against ERP leads in two
// tiers: title plus partner (plus team when set), then title alone but
// only when the title is unique. Archived leads still count as matches
// so a reactivated deal does not spawn a duplicate. An ambiguous title
// creates a new lead rather than guessing.
func (r *Reconciler) findExistingDeal(ctx context.Context, deal *crm.Deal, team, partnerID int64) (int64, error) {
	if deal.Title == "" {
		return 0, nil
	}
	base := []erp.Cond{
		erp.Eq("type", "opportunity"),
		erp.In("active", true, false),
	}

	if partnerID > 0 {
		conds := append([]erp.Cond{}, base...)
		conds = append(conds, erp.Eq("name", deal.Title), erp.Eq("partner_id", partnerID))
		if team > 0 {
			conds = append(conds, erp.Eq("team_id", team))
		}
		rows, err := r.erp.SearchRead(ctx, "crm.lead", conds, []string{"id"}, 1)
		if err != nil {
			return 0, err
		}
		if len(rows) > 0 {
			return erp.RowID(rows[0]), nil
		}
	}

	conds := append([]erp.Cond{}, base...)
	conds = append(conds, erp.Eq("name", deal.Title))
	if team > 0 {
		conds = append(conds, erp.Eq("team_id", team))
	}
	rows, err := r.erp.SearchRead(ctx, "crm.lead", conds, []string{"id"}, 2)
	if err != nil {
		return 0, err
	}
	switch len(rows) {
	case 1:
		return erp.RowID(rows[0]), nil
	case 0:
		return 0, nil
	default:
		r.log.Warn("ambiguous lead title, creating new lead", "title", deal.Title, "deal_id", deal.ID)
		return 0, nil
	}
}

func (r *Reconciler) dealValues(deal *crm.Deal, team, partnerID int64) map[string]any {
	vals := map[string]any{
		"name": deal.Title,
		"type": "opportunity",
	}
	if team > 0 {
		vals["team_id"] = team
	}
	if partnerID > 0 {
		vals["partner_id"] = partnerID
	}
	if stage, ok := r.mappings.StageFor(deal.StageID, deal.Status); ok {
		vals["stage_id"] = stage
	}
	if deal.Value > 0 {
		vals["expected_revenue"] = float64(deal.Value)
	}
	if prob, ok := NormalizeProbability(deal.Probability); ok {
		vals["probability"] = prob
	}
	if deal.ExpectedCloseDate != "" {
		vals["date_deadline"] = deal.ExpectedCloseDate
	}
	if erpUser, ok := r.mappings.UserForOwner(deal.Owner()); ok {
		vals["user_id"] = erpUser
	}
	return vals
}

// ArchiveDeal deactivates the ERP lead mirroring a deleted CRM deal.
// Deals that were never mirrored are a no-op.
func (r *Reconciler) ArchiveDeal(ctx context.Context, dealID int64) (Result, error) {
	erpID, ok, err := r.ids.Get(ctx, TypeDeal, dealID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return skipped("deal was never synced"), nil
	}
	if err := r.erp.Write(ctx, "crm.lead", erpID, map[string]any{"active": false}); err != nil {
		return Result{}, err
	}
	r.bus.Publish(ctx, domainevents.DealArchivedEvent{BaseEvent: events.NewBaseEvent(), ExternalID: dealID, ERPID: erpID})
	return Result{ERPID: erpID}, nil
}
