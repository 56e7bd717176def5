package sync

import (
	"context"
	"fmt"
	"testing"

	"crmbridge_backend/internal/crm"
	"crmbridge_backend/internal/erp"
	"crmbridge_backend/platform/events"
	"crmbridge_backend/platform/logger"
)

type fakeCRM struct {
	orgs    map[int64]*crm.Organization
	persons map[int64]*crm.Person
	deals   map[int64]*crm.Deal
}

func (f *fakeCRM) GetOrganization(_ context.Context, id int64) (*crm.Organization, error) {
	return f.orgs[id], nil
}

func (f *fakeCRM) GetPerson(_ context.Context, id int64) (*crm.Person, error) {
	return f.persons[id], nil
}

func (f *fakeCRM) GetDeal(_ context.Context, id int64) (*crm.Deal, error) {
	return f.deals[id], nil
}

type erpWrite struct {
	model string
	id    int64
	vals  map[string]any
}

type fakeERP struct {
	searchFn     func(model string, conds []erp.Cond) []int64
	searchReadFn func(model string, conds []erp.Cond) []map[string]any
	creates      []erpWrite
	writes       []erpWrite
	nextID       int64
}

func (f *fakeERP) Search(_ context.Context, model string, conds []erp.Cond, _ int) ([]int64, error) {
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(model, conds), nil
}

func (f *fakeERP) SearchRead(_ context.Context, model string, conds []erp.Cond, _ []string, _ int) ([]map[string]any, error) {
	if f.searchReadFn == nil {
		return nil, nil
	}
	return f.searchReadFn(model, conds), nil
}

func (f *fakeERP) Create(_ context.Context, model string, vals map[string]any) (int64, error) {
	f.nextID++
	f.creates = append(f.creates, erpWrite{model: model, id: f.nextID, vals: vals})
	return f.nextID, nil
}

func (f *fakeERP) Write(_ context.Context, model string, id int64, vals map[string]any) error {
	f.writes = append(f.writes, erpWrite{model: model, id: id, vals: vals})
	return nil
}

type fakeIdentityStore struct {
	entries map[string]int64
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{entries: make(map[string]int64)}
}

func (f *fakeIdentityStore) key(objectType string, externalID int64) string {
	return fmt.Sprintf("%s:%d", objectType, externalID)
}

func (f *fakeIdentityStore) Get(_ context.Context, objectType string, externalID int64) (int64, bool, error) {
	id, ok := f.entries[f.key(objectType, externalID)]
	return id, ok, nil
}

func (f *fakeIdentityStore) Set(_ context.Context, objectType string, externalID, erpID int64) error {
	f.entries[f.key(objectType, externalID)] = erpID
	return nil
}

func newTestReconciler(crmFake *fakeCRM, erpFake *fakeERP, ids *fakeIdentityStore, mappings *Mappings) *Reconciler {
	log := logger.New("development")
	return NewReconciler(crmFake, erpFake, ids, mappings, events.NewInMemoryBus(log), log)
}

func TestReconcileOrganizationCreatesOnceThenUpdates(t *testing.T) {
	crmFake := &fakeCRM{orgs: map[int64]*crm.Organization{
		10: {ID: 10, Name: "Acme GmbH"},
	}}
	erpFake := &fakeERP{}
	ids := newFakeIdentityStore()
	r := newTestReconciler(crmFake, erpFake, ids, DefaultMappings())

	res, err := r.ReconcileOrganization(context.Background(), 10)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if !res.Created || res.ERPID == 0 {
		t.Fatalf("expected creation, got %+v", res)
	}
	if len(erpFake.creates) != 1 {
		t.Fatalf("expected 1 create, got %d", len(erpFake.creates))
	}

	res2, err := r.ReconcileOrganization(context.Background(), 10)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if res2.Created {
		t.Fatal("second reconcile must not create again")
	}
	if res2.ERPID != res.ERPID {
		t.Fatalf("erp id changed across reconciles: %d vs %d", res.ERPID, res2.ERPID)
	}
	if len(erpFake.creates) != 1 || len(erpFake.writes) != 1 {
		t.Fatalf("expected 1 create and 1 write, got %d/%d", len(erpFake.creates), len(erpFake.writes))
	}
}

func TestReconcileOrganizationAdoptsExistingByName(t *testing.T) {
	crmFake := &fakeCRM{orgs: map[int64]*crm.Organization{
		10: {ID: 10, Name: "Acme GmbH"},
	}}
	erpFake := &fakeERP{searchFn: func(model string, conds []erp.Cond) []int64 {
		if model == "res.partner" {
			return []int64{42}
		}
		return nil
	}}
	ids := newFakeIdentityStore()
	r := newTestReconciler(crmFake, erpFake, ids, DefaultMappings())

	res, err := r.ReconcileOrganization(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created || res.ERPID != 42 {
		t.Fatalf("expected adoption of partner 42, got %+v", res)
	}
	if len(erpFake.creates) != 0 {
		t.Fatal("adoption must not create a partner")
	}
}

func TestReconcilePersonMatchesByEmail(t *testing.T) {
	crmFake := &fakeCRM{persons: map[int64]*crm.Person{
		20: {ID: 20, Name: "Jane Doe", Emails: []crm.ContactValue{{Value: "jane@acme.de"}}},
	}}
	erpFake := &fakeERP{searchFn: func(model string, conds []erp.Cond) []int64 {
		for _, c := range conds {
			if c.Field == "email" && c.Value == "jane@acme.de" {
				return []int64{7}
			}
		}
		return nil
	}}
	ids := newFakeIdentityStore()
	r := newTestReconciler(crmFake, erpFake, ids, DefaultMappings())

	res, err := r.ReconcilePerson(context.Background(), 20)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created || res.ERPID != 7 {
		t.Fatalf("expected email match to partner 7, got %+v", res)
	}
}

func TestReconcileDealSkipsUnmappedPipeline(t *testing.T) {
	r := newTestReconciler(&fakeCRM{}, &fakeERP{}, newFakeIdentityStore(), DefaultMappings())

	res, err := r.ReconcileDeal(context.Background(), &crm.Deal{ID: 1, Title: "Deal", PipelineID: 999})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatalf("expected skip for unmapped pipeline, got %+v", res)
	}
}

func TestReconcileDealSkipsDisallowedOwner(t *testing.T) {
	m := DefaultMappings()
	m.AllowedOwners = []int64{100}
	m.index()
	r := newTestReconciler(&fakeCRM{}, &fakeERP{}, newFakeIdentityStore(), m)

	deal := &crm.Deal{ID: 1, Title: "Deal", PipelineID: 1, UserID: crm.RelatedID{ID: 200}}
	res, err := r.ReconcileDeal(context.Background(), deal)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatalf("expected skip for disallowed owner, got %+v", res)
	}
}

func TestReconcileDealMatchesByTitleAndPartner(t *testing.T) {
	crmFake := &fakeCRM{orgs: map[int64]*crm.Organization{
		10: {ID: 10, Name: "Acme GmbH"},
	}}
	erpFake := &fakeERP{
		searchFn: func(model string, conds []erp.Cond) []int64 {
			if model == "res.partner" {
				return []int64{42}
			}
			return nil
		},
		searchReadFn: func(model string, conds []erp.Cond) []map[string]any {
			for _, c := range conds {
				if c.Field == "partner_id" {
					return []map[string]any{{"id": float64(77)}}
				}
			}
			return nil
		},
	}
	ids := newFakeIdentityStore()
	r := newTestReconciler(crmFake, erpFake, ids, DefaultMappings())

	deal := &crm.Deal{ID: 1, Title: "Acme rollout", PipelineID: 1, OrgID: crm.RelatedID{ID: 10}}
	res, err := r.ReconcileDeal(context.Background(), deal)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created || res.ERPID != 77 {
		t.Fatalf("expected adoption of lead 77, got %+v", res)
	}
}

func TestReconcileDealAmbiguousTitleCreatesNewLead(t *testing.T) {
	erpFake := &fakeERP{searchReadFn: func(model string, conds []erp.Cond) []map[string]any {
		if model == "crm.lead" {
			return []map[string]any{{"id": float64(1)}, {"id": float64(2)}}
		}
		return nil
	}}
	r := newTestReconciler(&fakeCRM{}, erpFake, newFakeIdentityStore(), DefaultMappings())

	deal := &crm.Deal{ID: 1, Title: "Generic deal", PipelineID: 1}
	res, err := r.ReconcileDeal(context.Background(), deal)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created {
		t.Fatalf("ambiguous title match must create a new lead, got %+v", res)
	}
}

func TestReconcileDealSkipsDeletedStatus(t *testing.T) {
	erpFake := &fakeERP{}
	r := newTestReconciler(&fakeCRM{}, erpFake, newFakeIdentityStore(), DefaultMappings())

	deal := &crm.Deal{ID: 1, Title: "Deal", PipelineID: 1, Status: "deleted"}
	res, err := r.ReconcileDeal(context.Background(), deal)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatalf("deleted deals must not be mirrored, got %+v", res)
	}
	if len(erpFake.creates) != 0 || len(erpFake.writes) != 0 {
		t.Fatal("deleted deals must not touch the ERP")
	}
}

func TestReconcileDealUniqueTitleMatchIncludesArchived(t *testing.T) {
	var sawActiveFilter bool
	erpFake := &fakeERP{searchReadFn: func(model string, conds []erp.Cond) []map[string]any {
		for _, c := range conds {
			if c.Field == "active" && c.Op == "in" {
				sawActiveFilter = true
			}
		}
		return []map[string]any{{"id": float64(55)}}
	}}
	r := newTestReconciler(&fakeCRM{}, erpFake, newFakeIdentityStore(), DefaultMappings())

	deal := &crm.Deal{ID: 1, Title: "Unique deal", PipelineID: 1}
	res, err := r.ReconcileDeal(context.Background(), deal)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created || res.ERPID != 55 {
		t.Fatalf("expected adoption of lead 55, got %+v", res)
	}
	if !sawActiveFilter {
		t.Fatal("lead matching must consider archived leads too")
	}
}

func TestArchiveDeal(t *testing.T) {
	erpFake := &fakeERP{}
	ids := newFakeIdentityStore()
	r := newTestReconciler(&fakeCRM{}, erpFake, ids, DefaultMappings())

	res, err := r.ArchiveDeal(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatal("archiving an unmapped deal should be a no-op")
	}

	if err := ids.Set(context.Background(), TypeDeal, 5, 50); err != nil {
		t.Fatal(err)
	}
	res, err = r.ArchiveDeal(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.ERPID != 50 {
		t.Fatalf("expected archive of lead 50, got %+v", res)
	}
	if len(erpFake.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(erpFake.writes))
	}
	if active, ok := erpFake.writes[0].vals["active"].(bool); !ok || active {
		t.Fatalf("expected active=false write, got %v", erpFake.writes[0].vals)
	}
}
