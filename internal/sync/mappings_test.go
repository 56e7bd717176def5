package sync

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMappingsFromYAML(t *testing.T) {
	raw := `
pipeline_teams:
  3: 11
  8: 12
trigger_only_pipelines: [14]
stage_map:
  40: 2
won_stage_id: 7
lost_stage_id: 9
owner_map:
  100: 5
allowed_owners: [100, 101]
region_tlds:
  uk: [".co.uk", ".com"]
icp_titles:
  de_DE: ["CISO"]
`
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMappings(path)
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}

	if team, ok := m.TeamForPipeline(3); !ok || team != 11 {
		t.Fatalf("TeamForPipeline(3) = %d, %v", team, ok)
	}
	if _, ok := m.TeamForPipeline(99); ok {
		t.Fatal("expected pipeline 99 to be out of scope")
	}
	if !m.TriggerOnly(14) {
		t.Fatal("expected pipeline 14 to be trigger-only")
	}
	if stage, ok := m.StageFor(40, "open"); !ok || stage != 2 {
		t.Fatalf("StageFor(40, open) = %d, %v", stage, ok)
	}
	if stage, _ := m.StageFor(40, "won"); stage != 7 {
		t.Fatalf("won deal should map to won stage, got %d", stage)
	}
	if stage, _ := m.StageFor(40, "lost"); stage != 9 {
		t.Fatalf("lost deal should map to lost stage, got %d", stage)
	}
	if user, ok := m.UserForOwner(100); !ok || user != 5 {
		t.Fatalf("UserForOwner(100) = %d, %v", user, ok)
	}
	if tlds := m.TLDTable(); len(tlds) != 1 {
		t.Fatalf("expected one region override, got %d", len(tlds))
	}
	if titles := m.TitlesForLocale("de_DE"); len(titles) != 1 || titles[0] != "CISO" {
		t.Fatalf("unexpected de_DE titles: %v", titles)
	}
}

func TestOwnerAllowed(t *testing.T) {
	m := DefaultMappings()
	m.AllowedOwners = []int64{100}
	m.TriggerOnlyPipelines = []int64{14}
	m.index()

	if !m.OwnerAllowed(100, 1) {
		t.Fatal("listed owner should be allowed")
	}
	if m.OwnerAllowed(200, 1) {
		t.Fatal("unlisted owner should be rejected")
	}
	if !m.OwnerAllowed(200, 14) {
		t.Fatal("trigger-only pipeline should bypass the owner filter")
	}
}

func TestOwnerAllowedEmptyListAllowsEveryone(t *testing.T) {
	m := DefaultMappings()
	if !m.OwnerAllowed(12345, 1) {
		t.Fatal("empty allow list should allow every owner")
	}
}

func TestLoadMappingsWithoutFileUsesDefaults(t *testing.T) {
	m, err := LoadMappings("")
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}
	if stage, ok := m.StageFor(1, "won"); !ok || stage != 7 {
		t.Fatalf("default won stage = %d, %v", stage, ok)
	}
}
