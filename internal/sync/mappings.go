package sync

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crmbridge_backend/internal/discovery"
)

// Mappings is the immutable translation table between CRM identifiers
// and ERP identifiers: pipelines to sales teams, stages, owners, and the
// domain-discovery TLD table. Loaded once at startup; never mutated.
type Mappings struct {
	// PipelineTeams maps a CRM pipeline id to an ERP sales team id.
	// Pipelines absent from the map are out of scope.
	PipelineTeams map[int64]int64 `yaml:"pipeline_teams"`

	// TriggerOnlyPipelines lists pipelines whose deals fire stage
	// triggers but are never mirrored into the ERP.
	TriggerOnlyPipelines []int64 `yaml:"trigger_only_pipelines"`

	// StageMap maps CRM stage ids to ERP stage ids.
	StageMap map[int64]int64 `yaml:"stage_map"`

	// WonStageID and LostStageID override the stage for closed deals.
	WonStageID  int64 `yaml:"won_stage_id"`
	LostStageID int64 `yaml:"lost_stage_id"`

	// OwnerMap maps CRM user ids to ERP user ids.
	OwnerMap map[int64]int64 `yaml:"owner_map"`

	// AllowedOwners restricts which CRM users' records are synced. An
	// empty list allows everyone.
	AllowedOwners []int64 `yaml:"allowed_owners"`

	// RegionTLDs overrides the domain-discovery TLD table per region.
	RegionTLDs map[string][]string `yaml:"region_tlds"`

	// ICPTitles narrows people search by job title, per market locale.
	ICPTitles map[string][]string `yaml:"icp_titles"`

	allowedOwnerSet map[int64]struct{}
	triggerOnlySet  map[int64]struct{}
}

// DefaultMappings returns the compiled-in table used when no mappings
// file is configured.
func DefaultMappings() *Mappings {
	m := &Mappings{
		PipelineTeams: map[int64]int64{
			1:  1,
			5:  4,
			12: 9,
		},
		TriggerOnlyPipelines: []int64{14},
		StageMap: map[int64]int64{
			1:  1,
			2:  2,
			3:  3,
			37: 4,
			68: 5,
		},
		WonStageID:  7,
		LostStageID: 9,
		OwnerMap:    map[int64]int64{},
		ICPTitles: map[string][]string{
			"de_DE": {"CISO", "IT-Leiter", "Geschäftsführer", "CTO"},
			"en_US": {"CISO", "IT Manager", "IT Director", "CTO", "CEO"},
		},
	}
	m.index()
	return m
}

// LoadMappings reads the table from a YAML file. Fields missing from
// the file keep their default values.
func LoadMappings(path string) (*Mappings, error) {
	m := DefaultMappings()
	if path == "" {
		return m, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("parse mappings file: %w", err)
	}
	m.index()
	return m, nil
}

func (m *Mappings) index() {
	m.allowedOwnerSet = make(map[int64]struct{}, len(m.AllowedOwners))
	for _, id := range m.AllowedOwners {
		m.allowedOwnerSet[id] = struct{}{}
	}
	m.triggerOnlySet = make(map[int64]struct{}, len(m.TriggerOnlyPipelines))
	for _, id := range m.TriggerOnlyPipelines {
		m.triggerOnlySet[id] = struct{}{}
	}
}

// TeamForPipeline returns the ERP sales team for a pipeline, and whether
// the pipeline is in scope at all.
func (m *Mappings) TeamForPipeline(pipelineID int64) (int64, bool) {
	team, ok := m.PipelineTeams[pipelineID]
	return team, ok
}

// TriggerOnly reports whether the pipeline fires triggers without ERP sync.
func (m *Mappings) TriggerOnly(pipelineID int64) bool {
	_, ok := m.triggerOnlySet[pipelineID]
	return ok
}

// StageFor translates a deal's stage, with won/lost status overriding
// the stage map.
func (m *Mappings) StageFor(stageID int64, status string) (int64, bool) {
	switch status {
	case "won":
		return m.WonStageID, m.WonStageID > 0
	case "lost":
		return m.LostStageID, m.LostStageID > 0
	}
	erpStage, ok := m.StageMap[stageID]
	return erpStage, ok
}

// UserForOwner translates a CRM user id to an ERP user id.
func (m *Mappings) UserForOwner(crmUserID int64) (int64, bool) {
	erpUser, ok := m.OwnerMap[crmUserID]
	return erpUser, ok
}

// OwnerAllowed reports whether records owned by the given CRM user are
// synced. Trigger-only pipelines bypass the owner filter: their deals
// only fire enrichment and never reach the ERP.
func (m *Mappings) OwnerAllowed(ownerID, pipelineID int64) bool {
	if len(m.allowedOwnerSet) == 0 {
		return true
	}
	if m.TriggerOnly(pipelineID) {
		return true
	}
	_, ok := m.allowedOwnerSet[ownerID]
	return ok
}

// TLDTable converts the configured region TLD overrides into the
// discovery package's typed map. Nil when unconfigured.
func (m *Mappings) TLDTable() map[discovery.Region][]string {
	if len(m.RegionTLDs) == 0 {
		return nil
	}
	out := make(map[discovery.Region][]string, len(m.RegionTLDs))
	for region, tlds := range m.RegionTLDs {
		out[discovery.Region(region)] = tlds
	}
	return out
}

// TitlesForLocale returns the ICP title filter for a locale, falling
// back to the en_US list.
func (m *Mappings) TitlesForLocale(locale string) []string {
	if titles, ok := m.ICPTitles[locale]; ok {
		return titles
	}
	return m.ICPTitles["en_US"]
}
