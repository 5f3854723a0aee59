package persist

import (
	"encoding/json"
	"fmt"
	"sort"

	"skillscope/internal/core"
	"skillscope/internal/domain"
)

// Migration upgrades one region payload from FromVersion to FromVersion+1.
type Migration struct {
	Region      string
	FromVersion int
	Upgrade     func(payload []byte) ([]byte, error)
}

// Registry holds the current version per region and the ordered migration
// chain that brings stored payloads up to it.
type Registry struct {
	current    map[string]int
	migrations map[string][]Migration
}

func NewRegistry() *Registry {
	return &Registry{
		current:    make(map[string]int),
		migrations: make(map[string][]Migration),
	}
}

// SetCurrentVersion declares the version new snapshots of a region carry.
func (r *Registry) SetCurrentVersion(region string, version int) {
	r.current[region] = version
}

// CurrentVersion defaults to 1 for undeclared regions.
func (r *Registry) CurrentVersion(region string) int {
	if v, ok := r.current[region]; ok {
		return v
	}
	return 1
}

// Register adds a migration step. Steps run in FromVersion order.
func (r *Registry) Register(m Migration) {
	r.migrations[m.Region] = append(r.migrations[m.Region], m)
	sort.Slice(r.migrations[m.Region], func(i, j int) bool {
		return r.migrations[m.Region][i].FromVersion < r.migrations[m.Region][j].FromVersion
	})
}

// Apply runs the migration chain from the stored version to the current one.
// A gap in the chain is an error: there is no safe way to skip a step.
func (r *Registry) Apply(region string, storedVersion int, payload []byte) (json.RawMessage, error) {
	target := r.CurrentVersion(region)
	if storedVersion > target {
		return nil, fmt.Errorf("stored version %d is newer than supported %d", storedVersion, target)
	}
	for storedVersion < target {
		step, ok := r.find(region, storedVersion)
		if !ok {
			return nil, fmt.Errorf("no migration from version %d", storedVersion)
		}
		var err error
		payload, err = step.Upgrade(payload)
		if err != nil {
			return nil, fmt.Errorf("upgrade from v%d: %w", storedVersion, err)
		}
		storedVersion++
	}
	return payload, nil
}

func (r *Registry) find(region string, fromVersion int) (Migration, bool) {
	for _, m := range r.migrations[region] {
		if m.FromVersion == fromVersion {
			return m, true
		}
	}
	return Migration{}, false
}

// Current region schema versions. The skills region is at 2: version 1
// predates per-skill analysis history.
const (
	skillsRegionVersion = 2
)

// DefaultRegistry returns the registry with this build's versions and
// migration chain.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.SetCurrentVersion(core.RegionSkills, skillsRegionVersion)
	r.Register(Migration{
		Region:      core.RegionSkills,
		FromVersion: 1,
		Upgrade:     migrateSkillsV1,
	})
	return r
}

// migrateSkillsV1 seeds each skill's analysis history from its current
// analysis, which version 1 snapshots did not track.
func migrateSkillsV1(payload []byte) ([]byte, error) {
	skills := make(map[string]*domain.Skill)
	if err := json.Unmarshal(payload, &skills); err != nil {
		return nil, err
	}
	for _, sk := range skills {
		if sk.Analysis != nil && len(sk.AnalysisHistory) == 0 {
			sk.AnalysisHistory = []domain.SkillAnalysis{*sk.Analysis}
		}
		if sk.FileHistory == nil {
			sk.FileHistory = []domain.SkillFileVersion{}
		}
	}
	return json.Marshal(skills)
}
