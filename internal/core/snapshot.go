package core

import (
	"encoding/json"
	"fmt"

	"skillscope/internal/domain"
)

// Region names for the serialized containers. Each is stored and versioned
// independently so schema evolution can migrate one container at a time.
const (
	RegionSkills         = "skills"
	RegionUsers          = "users"
	RegionPrompts        = "prompts"
	RegionConfig         = "config"
	RegionAnalysisJobs   = "analysis_jobs"
	RegionEnrichmentJobs = "enrichment_jobs"
)

// RegionNames lists every container region in save order.
func RegionNames() []string {
	return []string{
		RegionSkills, RegionUsers, RegionPrompts,
		RegionConfig, RegionAnalysisJobs, RegionEnrichmentJobs,
	}
}

type analysisJobsRegion struct {
	Jobs         map[string]*domain.AnalysisJob `json:"jobs"`
	PendingOrder []string                       `json:"pending_order"`
	Counter      uint64                         `json:"counter"`
}

type enrichmentJobsRegion struct {
	Jobs         map[string]*domain.EnrichmentJob `json:"jobs"`
	PendingOrder []string                         `json:"pending_order"`
	Counter      uint64                           `json:"counter"`
}

// MarshalSnapshot serializes every container to its region payload. The
// output is deterministic for a given state (maps marshal with sorted keys).
func (s *Store) MarshalSnapshot() (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage, 6)
	put := func(name string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal region %s: %w", name, err)
		}
		out[name] = b
		return nil
	}

	if err := put(RegionSkills, s.skills); err != nil {
		return nil, err
	}
	if err := put(RegionUsers, s.users); err != nil {
		return nil, err
	}
	if err := put(RegionPrompts, s.prompts); err != nil {
		return nil, err
	}
	if err := put(RegionConfig, s.config); err != nil {
		return nil, err
	}
	if err := put(RegionAnalysisJobs, analysisJobsRegion{
		Jobs:         s.jobs,
		PendingOrder: s.pendingOrder,
		Counter:      s.jobCounter,
	}); err != nil {
		return nil, err
	}
	if err := put(RegionEnrichmentJobs, enrichmentJobsRegion{
		Jobs:         s.enrichJobs,
		PendingOrder: s.enrichPending,
		Counter:      s.enrichCounter,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// RestoreSnapshot replaces the store's state with the given region payloads.
// Missing regions keep their freshly initialized state. The default prompt
// template is refreshed to this build's copy, matching upgrade behavior.
func (s *Store) RestoreSnapshot(regions map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := regions[RegionSkills]; ok {
		skills := make(map[string]*domain.Skill)
		if err := json.Unmarshal(raw, &skills); err != nil {
			return fmt.Errorf("%w: restore skills: %v", ErrInternal, err)
		}
		s.skills = skills
	}
	if raw, ok := regions[RegionUsers]; ok {
		users := make(map[string]*domain.UserProfile)
		if err := json.Unmarshal(raw, &users); err != nil {
			return fmt.Errorf("%w: restore users: %v", ErrInternal, err)
		}
		s.users = users
	}
	if raw, ok := regions[RegionPrompts]; ok {
		prompts := make(map[string]*domain.AnalysisPrompt)
		if err := json.Unmarshal(raw, &prompts); err != nil {
			return fmt.Errorf("%w: restore prompts: %v", ErrInternal, err)
		}
		s.prompts = prompts
	}
	if raw, ok := regions[RegionConfig]; ok {
		var cfg globalConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("%w: restore config: %v", ErrInternal, err)
		}
		s.config = cfg
	}
	if raw, ok := regions[RegionAnalysisJobs]; ok {
		var region analysisJobsRegion
		if err := json.Unmarshal(raw, &region); err != nil {
			return fmt.Errorf("%w: restore analysis jobs: %v", ErrInternal, err)
		}
		if region.Jobs == nil {
			region.Jobs = make(map[string]*domain.AnalysisJob)
		}
		s.jobs = region.Jobs
		s.pendingOrder = prunePending(region.PendingOrder, func(id string) bool {
			j, ok := region.Jobs[id]
			return ok && j.Status == domain.JobPending
		})
		s.jobCounter = region.Counter
	}
	if raw, ok := regions[RegionEnrichmentJobs]; ok {
		var region enrichmentJobsRegion
		if err := json.Unmarshal(raw, &region); err != nil {
			return fmt.Errorf("%w: restore enrichment jobs: %v", ErrInternal, err)
		}
		if region.Jobs == nil {
			region.Jobs = make(map[string]*domain.EnrichmentJob)
		}
		s.enrichJobs = region.Jobs
		s.enrichPending = prunePending(region.PendingOrder, func(id string) bool {
			j, ok := region.Jobs[id]
			return ok && j.Status == domain.EnrichPending
		})
		s.enrichCounter = region.Counter
	}

	if p, ok := s.prompts[domain.DefaultPromptID]; ok {
		p.PromptTemplate = domain.DefaultPromptTemplate
		p.Version = domain.DefaultPromptVersion
	}
	s.bumpGeneration()
	return nil
}

// prunePending drops FIFO references that no longer point at Pending jobs,
// preserving order.
func prunePending(order []string, keep func(string) bool) []string {
	out := make([]string, 0, len(order))
	for _, id := range order {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
