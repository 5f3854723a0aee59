package core

import (
	"reflect"
	"testing"

	"skillscope/internal/domain"
)

// buildPopulatedStore exercises every container before snapshotting.
func buildPopulatedStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	seedQuerySkills(t, s)
	mustSetCredential(t, s, testUser)

	// Two pending jobs on top of the completed ones from the seed corpus.
	requestJob(t, s, testUser, "alice/beta")
	requestJob(t, s, testUser, "bob/gamma")

	// An in-flight enrichment and a custom prompt.
	if _, err := s.RequestEnrichment(testUser, "bob/gamma", false); err != nil {
		t.Fatalf("request enrichment: %v", err)
	}
	if _, err := s.CreatePrompt(testAdmin, "alt", "2.0.0", "alt template", "alt"); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := buildPopulatedStore(t)

	regions, err := s.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, name := range RegionNames() {
		if _, ok := regions[name]; !ok {
			t.Fatalf("region %s missing from snapshot", name)
		}
	}

	restored := newTestStore(t)
	if err := restored.RestoreSnapshot(regions); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// Indistinguishable by queries.
	if !reflect.DeepEqual(s.ListSkills(), restored.ListSkills()) {
		t.Fatalf("skills differ after round-trip")
	}
	if s.PendingJobCount() != restored.PendingJobCount() {
		t.Fatalf("pending counts differ")
	}
	if s.PendingEnrichmentCount() != restored.PendingEnrichmentCount() {
		t.Fatalf("pending enrichment counts differ")
	}
	if !reflect.DeepEqual(s.ListAnalysisJobs(100), restored.ListAnalysisJobs(100)) {
		t.Fatalf("jobs differ after round-trip")
	}
	a1, b1, c1, d1 := s.GetStats()
	a2, b2, c2, d2 := restored.GetStats()
	if a1 != a2 || b1 != b2 || c1 != c2 || d1 != d2 {
		t.Fatalf("stats differ after round-trip")
	}
	p1, _ := s.GetDefaultPrompt()
	p2, _ := restored.GetDefaultPrompt()
	if p1.ID != p2.ID {
		t.Fatalf("default prompt differs")
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	s := buildPopulatedStore(t)
	first, err := s.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := s.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal again: %v", err)
	}
	for name := range first {
		if string(first[name]) != string(second[name]) {
			t.Fatalf("region %s serialization not deterministic", name)
		}
	}
}

func TestRestorePrunesStaleFIFOEntries(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)
	jobID := requestJob(t, s, testUser, "o/r")

	regions, err := s.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Append a FIFO reference to a job that does not exist in the snapshot.
	var region analysisJobsRegion
	mustUnmarshal(t, regions[RegionAnalysisJobs], &region)
	region.PendingOrder = append(region.PendingOrder, "missing-job")
	regions[RegionAnalysisJobs] = mustMarshal(t, region)

	restored := newTestStore(t)
	if err := restored.RestoreSnapshot(regions); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n := restored.PendingJobCount(); n != 1 {
		t.Fatalf("pending after restore = %d, want 1", n)
	}
	jobs, err := restored.ClaimPendingJobs(testWorker, 10)
	if err != nil || len(jobs) != 1 || jobs[0].JobID != jobID {
		t.Fatalf("restored claim: %v %+v", err, jobs)
	}
	if n := restored.PendingJobCount(); n != 0 {
		t.Fatalf("pending after claim = %d", n)
	}
}

func TestRestoreRefreshesDefaultPromptTemplate(t *testing.T) {
	s := newTestStore(t)
	regions, err := s.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Tamper with the stored template to simulate an older deployment.
	var prompts map[string]*domain.AnalysisPrompt
	mustUnmarshal(t, regions[RegionPrompts], &prompts)
	prompts[domain.DefaultPromptID].PromptTemplate = "stale template"
	prompts[domain.DefaultPromptID].Version = "0.9.0"
	regions[RegionPrompts] = mustMarshal(t, prompts)

	restored := newTestStore(t)
	if err := restored.RestoreSnapshot(regions); err != nil {
		t.Fatalf("restore: %v", err)
	}
	p, err := restored.GetDefaultPrompt()
	if err != nil {
		t.Fatalf("default prompt: %v", err)
	}
	if p.PromptTemplate != domain.DefaultPromptTemplate || p.Version != domain.DefaultPromptVersion {
		t.Fatalf("default template not refreshed on restore")
	}
}
