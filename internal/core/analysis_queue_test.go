package core

import (
	"errors"
	"testing"

	"skillscope/internal/domain"
)

func requestJob(t *testing.T, s *Store, user, skillID string) string {
	t.Helper()
	jobID, err := s.RequestAnalysis(user, skillID, domain.ModelHaiku)
	if err != nil {
		t.Fatalf("request analysis: %v", err)
	}
	return jobID
}

func TestSubmitClaimComplete(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "vercel/agent-skills")
	mustSetCredential(t, s, testUser)

	jobID := requestJob(t, s, testUser, "vercel/agent-skills")

	jobs, err := s.ClaimPendingJobs(testWorker, 5)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != jobID {
		t.Fatalf("unexpected claim result: %+v", jobs)
	}
	if jobs[0].EncryptedCredential != testCredential {
		t.Fatalf("credential not included in claim payload")
	}
	if jobs[0].SkillName != "agent-skills" || jobs[0].SkillMdContent == "" {
		t.Fatalf("skill snapshot missing: %+v", jobs[0])
	}

	err = s.SubmitJobResultWithMetadata(testWorker, jobID, minimalAnalysisJSON, "1.9.5", "v2")
	if err != nil {
		t.Fatalf("submit result: %v", err)
	}

	status, errMsg, err := s.GetJobStatus(jobID)
	if err != nil || status != domain.JobCompleted || errMsg != nil {
		t.Fatalf("status = %v, %v, %v", status, errMsg, err)
	}

	sk, err := s.GetSkill("vercel/agent-skills")
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if sk.Analysis == nil {
		t.Fatalf("analysis not set")
	}
	if sk.Analysis.AnalyzedBy != testUser {
		t.Fatalf("analyzed_by = %q, want requester", sk.Analysis.AnalyzedBy)
	}
	if sk.Analysis.TeeWorkerVersion == nil || *sk.Analysis.TeeWorkerVersion != "1.9.5" {
		t.Fatalf("tee_worker_version not stamped")
	}
	if sk.Analysis.PromptVersion == nil || *sk.Analysis.PromptVersion != "v2" {
		t.Fatalf("prompt_version not stamped")
	}
	if len(sk.AnalysisHistory) != 1 || sk.AnalysisHistory[0].AnalyzedAt != sk.Analysis.AnalyzedAt {
		t.Fatalf("history[0] does not match current analysis")
	}

	profile := s.MyProfile(testUser)
	if profile == nil || profile.AnalysesPerformed != 1 {
		t.Fatalf("analyses_performed not incremented: %+v", profile)
	}
}

func TestRequestAnalysisPreconditions(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	if _, err := s.RequestAnalysis("", "o/r", domain.ModelHaiku); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous: %v", err)
	}
	if _, err := s.RequestAnalysis(testUser, "o/missing", domain.ModelHaiku); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown skill: %v", err)
	}
	if _, err := s.RequestAnalysis(testUser, "o/r", domain.AnalysisModel("GPT")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown model: %v", err)
	}
	if _, err := s.RequestAnalysis("user-nocred", "o/r", domain.ModelHaiku); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("no credential: %v", err)
	}

	if err := s.SetAnalysisEnabled(testAdmin, false); err != nil {
		t.Fatalf("kill switch: %v", err)
	}
	if _, err := s.RequestAnalysis(testUser, "o/r", domain.ModelHaiku); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("kill switch off: %v", err)
	}
	if err := s.SetAnalysisEnabled(testAdmin, true); err != nil {
		t.Fatalf("kill switch on: %v", err)
	}
	if _, err := s.RequestAnalysis(testUser, "o/r", domain.ModelHaiku); err != nil {
		t.Fatalf("after re-enable: %v", err)
	}
}

func TestSubmissionIdempotence(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	j1 := requestJob(t, s, testUser, "o/r")
	j2 := requestJob(t, s, testUser, "o/r")
	if j1 != j2 {
		t.Fatalf("pending re-submit returned new id: %s vs %s", j1, j2)
	}

	if _, err := s.ClaimPendingJobs(testWorker, 10); err != nil {
		t.Fatalf("claim: %v", err)
	}
	j3 := requestJob(t, s, testUser, "o/r")
	if j3 != j1 {
		t.Fatalf("processing re-submit returned new id: %s vs %s", j3, j1)
	}

	if err := s.SubmitJobResult(testWorker, j1, minimalAnalysisJSON); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Terminal completed analysis with the same model by the same requester
	// is now a conflict, not a fresh job.
	if _, err := s.RequestAnalysis(testUser, "o/r", domain.ModelHaiku); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict after completion, got %v", err)
	}

	// A different model still works.
	if _, err := s.RequestAnalysis(testUser, "o/r", domain.ModelOpus); err != nil {
		t.Fatalf("different model: %v", err)
	}
}

func TestFIFOAcrossUsers(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/s1")
	mustAddSkill(t, s, "o/s2")
	mustSetCredential(t, s, "user-a")
	mustSetCredential(t, s, "user-b")

	ja := requestJob(t, s, "user-a", "o/s1")
	jb := requestJob(t, s, "user-b", "o/s2")

	jobs, err := s.ClaimPendingJobs(testWorker, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(jobs) != 2 || jobs[0].JobID != ja || jobs[1].JobID != jb {
		t.Fatalf("claim order wrong: %+v", jobs)
	}
}

func TestClaimAtMostOnce(t *testing.T) {
	s := newTestStore(t)
	mustSetCredential(t, s, testUser)

	created := make(map[string]bool)
	for i := 0; i < 7; i++ {
		id := "o/skill-" + string(rune('a'+i))
		mustAddSkill(t, s, id)
		created[requestJob(t, s, testUser, id)] = true
	}

	seen := make(map[string]bool)
	for {
		jobs, err := s.ClaimPendingJobs(testWorker, 3)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if len(jobs) == 0 {
			break
		}
		for _, j := range jobs {
			if seen[j.JobID] {
				t.Fatalf("job %s claimed twice", j.JobID)
			}
			seen[j.JobID] = true
		}
	}
	if len(seen) != len(created) {
		t.Fatalf("claimed %d jobs, created %d", len(seen), len(created))
	}
	for id := range created {
		if !seen[id] {
			t.Fatalf("job %s never claimed", id)
		}
	}
}

func TestClaimEmptyQueue(t *testing.T) {
	s := newTestStore(t)
	jobs, err := s.ClaimPendingJobs(testWorker, 5)
	if err != nil {
		t.Fatalf("empty claim should be ok, got %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty slice, got %+v", jobs)
	}

	if _, err := s.ClaimPendingJobs(testUser, 5); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-worker claim: %v", err)
	}
}

func TestHistoryMonotonicity(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, "user-a")
	mustSetCredential(t, s, "user-b")

	j1 := requestJob(t, s, "user-a", "o/r")
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.SubmitJobResult(testWorker, j1, minimalAnalysisJSON); err != nil {
		t.Fatalf("complete j1: %v", err)
	}
	first := s.GetAnalysisHistory("o/r")[0]

	j2 := requestJob(t, s, "user-b", "o/r")
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.SubmitJobResult(testWorker, j2, analysisJSONWithCategory("ai")); err != nil {
		t.Fatalf("complete j2: %v", err)
	}

	history := s.GetAnalysisHistory("o/r")
	if len(history) != 2 {
		t.Fatalf("history length = %d", len(history))
	}
	if history[0].PrimaryCategory != "ai" {
		t.Fatalf("newest entry not first")
	}
	if history[1].AnalyzedAt != first.AnalyzedAt || history[1].PrimaryCategory != first.PrimaryCategory {
		t.Fatalf("older entry mutated")
	}

	sk, _ := s.GetSkill("o/r")
	if sk.Analysis.PrimaryCategory != "ai" {
		t.Fatalf("current analysis is not the newest completion")
	}
}

func TestHistoryCapEviction(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxAnalysisHistory = 3
	s := newTestStore(t, WithLimits(limits))
	mustAddSkill(t, s, "o/r")

	for i := 0; i < 5; i++ {
		user := "user-" + string(rune('a'+i))
		mustSetCredential(t, s, user)
		jobID := requestJob(t, s, user, "o/r")
		if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := s.SubmitJobResult(testWorker, jobID, minimalAnalysisJSON); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	history := s.GetAnalysisHistory("o/r")
	if len(history) != 3 {
		t.Fatalf("history not capped: %d", len(history))
	}
}

func TestCompletionIdempotenceAndCancellationRace(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	jobID := requestJob(t, s, testUser, "o/r")
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := s.CancelAnalysisJob(testUser, jobID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	status, errMsg, _ := s.GetJobStatus(jobID)
	if status != domain.JobFailed || errMsg == nil || *errMsg != CancelMessage {
		t.Fatalf("cancelled status = %v, %v", status, errMsg)
	}

	// Late worker completion is a benign no-op.
	if err := s.SubmitJobResultWithMetadata(testWorker, jobID, minimalAnalysisJSON, "1.0", "v1"); err != nil {
		t.Fatalf("late completion should be no-op, got %v", err)
	}
	status, errMsg, _ = s.GetJobStatus(jobID)
	if status != domain.JobFailed || *errMsg != CancelMessage {
		t.Fatalf("late completion mutated job: %v, %v", status, errMsg)
	}
	if history := s.GetAnalysisHistory("o/r"); len(history) != 0 {
		t.Fatalf("cancelled job touched history")
	}

	// Completed jobs accept retries silently.
	j2 := requestJob(t, s, testUser, "o/r")
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.SubmitJobResult(testWorker, j2, minimalAnalysisJSON); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.SubmitJobResult(testWorker, j2, minimalAnalysisJSON); err != nil {
		t.Fatalf("retry should be no-op, got %v", err)
	}
	if history := s.GetAnalysisHistory("o/r"); len(history) != 1 {
		t.Fatalf("retry double-appended history: %d entries", len(history))
	}
}

func TestCancelPendingRemovesFromFIFO(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/s1")
	mustAddSkill(t, s, "o/s2")
	mustSetCredential(t, s, testUser)

	j1 := requestJob(t, s, testUser, "o/s1")
	j2 := requestJob(t, s, testUser, "o/s2")

	if err := s.CancelAnalysisJob(testUser, j1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := s.PendingJobCount(); got != 1 {
		t.Fatalf("pending count = %d", got)
	}

	jobs, err := s.ClaimPendingJobs(testWorker, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != j2 {
		t.Fatalf("cancelled job still claimable: %+v", jobs)
	}

	// Only the requester or an admin may cancel; terminal cancels fail.
	if err := s.CancelAnalysisJob("someone-else", j2); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign cancel: %v", err)
	}
	if err := s.CancelAnalysisJob(testUser, j1); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("double cancel: %v", err)
	}
}

func TestSubmitJobErrorPath(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	jobID := requestJob(t, s, testUser, "o/r")

	// Failing an unclaimed job is a conflict.
	if err := s.SubmitJobError(testWorker, jobID, "boom"); !errors.Is(err, ErrConflict) {
		t.Fatalf("fail pending: %v", err)
	}
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Another worker cannot fail someone else's claim, but an admin can
	// complete or fail any claim.
	if err := s.AddWorker(testAdmin, "worker-2"); err != nil {
		t.Fatalf("add worker-2: %v", err)
	}
	if err := s.SubmitJobError("worker-2", jobID, "boom"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign fail: %v", err)
	}

	if err := s.SubmitJobError(testWorker, jobID, "upstream timeout"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	status, errMsg, _ := s.GetJobStatus(jobID)
	if status != domain.JobFailed || errMsg == nil || *errMsg != "upstream timeout" {
		t.Fatalf("status = %v, %v", status, errMsg)
	}

	// Failed jobs reject result submission.
	if err := s.SubmitJobResult(testWorker, jobID, minimalAnalysisJSON); !errors.Is(err, ErrConflict) {
		t.Fatalf("submit to failed job: %v", err)
	}
}

func TestSubmitMalformedAnalysis(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	jobID := requestJob(t, s, testUser, "o/r")
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := s.SubmitJobResult(testWorker, jobID, "not json at all"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("malformed json: %v", err)
	}
	// The job stays Processing so the worker can retry with a fixed payload.
	status, _, _ := s.GetJobStatus(jobID)
	if status != domain.JobProcessing {
		t.Fatalf("job left Processing after bad payload: %v", status)
	}
}

func TestAnalyzedModels(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	jobID := requestJob(t, s, testUser, "o/r")
	if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.SubmitJobResult(testWorker, jobID, minimalAnalysisJSON); err != nil {
		t.Fatalf("complete: %v", err)
	}

	models := s.AnalyzedModels("o/r")
	if len(models) != 1 || models[0] != domain.ModelHaiku.ModelID() {
		t.Fatalf("analyzed models = %v", models)
	}
}
