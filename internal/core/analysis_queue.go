package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"skillscope/internal/domain"
)

// CancelMessage is the well-known error recorded on cancelled jobs. Late
// worker completions detect it and turn into benign no-ops.
const CancelMessage = "cancelled by requester"

// jobIDLen is the truncated length of the hex job identifier.
const jobIDLen = 16

const (
	queueAnalysis   = "analysis"
	queueEnrichment = "enrichment"
)

// nextJobID derives a compact deterministic id from the submission tuple and
// a monotonic counter. A collision would mean the id space is corrupted and
// is treated as fatal by the caller.
func nextJobID(counter uint64, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	h.Write([]byte(strconv.FormatUint(counter, 10)))
	return hex.EncodeToString(h.Sum(nil))[:jobIDLen]
}

// RequestAnalysis submits an analysis job for a skill. Requires an
// authenticated user, the kill-switch on, an existing skill and a stored
// credential. Submission is idempotent: an identical (skill, requester,
// model) job still in flight returns the existing id. A terminal completed
// analysis of the skill with this model by this requester is a conflict.
func (s *Store) RequestAnalysis(caller, skillID string, model domain.AnalysisModel) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(caller); err != nil {
		return "", err
	}
	if _, ok := domain.ParseAnalysisModel(string(model)); !ok {
		return "", fmt.Errorf("%w: unknown model %q", ErrInvalidArgument, model)
	}
	if !s.config.AnalysisEnabled {
		return "", fmt.Errorf("%w: analysis is disabled", ErrPreconditionFailed)
	}
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return "", fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	user, ok := s.users[caller]
	if !ok || user.EncryptedCredential == nil {
		return "", fmt.Errorf("%w: no encrypted credential set; save your credential first", ErrPreconditionFailed)
	}

	// Idempotent re-submission while the previous job is in flight.
	for _, job := range s.jobs {
		if job.SkillID == sk.ID && job.Requester == caller && job.Model == model &&
			(job.Status == domain.JobPending || job.Status == domain.JobProcessing) {
			return job.ID, nil
		}
	}

	modelID := model.ModelID()
	for _, a := range sk.AnalysisHistory {
		if a.ModelUsed == modelID && a.AnalyzedBy == caller {
			return "", fmt.Errorf("%w: skill already analyzed with %s", ErrConflict, modelID)
		}
	}

	return s.enqueueAnalysisLocked(caller, sk.ID, model, *user.EncryptedCredential)
}

// enqueueAnalysisLocked creates a Pending job and appends it to the FIFO.
func (s *Store) enqueueAnalysisLocked(requester, skillID string, model domain.AnalysisModel, credential string) (string, error) {
	s.jobCounter++
	id := nextJobID(s.jobCounter, skillID, requester, string(model))
	if _, clash := s.jobs[id]; clash {
		return "", fmt.Errorf("%w: job id collision for %s", ErrInternal, id)
	}
	now := s.now().UTC()
	s.jobs[id] = &domain.AnalysisJob{
		ID:                  id,
		SkillID:             skillID,
		Requester:           requester,
		Model:               model,
		EncryptedCredential: credential,
		Status:              domain.JobPending,
		CreatedAt:           now,
	}
	s.pendingOrder = append(s.pendingOrder, id)
	s.notifyJob(queueAnalysis, id, skillID, string(domain.JobPending))
	return id, nil
}

// ClaimPendingJobs pops up to limit jobs from the head of the pending FIFO,
// transitions them to Processing and returns worker payloads enriched with a
// snapshot of each skill. Once returned here a job is never returned again.
// An empty queue yields an empty slice, not an error. Worker or admin.
func (s *Store) ClaimPendingJobs(caller string, limit int) ([]domain.PendingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.limits.ClaimBatch {
		limit = s.limits.ClaimBatch
	}

	now := s.now().UTC()
	out := make([]domain.PendingJob, 0, limit)
	for len(s.pendingOrder) > 0 && len(out) < limit {
		id := s.pendingOrder[0]
		s.pendingOrder = s.pendingOrder[1:]
		job, ok := s.jobs[id]
		if !ok || job.Status != domain.JobPending {
			// Cancelled entries are removed from the FIFO eagerly; anything
			// else here indicates a stale reference and is skipped.
			continue
		}
		sk, ok := s.skills[job.SkillID]
		if !ok {
			msg := "skill not found"
			job.Status = domain.JobFailed
			job.ErrorMessage = &msg
			job.CompletedAt = &now
			s.notifyJob(queueAnalysis, job.ID, job.SkillID, string(domain.JobFailed))
			continue
		}

		files := make([]domain.PendingJobFile, 0, len(sk.Files))
		for _, f := range sk.Files {
			files = append(files, domain.PendingJobFile{Path: f.Path, Content: f.Content})
		}
		out = append(out, domain.PendingJob{
			JobID:               job.ID,
			SkillID:             job.SkillID,
			SkillName:           sk.Name,
			SkillDescription:    sk.Description,
			SkillOwner:          sk.Owner,
			SkillRepo:           sk.Repo,
			SkillMdContent:      sk.ContentOrStub(),
			SkillFiles:          files,
			Model:               job.Model.ModelID(),
			EncryptedCredential: job.EncryptedCredential,
		})

		claimedAt := now
		claimedBy := caller
		job.Status = domain.JobProcessing
		job.ClaimedAt = &claimedAt
		job.ClaimedBy = &claimedBy
		s.notifyJob(queueAnalysis, job.ID, job.SkillID, string(domain.JobProcessing))
	}
	return out, nil
}

// SubmitJobResult is the compatibility form of result submission; it leaves
// the TEE worker and prompt versions unset.
func (s *Store) SubmitJobResult(caller, jobID, analysisJSON string) error {
	return s.SubmitJobResultWithMetadata(caller, jobID, analysisJSON, "", "")
}

// SubmitJobResultWithMetadata records a completed analysis: parses the
// worker's JSON, stamps provenance, prepends it to the skill's history, sets
// it as the current analysis and credits the requester. Re-submitting a
// result for a Completed job, or for a job the requester cancelled, is a
// benign no-op. Worker (the claimant) or admin.
func (s *Store) SubmitJobResultWithMetadata(caller, jobID, analysisJSON, teeWorkerVersion, promptVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return err
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}

	switch job.Status {
	case domain.JobCompleted:
		return nil // idempotent retry
	case domain.JobFailed:
		if job.ErrorMessage != nil && *job.ErrorMessage == CancelMessage {
			return nil // completion raced a cancellation
		}
		return fmt.Errorf("%w: job %s already failed", ErrConflict, jobID)
	case domain.JobPending:
		return fmt.Errorf("%w: job %s has not been claimed", ErrConflict, jobID)
	}
	if !s.isAdmin(caller) && (job.ClaimedBy == nil || *job.ClaimedBy != caller) {
		return fmt.Errorf("%w: job %s claimed by another worker", ErrUnauthorized, jobID)
	}

	analysis, err := domain.ParseAnalysisJSON(analysisJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	now := s.now().UTC()
	analysis.AnalyzedAt = now
	analysis.AnalyzedBy = job.Requester
	analysis.ModelUsed = job.Model.ModelID()
	if teeWorkerVersion != "" {
		analysis.TeeWorkerVersion = &teeWorkerVersion
	}
	if promptVersion != "" {
		analysis.PromptVersion = &promptVersion
	}

	sk, ok := s.skills[job.SkillID]
	if !ok {
		return fmt.Errorf("%w: skill %s", ErrNotFound, job.SkillID)
	}

	// History prepend and current-analysis update are one mutation under the
	// lock, so readers never observe one without the other.
	sk.AnalysisHistory = append([]domain.SkillAnalysis{*analysis}, sk.AnalysisHistory...)
	if len(sk.AnalysisHistory) > s.limits.MaxAnalysisHistory {
		sk.AnalysisHistory = sk.AnalysisHistory[:s.limits.MaxAnalysisHistory]
	}
	sk.Analysis = analysis
	sk.UpdatedAt = now

	if user, ok := s.users[job.Requester]; ok {
		user.AnalysesPerformed++
		user.LastActive = now
	}

	job.Status = domain.JobCompleted
	job.CompletedAt = &now
	job.ErrorMessage = nil
	s.bumpGeneration()
	s.notifyJob(queueAnalysis, job.ID, job.SkillID, string(domain.JobCompleted))

	s.cleanupJobsLocked()
	return nil
}

// SubmitJobError marks a Processing job as Failed. Terminal; the core does
// not retry — the user must submit again. Worker (the claimant) or admin.
func (s *Store) SubmitJobError(caller, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return err
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	if job.Status != domain.JobProcessing {
		return fmt.Errorf("%w: job %s is %s, not Processing", ErrConflict, jobID, job.Status)
	}
	if !s.isAdmin(caller) && (job.ClaimedBy == nil || *job.ClaimedBy != caller) {
		return fmt.Errorf("%w: job %s claimed by another worker", ErrUnauthorized, jobID)
	}
	now := s.now().UTC()
	job.Status = domain.JobFailed
	job.ErrorMessage = &message
	job.CompletedAt = &now
	s.notifyJob(queueAnalysis, job.ID, job.SkillID, string(domain.JobFailed))
	return nil
}

// CancelAnalysisJob cancels a Pending or Processing job. Only the original
// requester or an admin may cancel. Cancelling a terminal job is a
// precondition failure.
func (s *Store) CancelAnalysisJob(caller, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(caller); err != nil {
		return err
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	if caller != job.Requester && !s.isAdmin(caller) {
		return fmt.Errorf("%w: only the requester may cancel", ErrUnauthorized)
	}
	if job.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrPreconditionFailed, jobID, job.Status)
	}
	if job.Status == domain.JobPending {
		for i, id := range s.pendingOrder {
			if id == jobID {
				s.pendingOrder = append(s.pendingOrder[:i], s.pendingOrder[i+1:]...)
				break
			}
		}
	}
	now := s.now().UTC()
	msg := CancelMessage
	job.Status = domain.JobFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	s.notifyJob(queueAnalysis, job.ID, job.SkillID, string(domain.JobFailed))
	return nil
}

// GetJobStatus returns a job's status and error message.
func (s *Store) GetJobStatus(jobID string) (domain.JobStatus, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return "", nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return job.Status, job.ErrorMessage, nil
}

// ListAnalysisJobs returns the most recent jobs, newest first.
func (s *Store) ListAnalysisJobs(limit int) []domain.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JobSummary, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, domain.JobSummary{
			JobID:     job.ID,
			SkillID:   job.SkillID,
			Model:     string(job.Model),
			Status:    string(job.Status),
			Requester: job.Requester,
			CreatedAt: job.CreatedAt,
			Error:     job.ErrorMessage,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].JobID < out[j].JobID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PendingJobCount is the size of the pending FIFO.
func (s *Store) PendingJobCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.pendingOrder))
}

// AnalyzedModels returns the distinct model ids across a skill's analysis
// history, used by clients to hide models already used.
func (s *Store) AnalyzedModels(skillID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, a := range sk.AnalysisHistory {
		if _, ok := seen[a.ModelUsed]; ok {
			continue
		}
		seen[a.ModelUsed] = struct{}{}
		out = append(out, a.ModelUsed)
	}
	return out
}

// CleanupJobs runs the terminal-job sweep and reports how many analysis and
// enrichment jobs were removed. Worker or admin.
func (s *Store) CleanupJobs(caller string) (uint64, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return 0, 0, err
	}
	jobsBefore := len(s.jobs)
	enrichBefore := len(s.enrichJobs)
	s.cleanupJobsLocked()
	return uint64(jobsBefore - len(s.jobs)), uint64(enrichBefore - len(s.enrichJobs)), nil
}

// cleanupJobsLocked sweeps terminal jobs past the retention age from both
// queues and bounds the number of retained analysis jobs; enrichment jobs are
// swept by age only. Pending and Processing jobs are never touched.
func (s *Store) cleanupJobsLocked() {
	cutoff := s.now().UTC().Add(-s.limits.JobRetention)

	removed := 0
	for id, job := range s.jobs {
		if job.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	if len(s.jobs) > s.limits.MaxJobsRetained {
		type agedJob struct {
			id string
			at int64
		}
		terminal := make([]agedJob, 0, len(s.jobs))
		for id, job := range s.jobs {
			if job.Terminal() && job.CompletedAt != nil {
				terminal = append(terminal, agedJob{id: id, at: job.CompletedAt.UnixNano()})
			}
		}
		sort.Slice(terminal, func(i, j int) bool { return terminal[i].at < terminal[j].at })
		for i := 0; i < len(terminal) && len(s.jobs) > s.limits.MaxJobsRetained; i++ {
			delete(s.jobs, terminal[i].id)
			removed++
		}
	}
	if removed > 0 {
		s.logf("cleanup removed=%d queue=analysis", removed)
	}

	removed = 0
	for id, job := range s.enrichJobs {
		if job.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.enrichJobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logf("cleanup removed=%d queue=enrichment", removed)
	}

	for key, w := range s.installWindows {
		if w.WindowStart.Before(cutoff) {
			delete(s.installWindows, key)
		}
	}
}
