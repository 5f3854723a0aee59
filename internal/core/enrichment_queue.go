package core

import (
	"fmt"
	"sort"

	"skillscope/internal/domain"
)

// RequestEnrichment submits a job to fetch a skill's file contents from the
// source host. Submission is idempotent per skill: an in-flight enrichment
// for the same skill returns the existing id. auto_analyze requires a stored
// credential, since the chained analysis job will need it.
func (s *Store) RequestEnrichment(caller, skillID string, autoAnalyze bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(caller); err != nil {
		return "", err
	}
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return "", fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	for _, job := range s.enrichJobs {
		if job.SkillID == sk.ID &&
			(job.Status == domain.EnrichPending || job.Status == domain.EnrichProcessing) {
			return job.ID, nil
		}
	}
	if autoAnalyze {
		user, ok := s.users[caller]
		if !ok || user.EncryptedCredential == nil {
			return "", fmt.Errorf("%w: auto-analyze requires an encrypted credential; save your credential first", ErrPreconditionFailed)
		}
	}
	return s.enqueueEnrichmentLocked(caller, sk, autoAnalyze)
}

func (s *Store) enqueueEnrichmentLocked(requester string, sk *domain.Skill, autoAnalyze bool) (string, error) {
	s.enrichCounter++
	id := nextJobID(s.enrichCounter, "enrich", sk.ID, requester)
	if _, clash := s.enrichJobs[id]; clash {
		return "", fmt.Errorf("%w: enrichment job id collision for %s", ErrInternal, id)
	}
	now := s.now().UTC()
	s.enrichJobs[id] = &domain.EnrichmentJob{
		ID:          id,
		SkillID:     sk.ID,
		Owner:       sk.Owner,
		Repo:        sk.Repo,
		Name:        sk.Name,
		Requester:   requester,
		AutoAnalyze: autoAnalyze,
		Status:      domain.EnrichPending,
		CreatedAt:   now,
	}
	s.enrichPending = append(s.enrichPending, id)
	s.notifyJob(queueEnrichment, id, sk.ID, string(domain.EnrichPending))
	return id, nil
}

// QueueEnrichmentBatch enqueues enrichment for up to limit skills that are
// missing SKILL.md content and have no enrichment in flight. Returns
// (queued, total_missing). Admin only.
func (s *Store) QueueEnrichmentBatch(caller string, limit int, autoAnalyze bool) (uint32, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return 0, 0, err
	}

	inFlight := make(map[string]struct{})
	for _, job := range s.enrichJobs {
		if job.Status == domain.EnrichPending || job.Status == domain.EnrichProcessing {
			inFlight[job.SkillID] = struct{}{}
		}
	}

	var totalMissing uint32
	candidates := make([]*domain.Skill, 0)
	for _, sk := range s.skills {
		if sk.SkillMdContent != nil {
			continue
		}
		totalMissing++
		if _, busy := inFlight[sk.ID]; !busy {
			candidates = append(candidates, sk)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var queued uint32
	for _, sk := range candidates {
		if _, err := s.enqueueEnrichmentLocked(caller, sk, autoAnalyze); err != nil {
			return queued, totalMissing, err
		}
		queued++
	}
	return queued, totalMissing, nil
}

// ClaimEnrichmentJobs pops up to limit jobs from the head of the enrichment
// FIFO and transitions them to Processing. Claim semantics mirror the
// analysis queue. Worker or admin.
func (s *Store) ClaimEnrichmentJobs(caller string, limit int) ([]domain.PendingEnrichmentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.limits.ClaimBatch {
		limit = s.limits.ClaimBatch
	}

	now := s.now().UTC()
	out := make([]domain.PendingEnrichmentJob, 0, limit)
	for len(s.enrichPending) > 0 && len(out) < limit {
		id := s.enrichPending[0]
		s.enrichPending = s.enrichPending[1:]
		job, ok := s.enrichJobs[id]
		if !ok || job.Status != domain.EnrichPending {
			continue
		}
		out = append(out, domain.PendingEnrichmentJob{
			JobID:       job.ID,
			SkillID:     job.SkillID,
			Owner:       job.Owner,
			Repo:        job.Repo,
			Name:        job.Name,
			AutoAnalyze: job.AutoAnalyze,
		})
		claimedAt := now
		claimedBy := caller
		job.Status = domain.EnrichProcessing
		job.ClaimedAt = &claimedAt
		job.ClaimedBy = &claimedBy
		s.notifyJob(queueEnrichment, job.ID, job.SkillID, string(domain.EnrichProcessing))
	}
	return out, nil
}

// SubmitEnrichmentResult records the outcome of an enrichment job. Found
// content replaces the skill's file set (SKILL.md plus any discovered files)
// with full checksum and provenance bookkeeping, and optionally chains an
// analysis job using the requester's currently stored credential and the
// default model. found=false is the terminal NotFound outcome. Retries
// against a terminal job are benign no-ops except plain failures. Worker
// (the claimant) or admin.
func (s *Store) SubmitEnrichmentResult(caller, jobID string, result domain.EnrichmentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return err
	}
	job, ok := s.enrichJobs[jobID]
	if !ok {
		return fmt.Errorf("%w: enrichment job %s", ErrNotFound, jobID)
	}

	switch job.Status {
	case domain.EnrichCompleted, domain.EnrichNotFound:
		return nil // idempotent retry
	case domain.EnrichFailed:
		if job.ErrorMessage != nil && *job.ErrorMessage == CancelMessage {
			return nil
		}
		return fmt.Errorf("%w: enrichment job %s already failed", ErrConflict, jobID)
	case domain.EnrichPending:
		return fmt.Errorf("%w: enrichment job %s has not been claimed", ErrConflict, jobID)
	}
	if !s.isAdmin(caller) && (job.ClaimedBy == nil || *job.ClaimedBy != caller) {
		return fmt.Errorf("%w: enrichment job %s claimed by another worker", ErrUnauthorized, jobID)
	}

	now := s.now().UTC()
	content := ""
	if result.Content != nil {
		content = *result.Content
	}
	if !result.Found || content == "" {
		job.Status = domain.EnrichNotFound
		job.CompletedAt = &now
		s.notifyJob(queueEnrichment, job.ID, job.SkillID, string(domain.EnrichNotFound))
		return nil
	}

	sk, ok := s.skills[job.SkillID]
	if !ok {
		return fmt.Errorf("%w: skill %s", ErrNotFound, job.SkillID)
	}

	sanitized, err := domain.SanitizeSkillContent(content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	// Combined file set: SKILL.md first, then the discovered files, later
	// entries replacing earlier ones on path collision.
	merged := map[string]domain.SkillFile{
		"SKILL.md": {Path: "SKILL.md", Content: sanitized, FileType: domain.FileTypeSkillMd},
	}
	order := []string{"SKILL.md"}
	for _, ef := range result.FilesFound {
		if _, seen := merged[ef.Path]; !seen {
			order = append(order, ef.Path)
		}
		merged[ef.Path] = domain.SkillFile{Path: ef.Path, Content: ef.Content}
	}
	files := make([]domain.SkillFile, 0, len(order))
	for _, path := range order {
		files = append(files, merged[path])
	}

	if err := s.setSkillFilesLocked(sk, files, job.Requester, result.SourceURL); err != nil {
		return err
	}
	sk.SkillMdContent = &sanitized

	job.Status = domain.EnrichCompleted
	job.SourceURL = result.SourceURL
	job.CompletedAt = &now

	if job.AutoAnalyze {
		if user, ok := s.users[job.Requester]; ok && user.EncryptedCredential != nil {
			chained, err := s.enqueueAnalysisLocked(job.Requester, sk.ID, domain.ModelHaiku, *user.EncryptedCredential)
			if err != nil {
				return err
			}
			job.ChainedAnalysisJobID = &chained
		}
	}

	s.notifyJob(queueEnrichment, job.ID, job.SkillID, string(domain.EnrichCompleted))
	s.cleanupJobsLocked()
	return nil
}

// SubmitEnrichmentError marks a Processing enrichment job as Failed. Worker
// (the claimant) or admin.
func (s *Store) SubmitEnrichmentError(caller, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireWorker(caller); err != nil {
		return err
	}
	job, ok := s.enrichJobs[jobID]
	if !ok {
		return fmt.Errorf("%w: enrichment job %s", ErrNotFound, jobID)
	}
	if job.Status != domain.EnrichProcessing {
		return fmt.Errorf("%w: enrichment job %s is %s, not Processing", ErrConflict, jobID, job.Status)
	}
	if !s.isAdmin(caller) && (job.ClaimedBy == nil || *job.ClaimedBy != caller) {
		return fmt.Errorf("%w: enrichment job %s claimed by another worker", ErrUnauthorized, jobID)
	}
	now := s.now().UTC()
	job.Status = domain.EnrichFailed
	job.ErrorMessage = &message
	job.CompletedAt = &now
	s.notifyJob(queueEnrichment, job.ID, job.SkillID, string(domain.EnrichFailed))
	return nil
}

// CancelEnrichmentJob cancels a Pending or Processing enrichment job.
// Requester or admin.
func (s *Store) CancelEnrichmentJob(caller, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(caller); err != nil {
		return err
	}
	job, ok := s.enrichJobs[jobID]
	if !ok {
		return fmt.Errorf("%w: enrichment job %s", ErrNotFound, jobID)
	}
	if caller != job.Requester && !s.isAdmin(caller) {
		return fmt.Errorf("%w: only the requester may cancel", ErrUnauthorized)
	}
	if job.Terminal() {
		return fmt.Errorf("%w: enrichment job %s is already %s", ErrPreconditionFailed, jobID, job.Status)
	}
	if job.Status == domain.EnrichPending {
		for i, id := range s.enrichPending {
			if id == jobID {
				s.enrichPending = append(s.enrichPending[:i], s.enrichPending[i+1:]...)
				break
			}
		}
	}
	now := s.now().UTC()
	msg := CancelMessage
	job.Status = domain.EnrichFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	s.notifyJob(queueEnrichment, job.ID, job.SkillID, string(domain.EnrichFailed))
	return nil
}

// GetEnrichmentJobStatus returns an enrichment job's status and error.
func (s *Store) GetEnrichmentJobStatus(jobID string) (domain.EnrichmentStatus, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.enrichJobs[jobID]
	if !ok {
		return "", nil, fmt.Errorf("%w: enrichment job %s", ErrNotFound, jobID)
	}
	return job.Status, job.ErrorMessage, nil
}

// GetEnrichmentJob returns a copy of an enrichment job.
func (s *Store) GetEnrichmentJob(jobID string) (*domain.EnrichmentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.enrichJobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: enrichment job %s", ErrNotFound, jobID)
	}
	cp := *job
	return &cp, nil
}

// PendingEnrichmentCount is the size of the enrichment FIFO.
func (s *Store) PendingEnrichmentCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.enrichPending))
}

// ListEnrichmentJobs returns the most recent enrichment jobs, newest first.
func (s *Store) ListEnrichmentJobs(limit int) []domain.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JobSummary, 0, len(s.enrichJobs))
	for _, job := range s.enrichJobs {
		out = append(out, domain.JobSummary{
			JobID:     job.ID,
			SkillID:   job.SkillID,
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
