package domain

import "time"

// AnalysisModel is the closed set of models a caller may request.
type AnalysisModel string

const (
	ModelHaiku AnalysisModel = "Haiku"
	ModelOpus  AnalysisModel = "Opus"
)

// ParseAnalysisModel rejects unknown tags.
func ParseAnalysisModel(s string) (AnalysisModel, bool) {
	switch AnalysisModel(s) {
	case ModelHaiku, ModelOpus:
		return AnalysisModel(s), true
	}
	return "", false
}

// ModelID returns the provider model identifier workers pass to the API.
// Aliases track the latest snapshot of each model.
func (m AnalysisModel) ModelID() string {
	switch m {
	case ModelOpus:
		return "claude-opus-4-5"
	default:
		return "claude-haiku-4-5"
	}
}

// JobStatus is the analysis job state machine. Completed and Failed are
// terminal.
type JobStatus string

const (
	JobPending    JobStatus = "Pending"
	JobProcessing JobStatus = "Processing"
	JobCompleted  JobStatus = "Completed"
	JobFailed     JobStatus = "Failed"
)

// EnrichmentStatus adds NotFound: the source host confirmed absence, which is
// terminal but distinct from a transient failure.
type EnrichmentStatus string

const (
	EnrichPending    EnrichmentStatus = "Pending"
	EnrichProcessing EnrichmentStatus = "Processing"
	EnrichCompleted  EnrichmentStatus = "Completed"
	EnrichNotFound   EnrichmentStatus = "NotFound"
	EnrichFailed     EnrichmentStatus = "Failed"
)

// AnalysisJob is one queued analysis request. EncryptedCredential is the
// requester's credential blob snapshotted at submission time.
type AnalysisJob struct {
	ID                  string        `json:"id"`
	SkillID             string        `json:"skill_id"`
	Requester           string        `json:"requester"`
	Model               AnalysisModel `json:"model"`
	EncryptedCredential string        `json:"encrypted_credential"`
	Status              JobStatus     `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
	ClaimedAt           *time.Time    `json:"claimed_at,omitempty"`
	ClaimedBy           *string       `json:"claimed_by,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	ErrorMessage        *string       `json:"error_message,omitempty"`
}

// Terminal reports whether the job can no longer transition.
func (j *AnalysisJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// EnrichmentJob mirrors AnalysisJob with the enrichment status set, an
// auto-chain flag and the id of the analysis job it spawned on success.
type EnrichmentJob struct {
	ID                   string           `json:"id"`
	SkillID              string           `json:"skill_id"`
	Owner                string           `json:"owner"`
	Repo                 string           `json:"repo"`
	Name                 string           `json:"name"`
	Requester            string           `json:"requester"`
	AutoAnalyze          bool             `json:"auto_analyze"`
	Status               EnrichmentStatus `json:"status"`
	CreatedAt            time.Time        `json:"created_at"`
	ClaimedAt            *time.Time       `json:"claimed_at,omitempty"`
	ClaimedBy            *string          `json:"claimed_by,omitempty"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage         *string          `json:"error_message,omitempty"`
	SourceURL            *string          `json:"source_url,omitempty"`
	ChainedAnalysisJobID *string          `json:"chained_analysis_job_id,omitempty"`
}

// Terminal reports whether the job can no longer transition.
func (j *EnrichmentJob) Terminal() bool {
	return j.Status == EnrichCompleted || j.Status == EnrichFailed || j.Status == EnrichNotFound
}

// PendingJobFile is the lightweight file form shipped to workers in claim
// payloads: just path and content.
type PendingJobFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PendingJob is what a worker receives for a claimed analysis job: the job
// plus a snapshot of the skill it analyzes and the credential blob.
type PendingJob struct {
	JobID               string           `json:"job_id"`
	SkillID             string           `json:"skill_id"`
	SkillName           string           `json:"skill_name"`
	SkillDescription    string           `json:"skill_description"`
	SkillOwner          string           `json:"skill_owner"`
	SkillRepo           string           `json:"skill_repo"`
	SkillMdContent      string           `json:"skill_md_content"`
	SkillFiles          []PendingJobFile `json:"skill_files"`
	Model               string           `json:"model"`
	EncryptedCredential string           `json:"encrypted_credential"`
}

// PendingEnrichmentJob is the claim payload for an enrichment job.
type PendingEnrichmentJob struct {
	JobID       string `json:"job_id"`
	SkillID     string `json:"skill_id"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Name        string `json:"name"`
	AutoAnalyze bool   `json:"auto_analyze"`
}

// EnrichmentFile is one file discovered by the worker next to SKILL.md.
type EnrichmentFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// EnrichmentResult is the completion payload a worker submits. Found=false
// means the source host confirmed the skill has no content (NotFound), not a
// transient error.
type EnrichmentResult struct {
	Found      bool             `json:"found"`
	Content    *string          `json:"content,omitempty"`
	SourceURL  *string          `json:"source_url,omitempty"`
	FilesFound []EnrichmentFile `json:"files_found"`
}

// JobSummary is the compact listing row for recent jobs.
type JobSummary struct {
	JobID     string    `json:"job_id"`
	SkillID   string    `json:"skill_id"`
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	Requester string    `json:"requester"`
	CreatedAt time.Time `json:"created_at"`
	Error     *string   `json:"error,omitempty"`
}
