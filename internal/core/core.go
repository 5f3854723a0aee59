package core

import (
	"log"
	"sync"
	"time"

	"skillscope/internal/domain"
)

// Limits bounds the store's resource usage. Zero values are replaced by
// defaults in New.
type Limits struct {
	MaxAnalysisHistory   int
	MaxFileHistory       int
	ClaimBatch           int
	JobRetention         time.Duration
	MaxJobsRetained      int
	InstallWindow        time.Duration
	MaxInstallsPerWindow int
}

// DefaultLimits are the suggested production bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxAnalysisHistory:   50,
		MaxFileHistory:       50,
		ClaimBatch:           10,
		JobRetention:         24 * time.Hour,
		MaxJobsRetained:      10_000,
		InstallWindow:        time.Hour,
		MaxInstallsPerWindow: 5,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxAnalysisHistory <= 0 {
		l.MaxAnalysisHistory = d.MaxAnalysisHistory
	}
	if l.MaxFileHistory <= 0 {
		l.MaxFileHistory = d.MaxFileHistory
	}
	if l.ClaimBatch <= 0 {
		l.ClaimBatch = d.ClaimBatch
	}
	if l.JobRetention <= 0 {
		l.JobRetention = d.JobRetention
	}
	if l.MaxJobsRetained <= 0 {
		l.MaxJobsRetained = d.MaxJobsRetained
	}
	if l.InstallWindow <= 0 {
		l.InstallWindow = d.InstallWindow
	}
	if l.MaxInstallsPerWindow <= 0 {
		l.MaxInstallsPerWindow = d.MaxInstallsPerWindow
	}
	return l
}

// Notifier receives job status transitions after the owning operation has
// committed. Implementations must not call back into the store.
type Notifier interface {
	JobStatusChanged(queue, jobID, skillID, status string)
}

type globalConfig struct {
	Admins          []string `json:"admins"`
	Workers         []string `json:"workers"`
	AnalysisEnabled bool     `json:"analysis_enabled"`
	DefaultPromptID *string  `json:"default_prompt_id,omitempty"`
	TeeWorkerURL    *string  `json:"tee_worker_url,omitempty"`
}

type installKey struct {
	identity string
	skillID  string
}

type installWindow struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Store is the authoritative state machine. Every exported operation takes
// the single mutex and runs to completion under it, so operations never
// interleave: claim's pop-and-update is atomic with respect to any other
// caller, which is what makes the at-most-once claim guarantee hold.
type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	logger *log.Logger
	limits Limits

	notifier Notifier

	skills  map[string]*domain.Skill
	users   map[string]*domain.UserProfile
	prompts map[string]*domain.AnalysisPrompt
	config  globalConfig

	jobs         map[string]*domain.AnalysisJob
	pendingOrder []string
	jobCounter   uint64

	enrichJobs    map[string]*domain.EnrichmentJob
	enrichPending []string
	enrichCounter uint64

	installWindows map[installKey]installWindow

	// generation increments on every index write; read caches key on it.
	generation uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLimits overrides resource bounds.
func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l.withDefaults() }
}

// WithNotifier attaches a job transition notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// New creates an empty store. The bootstrap admin becomes the first entry of
// the admin allow-list and the default analysis prompt is seeded, mirroring
// first-start initialization.
func New(bootstrapAdmin string, logger *log.Logger, opts ...Option) *Store {
	s := &Store{
		now:            time.Now,
		logger:         logger,
		limits:         DefaultLimits(),
		skills:         make(map[string]*domain.Skill),
		users:          make(map[string]*domain.UserProfile),
		prompts:        make(map[string]*domain.AnalysisPrompt),
		jobs:           make(map[string]*domain.AnalysisJob),
		enrichJobs:     make(map[string]*domain.EnrichmentJob),
		installWindows: make(map[installKey]installWindow),
		config: globalConfig{
			AnalysisEnabled: true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if bootstrapAdmin != "" {
		s.config.Admins = append(s.config.Admins, bootstrapAdmin)
	}
	s.seedDefaultPrompt(bootstrapAdmin)
	return s
}

func (s *Store) seedDefaultPrompt(creator string) {
	id := domain.DefaultPromptID
	s.prompts[id] = &domain.AnalysisPrompt{
		ID:             id,
		Name:           "Default Analysis Prompt",
		Version:        domain.DefaultPromptVersion,
		PromptTemplate: domain.DefaultPromptTemplate,
		CreatedBy:      creator,
		CreatedAt:      s.now().UTC(),
		IsDefault:      true,
	}
	s.config.DefaultPromptID = &id
}

// Generation returns the current write generation. Read caches embed it in
// their keys so any index write invalidates them.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Store) bumpGeneration() {
	s.generation++
}

func (s *Store) notifyJob(queue, jobID, skillID, status string) {
	if s.notifier != nil {
		s.notifier.JobStatusChanged(queue, jobID, skillID, status)
	}
}

func (s *Store) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// lookupSkill resolves a skill id, expanding the two-segment form to
// owner/repo/repo when the direct lookup misses.
func (s *Store) lookupSkill(id string) (*domain.Skill, bool) {
	if sk, ok := s.skills[id]; ok {
		return sk, true
	}
	if expanded, ok := domain.ExpandSkillID(id); ok {
		if sk, ok := s.skills[expanded]; ok {
			return sk, true
		}
	}
	return nil, false
}
