package core

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"skillscope/internal/domain"
)

// CreatePrompt registers a new prompt template and returns its id. The new
// prompt is never the default. Admin only.
func (s *Store) CreatePrompt(caller, name, version, template, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return "", err
	}
	if name == "" || template == "" {
		return "", fmt.Errorf("%w: prompt name and template are required", ErrInvalidArgument)
	}
	id := uuid.NewString()
	s.prompts[id] = &domain.AnalysisPrompt{
		ID:             id,
		Name:           name,
		Version:        version,
		PromptTemplate: template,
		Description:    description,
		CreatedBy:      caller,
		CreatedAt:      s.now().UTC(),
	}
	return id, nil
}

// SetDefaultPrompt flips the default flag atomically: the previous default
// loses it in the same operation. Admin only.
func (s *Store) SetDefaultPrompt(caller, promptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if _, ok := s.prompts[promptID]; !ok {
		return fmt.Errorf("%w: prompt %s", ErrNotFound, promptID)
	}
	for _, p := range s.prompts {
		p.IsDefault = p.ID == promptID
	}
	id := promptID
	s.config.DefaultPromptID = &id
	return nil
}

// DeletePrompt removes a prompt. The default prompt cannot be deleted.
// Admin only.
func (s *Store) DeletePrompt(caller, promptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	p, ok := s.prompts[promptID]
	if !ok {
		return fmt.Errorf("%w: prompt %s", ErrNotFound, promptID)
	}
	if p.IsDefault {
		return fmt.Errorf("%w: cannot delete the default prompt; set another default first", ErrConflict)
	}
	delete(s.prompts, promptID)
	return nil
}

// GetPrompt returns a prompt by id.
func (s *Store) GetPrompt(promptID string) (*domain.AnalysisPrompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[promptID]
	if !ok {
		return nil, fmt.Errorf("%w: prompt %s", ErrNotFound, promptID)
	}
	cp := *p
	return &cp, nil
}

// ListPrompts returns all prompts sorted by creation time then id.
func (s *Store) ListPrompts() []domain.AnalysisPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnalysisPrompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetDefaultPrompt returns the current default prompt, if any.
func (s *Store) GetDefaultPrompt() (*domain.AnalysisPrompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.DefaultPromptID == nil {
		return nil, fmt.Errorf("%w: no default prompt", ErrNotFound)
	}
	p, ok := s.prompts[*s.config.DefaultPromptID]
	if !ok {
		return nil, fmt.Errorf("%w: default prompt %s missing", ErrInternal, *s.config.DefaultPromptID)
	}
	cp := *p
	return &cp, nil
}
