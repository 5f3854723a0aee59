package core

import (
	"fmt"
	"slices"
)

// Role of a caller as resolved against the allow-lists. Admin subsumes
// worker: any worker-gated call accepts an admin.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleWorker    Role = "worker"
	RoleAdmin     Role = "admin"
)

func (s *Store) isAdmin(caller string) bool {
	return caller != "" && slices.Contains(s.config.Admins, caller)
}

func (s *Store) isWorker(caller string) bool {
	return caller != "" && slices.Contains(s.config.Workers, caller)
}

func (s *Store) isAdminOrWorker(caller string) bool {
	return s.isAdmin(caller) || s.isWorker(caller)
}

func (s *Store) requireAdmin(caller string) error {
	if !s.isAdmin(caller) {
		return fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	return nil
}

func (s *Store) requireWorker(caller string) error {
	if !s.isAdminOrWorker(caller) {
		return fmt.Errorf("%w: worker or admin role required", ErrUnauthorized)
	}
	return nil
}

func (s *Store) requireUser(caller string) error {
	if caller == "" {
		return fmt.Errorf("%w: authentication required", ErrUnauthorized)
	}
	return nil
}

// RoleOf classifies a caller identity.
func (s *Store) RoleOf(caller string) Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case caller == "":
		return RoleAnonymous
	case s.isAdmin(caller):
		return RoleAdmin
	case s.isWorker(caller):
		return RoleWorker
	default:
		return RoleUser
	}
}

// AddAdmin appends an identity to the admin allow-list. Admin only.
func (s *Store) AddAdmin(caller, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if identity == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidArgument)
	}
	if !slices.Contains(s.config.Admins, identity) {
		s.config.Admins = append(s.config.Admins, identity)
	}
	return nil
}

// AddWorker registers a worker identity. Admin only.
func (s *Store) AddWorker(caller, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if identity == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidArgument)
	}
	if !slices.Contains(s.config.Workers, identity) {
		s.config.Workers = append(s.config.Workers, identity)
	}
	return nil
}

// RemoveWorker drops a worker identity from the allow-list. Admin only.
func (s *Store) RemoveWorker(caller, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.config.Workers = slices.DeleteFunc(s.config.Workers, func(w string) bool { return w == identity })
	return nil
}

// Workers lists registered worker identities. Admin only.
func (s *Store) Workers(caller string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	return slices.Clone(s.config.Workers), nil
}

// SetAnalysisEnabled flips the kill-switch consulted by RequestAnalysis.
// In-flight jobs are unaffected. Admin only.
func (s *Store) SetAnalysisEnabled(caller string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.config.AnalysisEnabled = enabled
	return nil
}

// SetTeeWorkerURL records the advisory worker-pool URL clients use to fetch
// the pool's public encryption key. Admin only.
func (s *Store) SetTeeWorkerURL(caller, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.config.TeeWorkerURL = &url
	return nil
}

// TeeWorkerURL returns the advisory worker-pool URL, if set. Public.
func (s *Store) TeeWorkerURL() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.TeeWorkerURL
}

// TeeAnalysisAvailable reports whether a worker pool URL is configured.
func (s *Store) TeeAnalysisAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.TeeWorkerURL != nil
}
