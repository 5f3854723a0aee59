package core

import (
	"fmt"

	"skillscope/internal/domain"
)

// profileFor returns the caller's profile, creating it lazily.
func (s *Store) profileFor(identity string) *domain.UserProfile {
	if u, ok := s.users[identity]; ok {
		return u
	}
	now := s.now().UTC()
	u := &domain.UserProfile{
		Identity:   identity,
		CreatedAt:  now,
		LastActive: now,
	}
	s.users[identity] = u
	return u
}

// SetEncryptedCredential stores the caller's credential blob, creating the
// profile on first write. The blob is validated only as plausible hex
// ciphertext; the core never decrypts it.
func (s *Store) SetEncryptedCredential(caller, blob string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(caller); err != nil {
		return err
	}
	if err := domain.ValidateEncryptedCredential(blob); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	u := s.profileFor(caller)
	u.EncryptedCredential = &blob
	u.LastActive = s.now().UTC()
	return nil
}

// RemoveEncryptedCredential deletes the blob only; counters survive.
func (s *Store) RemoveEncryptedCredential(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(caller); err != nil {
		return err
	}
	if u, ok := s.users[caller]; ok {
		u.EncryptedCredential = nil
		u.LastActive = s.now().UTC()
	}
	return nil
}

// HasCredential reports whether the caller has a stored credential blob.
func (s *Store) HasCredential(caller string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller == "" {
		return false
	}
	u, ok := s.users[caller]
	return ok && u.EncryptedCredential != nil
}

// MyProfile returns the caller's profile, or nil when none exists.
func (s *Store) MyProfile(caller string) *domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller == "" {
		return nil
	}
	u, ok := s.users[caller]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}
