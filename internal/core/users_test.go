package core

import (
	"errors"
	"testing"
)

func TestCredentialLifecycle(t *testing.T) {
	s := newTestStore(t)

	if s.HasCredential(testUser) {
		t.Fatalf("credential before set")
	}
	if err := s.SetEncryptedCredential("", testCredential); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous set: %v", err)
	}
	if err := s.SetEncryptedCredential(testUser, "nothex!"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad blob: %v", err)
	}

	mustSetCredential(t, s, testUser)
	if !s.HasCredential(testUser) {
		t.Fatalf("credential not stored")
	}
	profile := s.MyProfile(testUser)
	if profile == nil || profile.EncryptedCredential == nil || *profile.EncryptedCredential != testCredential {
		t.Fatalf("profile blob wrong: %+v", profile)
	}

	// Removal clears the blob only; the profile and counters survive.
	if err := s.RemoveEncryptedCredential(testUser); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.HasCredential(testUser) {
		t.Fatalf("credential survived removal")
	}
	if s.MyProfile(testUser) == nil {
		t.Fatalf("profile deleted with credential")
	}
}

func TestCredentialSnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")
	mustSetCredential(t, s, testUser)

	jobID := requestJob(t, s, testUser, "o/r")

	// Mutating the profile after submission must not affect the in-flight
	// job's snapshot.
	if err := s.RemoveEncryptedCredential(testUser); err != nil {
		t.Fatalf("remove: %v", err)
	}
	jobs, err := s.ClaimPendingJobs(testWorker, 1)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("claim: %v", err)
	}
	if jobs[0].JobID != jobID || jobs[0].EncryptedCredential != testCredential {
		t.Fatalf("snapshot not isolated: %+v", jobs[0])
	}
}

func TestMyProfileAnonymous(t *testing.T) {
	s := newTestStore(t)
	if s.MyProfile("") != nil {
		t.Fatalf("anonymous profile should be nil")
	}
	if s.HasCredential("") {
		t.Fatalf("anonymous has credential")
	}
}
