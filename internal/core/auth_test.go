package core

import (
	"errors"
	"testing"
)

func TestRoleResolution(t *testing.T) {
	s := newTestStore(t)

	if got := s.RoleOf(""); got != RoleAnonymous {
		t.Fatalf("anonymous role = %v", got)
	}
	if got := s.RoleOf("random-user"); got != RoleUser {
		t.Fatalf("user role = %v", got)
	}
	if got := s.RoleOf(testWorker); got != RoleWorker {
		t.Fatalf("worker role = %v", got)
	}
	if got := s.RoleOf(testAdmin); got != RoleAdmin {
		t.Fatalf("admin role = %v", got)
	}
}

func TestAdminSubsumesWorker(t *testing.T) {
	s := newTestStore(t)
	// Admins may invoke worker-gated calls.
	if _, err := s.ClaimPendingJobs(testAdmin, 1); err != nil {
		t.Fatalf("admin claim: %v", err)
	}
	if _, _, err := s.CleanupJobs(testAdmin); err != nil {
		t.Fatalf("admin cleanup: %v", err)
	}
	if _, _, err := s.CleanupJobs(testWorker); err != nil {
		t.Fatalf("worker cleanup: %v", err)
	}
	if _, _, err := s.CleanupJobs(testUser); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("user cleanup: %v", err)
	}
}

func TestWorkerAllowList(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddWorker(testUser, "w2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin add worker: %v", err)
	}
	if err := s.AddWorker(testAdmin, "w2"); err != nil {
		t.Fatalf("add worker: %v", err)
	}
	// Adding twice is a no-op, not a duplicate.
	if err := s.AddWorker(testAdmin, "w2"); err != nil {
		t.Fatalf("re-add worker: %v", err)
	}
	workers, err := s.Workers(testAdmin)
	if err != nil {
		t.Fatalf("list workers: %v", err)
	}
	if len(workers) != 2 {
		t.Fatalf("workers = %v", workers)
	}

	if err := s.RemoveWorker(testAdmin, "w2"); err != nil {
		t.Fatalf("remove worker: %v", err)
	}
	if got := s.RoleOf("w2"); got != RoleUser {
		t.Fatalf("removed worker still has role %v", got)
	}
	if _, err := s.Workers(testUser); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin list workers: %v", err)
	}
}

func TestAddAdmin(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddAdmin(testAdmin, "admin-2"); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if got := s.RoleOf("admin-2"); got != RoleAdmin {
		t.Fatalf("new admin role = %v", got)
	}
	if err := s.AddAdmin(testUser, "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin add admin: %v", err)
	}
}

func TestTeeWorkerURL(t *testing.T) {
	s := newTestStore(t)
	if s.TeeAnalysisAvailable() {
		t.Fatalf("tee available before configuration")
	}
	if err := s.SetTeeWorkerURL(testUser, "https://x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin set url: %v", err)
	}
	if err := s.SetTeeWorkerURL(testAdmin, "https://worker.example"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	url := s.TeeWorkerURL()
	if url == nil || *url != "https://worker.example" {
		t.Fatalf("url = %v", url)
	}
	if !s.TeeAnalysisAvailable() {
		t.Fatalf("tee not available after configuration")
	}
}
