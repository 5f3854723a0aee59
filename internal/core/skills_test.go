package core

import (
	"errors"
	"strings"
	"testing"

	"skillscope/internal/domain"
)

func TestAddSkillDuplicateConflict(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")

	_, err := s.AddSkill(testAdmin, domain.Skill{ID: "o/r", Name: "r", Owner: "o", Repo: "r"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate add: %v", err)
	}
	if _, err := s.AddSkill(testUser, domain.Skill{ID: "o/x", Name: "x", Owner: "o", Repo: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin add: %v", err)
	}
	if _, err := s.AddSkill(testAdmin, domain.Skill{ID: "bad id!", Name: "x", Owner: "o", Repo: "x"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad id: %v", err)
	}
}

func TestAddSkillsBatchSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/existing")

	count, err := s.AddSkillsBatch(testAdmin, []domain.Skill{
		{ID: "o/existing", Name: "existing", Owner: "o", Repo: "existing"},
		{ID: "o/new1", Name: "new1", Owner: "o", Repo: "new1"},
		{ID: "o/new2", Name: "new2", Owner: "o", Repo: "new2"},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if count != 2 {
		t.Fatalf("inserted = %d, want 2", count)
	}
}

func TestSetSkillFilesVersioning(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")

	first := []domain.SkillFile{
		{Path: "a", Content: "x"},
		{Path: "b", Content: "y"},
	}
	sum, err := s.SetSkillFiles(testAdmin, "o/r", first)
	if err != nil {
		t.Fatalf("set files: %v", err)
	}
	sk, _ := s.GetSkill("o/r")
	if sk.FilesChecksum == nil || *sk.FilesChecksum != sum {
		t.Fatalf("aggregate checksum not stored")
	}
	if sk.Files[0].Checksum != domain.Sha256Hex("x") {
		t.Fatalf("per-file checksum not computed")
	}
	if len(sk.FileHistory) != 2 {
		t.Fatalf("expected 2 version entries, got %d", len(sk.FileHistory))
	}

	// Replacing with one changed file versions only that file.
	second := []domain.SkillFile{
		{Path: "a", Content: "x"},
		{Path: "b", Content: "y2"},
	}
	if _, err := s.SetSkillFiles(testAdmin, "o/r", second); err != nil {
		t.Fatalf("set files again: %v", err)
	}
	sk, _ = s.GetSkill("o/r")
	if len(sk.FileHistory) != 3 {
		t.Fatalf("expected 3 version entries, got %d", len(sk.FileHistory))
	}
	if sk.FileHistory[0].Path != "b" {
		t.Fatalf("latest version entry is %q, want b", sk.FileHistory[0].Path)
	}

	// Duplicate paths and oversize files are rejected.
	if _, err := s.SetSkillFiles(testAdmin, "o/r", []domain.SkillFile{
		{Path: "a", Content: "1"}, {Path: "a", Content: "2"},
	}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("duplicate path: %v", err)
	}
	if _, err := s.SetSkillFiles(testAdmin, "o/r", []domain.SkillFile{
		{Path: "big", Content: strings.Repeat("a", domain.MaxSkillFileBytes+1)},
	}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("oversize file: %v", err)
	}
}

func TestAddSkillFileUpsert(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")

	if _, err := s.AddSkillFile(testAdmin, "o/r", domain.SkillFile{Path: "a", Content: "x"}); err != nil {
		t.Fatalf("add file: %v", err)
	}
	if _, err := s.AddSkillFile(testAdmin, "o/r", domain.SkillFile{Path: "a", Content: "x2"}); err != nil {
		t.Fatalf("upsert file: %v", err)
	}
	sk, _ := s.GetSkill("o/r")
	if len(sk.Files) != 1 || sk.Files[0].Checksum != domain.Sha256Hex("x2") {
		t.Fatalf("upsert did not replace: %+v", sk.Files)
	}
}

func TestFileCountCap(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")

	files := make([]domain.SkillFile, domain.MaxFilesPerSkill+1)
	for i := range files {
		files[i] = domain.SkillFile{Path: "f" + string(rune('a'+i%26)) + string(rune('a'+i/26)), Content: "x"}
	}
	if _, err := s.SetSkillFiles(testAdmin, "o/r", files); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("file count cap: %v", err)
	}
}

func TestRecordInstall(t *testing.T) {
	s := newTestStore(t)
	mustAddSkill(t, s, "o/r")

	if _, err := s.RecordInstall("", "o/r"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous install: %v", err)
	}
	for i := 1; i <= 5; i++ {
		count, err := s.RecordInstall(testUser, "o/r")
		if err != nil {
			t.Fatalf("install %d: %v", i, err)
		}
		if count != uint64(i) {
			t.Fatalf("install count = %d, want %d", count, i)
		}
	}
	// The sixth install in the window is rate limited.
	if _, err := s.RecordInstall(testUser, "o/r"); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("rate limit: %v", err)
	}
	// A different user is unaffected.
	if _, err := s.RecordInstall("user-2", "o/r"); err != nil {
		t.Fatalf("other user install: %v", err)
	}
}

func TestUpdateSkillMdAndLookupExpansion(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddSkill(testAdmin, domain.Skill{
		ID: "o/r/r", Name: "r", Owner: "o", Repo: "r",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	content := "# hello\n"
	// Two-segment lookup expands to o/r/r.
	if err := s.UpdateSkillMd(testAdmin, "o/r", &content); err != nil {
		t.Fatalf("update via short id: %v", err)
	}
	sk, err := s.GetSkill("o/r")
	if err != nil {
		t.Fatalf("get via short id: %v", err)
	}
	if sk.SkillMdContent == nil || !strings.Contains(*sk.SkillMdContent, "# hello") {
		t.Fatalf("content not set: %+v", sk.SkillMdContent)
	}
}
