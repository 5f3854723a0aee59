package core

import (
	"errors"
	"testing"

	"skillscope/internal/domain"
)

func setupVerifySkill(t *testing.T, s *Store) {
	t.Helper()
	mustAddSkill(t, s, "o/r")
	if _, err := s.SetSkillFiles(testAdmin, "o/r", []domain.SkillFile{
		{Path: "a", Content: "x"},
		{Path: "b", Content: "y"},
	}); err != nil {
		t.Fatalf("set files: %v", err)
	}
}

func TestVerifySkillFilesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	setupVerifySkill(t, s)

	res, err := s.VerifySkillFiles("o/r", []PathChecksum{
		{Path: "a", Checksum: domain.Sha256Hex("x")},
		{Path: "b", Checksum: domain.Sha256Hex("y")},
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.IsValid || res.FilesChecked != 2 || res.FilesValid != 2 {
		t.Fatalf("round-trip verify failed: %+v", res)
	}
	if len(res.FilesInvalid) != 0 || len(res.MissingFiles) != 0 || len(res.ExtraFiles) != 0 {
		t.Fatalf("unexpected discrepancies: %+v", res)
	}
}

func TestVerifySkillFilesTampered(t *testing.T) {
	s := newTestStore(t)
	setupVerifySkill(t, s)

	res, err := s.VerifySkillFiles("o/r", []PathChecksum{
		{Path: "a", Checksum: "00"},
		{Path: "b", Checksum: domain.Sha256Hex("y")},
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.IsValid {
		t.Fatalf("tampered file passed verification")
	}
	if len(res.FilesInvalid) != 1 || res.FilesInvalid[0].Path != "a" {
		t.Fatalf("invalid list wrong: %+v", res.FilesInvalid)
	}
	if res.FilesInvalid[0].StoredChecksum != domain.Sha256Hex("x") || res.FilesInvalid[0].ProvidedChecksum != "00" {
		t.Fatalf("stored/provided pair wrong: %+v", res.FilesInvalid[0])
	}
}

func TestVerifySkillFilesMissingAndExtra(t *testing.T) {
	s := newTestStore(t)
	setupVerifySkill(t, s)

	res, err := s.VerifySkillFiles("o/r", []PathChecksum{
		{Path: "a", Checksum: domain.Sha256Hex("x")},
		{Path: "c", Checksum: domain.Sha256Hex("z")},
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.IsValid {
		t.Fatalf("verification with missing file passed")
	}
	if len(res.MissingFiles) != 1 || res.MissingFiles[0] != "b" {
		t.Fatalf("missing list wrong: %+v", res.MissingFiles)
	}
	if len(res.ExtraFiles) != 1 || res.ExtraFiles[0] != "c" {
		t.Fatalf("extra list wrong: %+v", res.ExtraFiles)
	}
}

func TestVerifyFileChecksum(t *testing.T) {
	s := newTestStore(t)
	setupVerifySkill(t, s)

	res, err := s.VerifyFileChecksum("o/r", "a", domain.Sha256Hex("x"))
	if err != nil || !res.IsValid {
		t.Fatalf("valid file: %+v, %v", res, err)
	}
	res, err = s.VerifyFileChecksum("o/r", "a", "00")
	if err != nil || res.IsValid {
		t.Fatalf("tampered file: %+v, %v", res, err)
	}
	if _, err := s.VerifyFileChecksum("o/r", "nope", "00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown file: %v", err)
	}
	if _, err := s.VerifyFileChecksum("o/missing", "a", "00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown skill: %v", err)
	}
}

func TestVerifySkillsBatch(t *testing.T) {
	s := newTestStore(t)
	setupVerifySkill(t, s)
	sk, _ := s.GetSkill("o/r")

	entries := s.VerifySkillsBatch([]PathChecksum{
		{Path: "o/r", Checksum: *sk.FilesChecksum},
		{Path: "o/r", Checksum: "00"},
		{Path: "o/unknown", Checksum: "00"},
	})
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if !entries[0].IsValid || entries[1].IsValid || entries[2].IsValid {
		t.Fatalf("validity wrong: %+v", entries)
	}
	if entries[2].StoredChecksum != nil {
		t.Fatalf("unknown skill leaked checksum")
	}
}
