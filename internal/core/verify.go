package core

import (
	"fmt"
	"sort"

	"skillscope/internal/domain"
)

// FileVerifyResult compares one stored checksum against a claimed one.
type FileVerifyResult struct {
	Path             string `json:"path"`
	IsValid          bool   `json:"is_valid"`
	StoredChecksum   string `json:"stored_checksum"`
	ProvidedChecksum string `json:"provided_checksum"`
}

// SkillVerifyResult is the structured report of a full-bundle verification.
type SkillVerifyResult struct {
	SkillID      string             `json:"skill_id"`
	IsValid      bool               `json:"is_valid"`
	FilesChecked uint32             `json:"files_checked"`
	FilesValid   uint32             `json:"files_valid"`
	FilesInvalid []FileVerifyResult `json:"files_invalid"`
	MissingFiles []string           `json:"missing_files"`
	ExtraFiles   []string           `json:"extra_files"`
}

// PathChecksum is one (path, checksum) claim from a client.
type PathChecksum struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// VerifyFileChecksum compares a claimed checksum for one file against the
// stored value. Pure query.
func (s *Store) VerifyFileChecksum(skillID, path, claimed string) (FileVerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return FileVerifyResult{}, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	for _, f := range sk.Files {
		if f.Path == path {
			return FileVerifyResult{
				Path:             path,
				IsValid:          f.Checksum == claimed,
				StoredChecksum:   f.Checksum,
				ProvidedChecksum: claimed,
			}, nil
		}
	}
	return FileVerifyResult{}, fmt.Errorf("%w: file %s in skill %s", ErrNotFound, path, skillID)
}

// VerifySkillFiles checks a set of claimed (path, checksum) pairs against the
// stored file set and reports invalid, missing and extra paths. Pure query.
func (s *Store) VerifySkillFiles(skillID string, claims []PathChecksum) (SkillVerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return SkillVerifyResult{}, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}

	stored := make(map[string]string, len(sk.Files))
	for _, f := range sk.Files {
		stored[f.Path] = f.Checksum
	}
	claimed := make(map[string]string, len(claims))
	for _, c := range claims {
		claimed[c.Path] = c.Checksum
	}

	res := SkillVerifyResult{
		SkillID:      sk.ID,
		FilesChecked: uint32(len(claims)),
		FilesInvalid: []FileVerifyResult{},
		MissingFiles: []string{},
		ExtraFiles:   []string{},
	}
	for path, storedSum := range stored {
		local, ok := claimed[path]
		if !ok {
			res.MissingFiles = append(res.MissingFiles, path)
			continue
		}
		if storedSum == local {
			res.FilesValid++
		} else {
			res.FilesInvalid = append(res.FilesInvalid, FileVerifyResult{
				Path:             path,
				IsValid:          false,
				StoredChecksum:   storedSum,
				ProvidedChecksum: local,
			})
		}
	}
	for _, c := range claims {
		if _, ok := stored[c.Path]; !ok {
			res.ExtraFiles = append(res.ExtraFiles, c.Path)
		}
	}
	sort.Strings(res.MissingFiles)
	sort.Strings(res.ExtraFiles)
	sort.Slice(res.FilesInvalid, func(i, j int) bool { return res.FilesInvalid[i].Path < res.FilesInvalid[j].Path })
	res.IsValid = len(res.FilesInvalid) == 0 && len(res.MissingFiles) == 0
	return res, nil
}

// BatchVerifyEntry is the quick aggregate-checksum comparison for one skill.
type BatchVerifyEntry struct {
	SkillID        string  `json:"skill_id"`
	IsValid        bool    `json:"is_valid"`
	StoredChecksum *string `json:"stored_checksum,omitempty"`
}

// VerifySkillsBatch compares claimed aggregate checksums for many skills.
// Unknown skills report invalid with no stored checksum.
func (s *Store) VerifySkillsBatch(claims []PathChecksum) []BatchVerifyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BatchVerifyEntry, 0, len(claims))
	for _, c := range claims {
		sk, ok := s.lookupSkill(c.Path)
		if !ok || sk.FilesChecksum == nil {
			out = append(out, BatchVerifyEntry{SkillID: c.Path})
			continue
		}
		out = append(out, BatchVerifyEntry{
			SkillID:        c.Path,
			IsValid:        *sk.FilesChecksum == c.Checksum,
			StoredChecksum: sk.FilesChecksum,
		})
	}
	return out
}

// VerifyLocalChecksum compares a claimed checksum for a path, treating
// SKILL.md as the markdown content when it is not part of the file set.
// Returns (matches, stored).
func (s *Store) VerifyLocalChecksum(skillID, path, claimed string) (bool, *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return false, nil
	}
	for _, f := range sk.Files {
		if f.Path == path {
			sum := f.Checksum
			return sum == claimed, &sum
		}
	}
	if path == "SKILL.md" && sk.SkillMdContent != nil {
		sum := domain.Sha256Hex(*sk.SkillMdContent)
		return sum == claimed, &sum
	}
	return false, nil
}

// CurrentFileChecksums lists (path, checksum) pairs for local verification,
// including the SKILL.md content when stored outside the file set.
func (s *Store) CurrentFileChecksums(skillID string) []PathChecksum {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return nil
	}
	out := make([]PathChecksum, 0, len(sk.Files)+1)
	inFiles := false
	for _, f := range sk.Files {
		if f.Path == "SKILL.md" {
			inFiles = true
		}
		out = append(out, PathChecksum{Path: f.Path, Checksum: f.Checksum})
	}
	if !inFiles && sk.SkillMdContent != nil {
		out = append(out, PathChecksum{Path: "SKILL.md", Checksum: domain.Sha256Hex(*sk.SkillMdContent)})
	}
	return out
}
