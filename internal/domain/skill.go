package domain

import (
	"strings"
	"time"
)

// SkillFileType classifies a file within a skill bundle.
type SkillFileType string

const (
	FileTypeSkillMd   SkillFileType = "SkillMd"
	FileTypeReference SkillFileType = "Reference"
	FileTypeAsset     SkillFileType = "Asset"
	FileTypeConfig    SkillFileType = "Config"
	FileTypeOther     SkillFileType = "Other"
)

// ParseSkillFileType rejects unknown tags.
func ParseSkillFileType(s string) (SkillFileType, bool) {
	switch SkillFileType(s) {
	case FileTypeSkillMd, FileTypeReference, FileTypeAsset, FileTypeConfig, FileTypeOther:
		return SkillFileType(s), true
	}
	return "", false
}

// ClassifyFilePath guesses a file type from its path, used when the
// enrichment worker reports files without type information.
func ClassifyFilePath(path string) SkillFileType {
	switch {
	case strings.EqualFold(path, "SKILL.md") || strings.HasSuffix(strings.ToLower(path), "/skill.md"):
		return FileTypeSkillMd
	case strings.HasPrefix(path, "references/"):
		return FileTypeReference
	case strings.HasPrefix(path, "assets/"):
		return FileTypeAsset
	default:
		return FileTypeOther
	}
}

// SkillFile is one file inside a skill bundle. Checksum is the SHA-256 hex of
// the raw content bytes and SizeBytes equals len(content).
type SkillFile struct {
	Path      string        `json:"path"`
	Content   string        `json:"content"`
	Checksum  string        `json:"checksum"`
	SizeBytes uint64        `json:"size_bytes"`
	FileType  SkillFileType `json:"file_type"`
}

// SkillFileVersion is an append-only audit entry for a file write. Content is
// not retained in history; checksums are enough for verification.
type SkillFileVersion struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	SizeBytes uint64    `json:"size_bytes"`
	FetchedAt time.Time `json:"fetched_at"`
	FetchedBy string    `json:"fetched_by"`
	SourceURL string    `json:"source_url,omitempty"`
}

// Skill is the primary record of the index, keyed by "owner/repo[/name]".
type Skill struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Owner          string  `json:"owner"`
	Repo           string  `json:"repo"`
	SourceURL      *string `json:"source_url,omitempty"`
	ArtifactURL    *string `json:"artifact_url,omitempty"`
	SkillMdContent *string `json:"skill_md_content,omitempty"`

	Files         []SkillFile `json:"files"`
	FilesChecksum *string     `json:"files_checksum,omitempty"`
	Stars         uint32      `json:"stars"`

	Analysis        *SkillAnalysis     `json:"analysis,omitempty"`
	AnalysisHistory []SkillAnalysis    `json:"analysis_history"`
	FileHistory     []SkillFileVersion `json:"file_history"`

	InstallCount uint64    `json:"install_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Source       string    `json:"source"`
}

// ContentOrStub returns the stored SKILL.md content, or a minimal markdown
// stub built from the name and description when no content has been fetched.
func (s *Skill) ContentOrStub() string {
	if s.SkillMdContent != nil && *s.SkillMdContent != "" {
		return *s.SkillMdContent
	}
	return "# " + s.Name + "\n\n" + s.Description
}
