package domain

import (
	"fmt"
	"strings"
)

const (
	// MaxSkillContentBytes caps SKILL.md content. Anything larger is not a
	// real skill file.
	MaxSkillContentBytes = 200_000

	// MaxSkillFileBytes caps a single bundled file.
	MaxSkillFileBytes = 500_000

	// MaxFilesPerSkill caps the file set of one skill.
	MaxFilesPerSkill = 50
)

// SanitizeSkillContent validates and normalizes SKILL.md content: enforces
// the size cap, strips NUL bytes and collapses runs of more than two blank
// lines.
func SanitizeSkillContent(content string) (string, error) {
	if len(content) > MaxSkillContentBytes {
		return "", fmt.Errorf("content too large: %d bytes (max %d)", len(content), MaxSkillContentBytes)
	}
	cleaned := strings.ReplaceAll(content, "\x00", "")

	var b strings.Builder
	b.Grow(len(cleaned))
	blanks := 0
	for _, line := range strings.Split(cleaned, "\n") {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks <= 2 {
				b.WriteByte('\n')
			}
			continue
		}
		blanks = 0
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ValidateSkillFile enforces the per-file size cap and rejects traversal and
// absolute paths.
func ValidateSkillFile(f *SkillFile) error {
	if len(f.Content) > MaxSkillFileBytes {
		return fmt.Errorf("file %q too large: %d bytes (max %d)", f.Path, len(f.Content), MaxSkillFileBytes)
	}
	if f.Path == "" {
		return fmt.Errorf("empty file path")
	}
	if strings.Contains(f.Path, "..") || strings.HasPrefix(f.Path, "/") || strings.HasPrefix(f.Path, "\\") {
		return fmt.Errorf("invalid file path: %s", f.Path)
	}
	return nil
}
