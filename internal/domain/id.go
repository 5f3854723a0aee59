package domain

import (
	"regexp"
	"strings"
)

var idSegmentRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateSkillID checks the id grammar: owner "/" repo ["/" name], each
// segment matching [A-Za-z0-9._-]+. When name == repo the short two-segment
// form is canonical.
func ValidateSkillID(id string) bool {
	parts := strings.Split(id, "/")
	if len(parts) != 2 && len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if !idSegmentRe.MatchString(p) {
			return false
		}
	}
	return true
}

// ExpandSkillID returns the three-segment form of a two-segment id
// (owner/repo -> owner/repo/repo). Three-segment ids are returned unchanged.
// Used as a lookup fallback when the short form misses.
func ExpandSkillID(id string) (string, bool) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 {
		return id, false
	}
	return parts[0] + "/" + parts[1] + "/" + parts[1], true
}

// CanonicalSkillID collapses owner/repo/repo to owner/repo.
func CanonicalSkillID(id string) string {
	parts := strings.Split(id, "/")
	if len(parts) == 3 && parts[1] == parts[2] {
		return parts[0] + "/" + parts[1]
	}
	return id
}

// InstallCommand renders the CLI install command for a skill.
func InstallCommand(s *Skill) string {
	if s.Repo == s.Name {
		return "npx skills add " + s.Owner + "/" + s.Repo
	}
	return "npx skills add " + s.Owner + "/" + s.Repo + " --skill " + s.Name
}
