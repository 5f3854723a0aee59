package core

import (
	"fmt"
	"sort"
	"strings"

	"skillscope/internal/domain"
)

// Sort keys accepted by ListSkillsFiltered.
const (
	SortRating   = "rating"
	SortInstalls = "installs"
	SortStars    = "stars"
	SortRecent   = "recent"
	SortName     = "name"
)

func (s *Store) snapshotSkillsLocked(keep func(*domain.Skill) bool) []domain.Skill {
	out := make([]domain.Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		if keep == nil || keep(sk) {
			out = append(out, *sk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// GetSkill returns a skill by id, accepting both the short and the expanded
// form.
func (s *Store) GetSkill(id string) (*domain.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(id)
	if !ok {
		return nil, fmt.Errorf("%w: skill %s", ErrNotFound, id)
	}
	cp := *sk
	return &cp, nil
}

// ListSkills returns every skill, ordered by id.
func (s *Store) ListSkills() []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSkillsLocked(nil)
}

// ListSkillsPage returns a stars-descending page and the total count.
func (s *Store) ListSkillsPage(limit, offset int) ([]domain.Skill, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.snapshotSkillsLocked(nil)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Stars > all[j].Stars })
	return pageOf(all, limit, offset), uint32(len(all))
}

func overallRating(sk *domain.Skill) (float32, bool) {
	if sk.Analysis == nil {
		return 0, false
	}
	return sk.Analysis.Ratings.Overall, true
}

func matchesCategory(sk *domain.Skill, category string) bool {
	if sk.Analysis == nil {
		return false
	}
	if strings.EqualFold(sk.Analysis.PrimaryCategory, category) {
		return true
	}
	for _, c := range sk.Analysis.SecondaryCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

func matchesSearch(sk *domain.Skill, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(sk.Owner), q) ||
		strings.Contains(strings.ToLower(sk.Repo), q) ||
		strings.Contains(strings.ToLower(sk.Name), q) ||
		strings.Contains(strings.ToLower(sk.Description), q)
}

// ListSkillsFiltered is the paginated, filterable, sortable listing. The
// returned total reflects the filter, not the page. Empty search and
// category match everything; an unknown sort key is rejected.
func (s *Store) ListSkillsFiltered(limit, offset int, sortBy, search, category string) ([]domain.Skill, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch sortBy {
	case SortRating, SortInstalls, SortStars, SortRecent, SortName, "":
	default:
		return nil, 0, fmt.Errorf("%w: unknown sort key %q", ErrInvalidArgument, sortBy)
	}

	all := s.snapshotSkillsLocked(func(sk *domain.Skill) bool {
		if search != "" && !matchesSearch(sk, search) {
			return false
		}
		if category != "" && !matchesCategory(sk, category) {
			return false
		}
		return true
	})
	total := uint32(len(all))

	switch sortBy {
	case SortRating:
		sort.SliceStable(all, func(i, j int) bool {
			ri, oki := overallRating(&all[i])
			rj, okj := overallRating(&all[j])
			if oki != okj {
				return oki // unrated last
			}
			return ri > rj
		})
	case SortStars:
		sort.SliceStable(all, func(i, j int) bool { return all[i].Stars > all[j].Stars })
	case SortRecent:
		sort.SliceStable(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	case SortName:
		sort.SliceStable(all, func(i, j int) bool {
			return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
		})
	default: // installs
		sort.SliceStable(all, func(i, j int) bool { return all[i].InstallCount > all[j].InstallCount })
	}

	return pageOf(all, limit, offset), total, nil
}

// SearchSkills scores skills against whitespace-separated terms: name hits
// weigh 3, description 2, primary category 2, each matching tag 1. Zero
// scores are excluded; results are ordered by relevance. An empty query
// returns nothing.
func (s *Store) SearchSkills(query string) []domain.SkillSearchResult {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []domain.SkillSearchResult{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]domain.SkillSearchResult, 0)
	for _, sk := range s.snapshotSkillsLocked(nil) {
		var score float32
		name := strings.ToLower(sk.Name)
		desc := strings.ToLower(sk.Description)
		for _, term := range terms {
			if strings.Contains(name, term) {
				score += 3
			}
			if strings.Contains(desc, term) {
				score += 2
			}
			if sk.Analysis != nil {
				if strings.Contains(strings.ToLower(sk.Analysis.PrimaryCategory), term) {
					score += 2
				}
				for _, tag := range sk.Analysis.Tags {
					if strings.Contains(strings.ToLower(tag), term) {
						score += 1
					}
				}
			}
		}
		if score > 0 {
			results = append(results, domain.SkillSearchResult{Skill: sk, RelevanceScore: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].RelevanceScore > results[j].RelevanceScore })
	return results
}

// GetSkillsByCategory returns skills whose primary or secondary category
// matches, case-insensitively.
func (s *Store) GetSkillsByCategory(category string) []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSkillsLocked(func(sk *domain.Skill) bool {
		return matchesCategory(sk, category)
	})
}

// GetSkillsByOwner returns skills published by one owner.
func (s *Store) GetSkillsByOwner(owner string) []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSkillsLocked(func(sk *domain.Skill) bool {
		return strings.EqualFold(sk.Owner, owner)
	})
}

// GetTopRatedSkills returns the n highest-rated skills; unrated skills rank
// last.
func (s *Store) GetTopRatedSkills(n int) []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.snapshotSkillsLocked(nil)
	sort.SliceStable(all, func(i, j int) bool {
		ri, oki := overallRating(&all[i])
		rj, okj := overallRating(&all[j])
		if oki != okj {
			return oki
		}
		return ri > rj
	})
	return pageOf(all, n, 0)
}

// GetSkillsProvidingMCP returns skills whose analysis says they provide an
// MCP server.
func (s *Store) GetSkillsProvidingMCP() []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSkillsLocked(func(sk *domain.Skill) bool {
		return sk.Analysis != nil && sk.Analysis.ProvidesMCP
	})
}

// GetSkillsWithDependencies returns skills whose analysis lists required
// MCPs or software dependencies.
func (s *Store) GetSkillsWithDependencies() []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSkillsLocked(func(sk *domain.Skill) bool {
		return sk.Analysis != nil && (len(sk.Analysis.RequiredMCPs) > 0 || len(sk.Analysis.SoftwareDeps) > 0)
	})
}

// FlaggedSkill pairs a skill with its non-informational flags.
type FlaggedSkill struct {
	Skill domain.Skill        `json:"skill"`
	Flags []domain.RatingFlag `json:"flags"`
}

// GetSkillsWithFlags returns skills carrying Warning or Critical flags.
func (s *Store) GetSkillsWithFlags() []FlaggedSkill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FlaggedSkill, 0)
	for _, sk := range s.snapshotSkillsLocked(nil) {
		if sk.Analysis == nil {
			continue
		}
		flags := make([]domain.RatingFlag, 0)
		for _, f := range sk.Analysis.Ratings.Flags {
			if f.Severity != domain.SeverityInfo {
				flags = append(flags, f)
			}
		}
		if len(flags) > 0 {
			out = append(out, FlaggedSkill{Skill: sk, Flags: flags})
		}
	}
	return out
}

func topicScore(sk *domain.Skill, topic domain.RatingTopic) uint8 {
	if sk.Analysis == nil {
		return 0
	}
	for _, t := range sk.Analysis.Ratings.Topics {
		if t.Topic == topic {
			return t.Score
		}
	}
	return 0
}

// GetSkillsByTopicRating returns the n analyzed skills with the highest
// score on one topic. Unknown topics are rejected.
func (s *Store) GetSkillsByTopicRating(topic string, n int) ([]domain.Skill, error) {
	t, ok := domain.ParseRatingTopic(topic)
	if !ok {
		return nil, fmt.Errorf("%w: unknown rating topic %q", ErrInvalidArgument, topic)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	analyzed := s.snapshotSkillsLocked(func(sk *domain.Skill) bool { return sk.Analysis != nil })
	sort.SliceStable(analyzed, func(i, j int) bool {
		return topicScore(&analyzed[i], t) > topicScore(&analyzed[j], t)
	})
	return pageOf(analyzed, n, 0), nil
}

// GetSkillTopicRating returns a skill's rating on one topic, if analyzed.
func (s *Store) GetSkillTopicRating(skillID, topic string) (*domain.TopicRating, error) {
	t, ok := domain.ParseRatingTopic(topic)
	if !ok {
		return nil, fmt.Errorf("%w: unknown rating topic %q", ErrInvalidArgument, topic)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, found := s.lookupSkill(skillID)
	if !found {
		return nil, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	if sk.Analysis == nil {
		return nil, nil
	}
	for _, tr := range sk.Analysis.Ratings.Topics {
		if tr.Topic == t {
			cp := tr
			return &cp, nil
		}
	}
	return nil, nil
}

// GetUnanalyzedSkills returns skills without a current analysis.
func (s *Store) GetUnanalyzedSkills() []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSkillsLocked(func(sk *domain.Skill) bool { return sk.Analysis == nil })
}

// GetCategories returns the sorted unique primary and secondary categories
// across analyzed skills.
func (s *Store) GetCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, sk := range s.skills {
		if sk.Analysis == nil {
			continue
		}
		seen[sk.Analysis.PrimaryCategory] = struct{}{}
		for _, c := range sk.Analysis.SecondaryCategories {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SkillRef is the lightweight (id, owner, repo, name) tuple used by
// maintenance scripts.
type SkillRef struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Name  string `json:"name"`
}

// ListSkillsMissingContent pages over skills without SKILL.md content.
func (s *Store) ListSkillsMissingContent(limit, offset int) ([]SkillRef, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	missing := s.snapshotSkillsLocked(func(sk *domain.Skill) bool { return sk.SkillMdContent == nil })
	refs := make([]SkillRef, 0, len(missing))
	for _, sk := range missing {
		refs = append(refs, SkillRef{ID: sk.ID, Owner: sk.Owner, Repo: sk.Repo, Name: sk.Name})
	}
	return pageOf(refs, limit, offset), uint32(len(refs))
}

// UnanalyzedRef is a candidate for bulk analysis, ordered by installs.
type UnanalyzedRef struct {
	ID           string `json:"id"`
	InstallCount uint64 `json:"install_count"`
}

// ListUnanalyzedWithContent pages over unanalyzed skills that already have
// content, most-installed first.
func (s *Store) ListUnanalyzedWithContent(limit, offset int) ([]UnanalyzedRef, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidates := s.snapshotSkillsLocked(func(sk *domain.Skill) bool {
		return sk.Analysis == nil && sk.SkillMdContent != nil
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].InstallCount > candidates[j].InstallCount
	})
	refs := make([]UnanalyzedRef, 0, len(candidates))
	for _, sk := range candidates {
		refs = append(refs, UnanalyzedRef{ID: sk.ID, InstallCount: sk.InstallCount})
	}
	return pageOf(refs, limit, offset), uint32(len(refs))
}

// GetInstallCommand renders the CLI install command for a skill.
func (s *Store) GetInstallCommand(skillID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return "", fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	return domain.InstallCommand(sk), nil
}

// GetSkillFile returns one file of a skill.
func (s *Store) GetSkillFile(skillID, path string) (*domain.SkillFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return nil, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	for _, f := range sk.Files {
		if f.Path == path {
			cp := f
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: file %s in skill %s", ErrNotFound, path, skillID)
}

// GetSkillFiles returns the full file set of a skill.
func (s *Store) GetSkillFiles(skillID string) ([]domain.SkillFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return nil, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	out := make([]domain.SkillFile, len(sk.Files))
	copy(out, sk.Files)
	return out, nil
}

// GetSkillChecksum returns the aggregate files-checksum, if any.
func (s *Store) GetSkillChecksum(skillID string) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return nil, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	return sk.FilesChecksum, nil
}

// GetSkillFileChecksums returns (path, checksum) pairs for a skill's files.
func (s *Store) GetSkillFileChecksums(skillID string) ([]PathChecksum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return nil, fmt.Errorf("%w: skill %s", ErrNotFound, skillID)
	}
	out := make([]PathChecksum, 0, len(sk.Files))
	for _, f := range sk.Files {
		out = append(out, PathChecksum{Path: f.Path, Checksum: f.Checksum})
	}
	return out, nil
}

// GetAnalysisHistory returns a skill's analysis history, latest first.
func (s *Store) GetAnalysisHistory(skillID string) []domain.SkillAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return []domain.SkillAnalysis{}
	}
	out := make([]domain.SkillAnalysis, len(sk.AnalysisHistory))
	copy(out, sk.AnalysisHistory)
	return out
}

// GetFileHistory returns a skill's file version history, latest first.
func (s *Store) GetFileHistory(skillID string) []domain.SkillFileVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.lookupSkill(skillID)
	if !ok {
		return []domain.SkillFileVersion{}
	}
	out := make([]domain.SkillFileVersion, len(sk.FileHistory))
	copy(out, sk.FileHistory)
	return out
}

// HistoryEntry attaches the owning skill id to one analysis history record.
type HistoryEntry struct {
	SkillID  string               `json:"skill_id"`
	Analysis domain.SkillAnalysis `json:"analysis"`
}

// GetAllAnalysisHistory pages over every analysis across all skills, newest
// first by analyzed_at.
func (s *Store) GetAllAnalysisHistory(limit, offset int) ([]HistoryEntry, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]HistoryEntry, 0)
	for _, sk := range s.snapshotSkillsLocked(nil) {
		for _, a := range sk.AnalysisHistory {
			all = append(all, HistoryEntry{SkillID: sk.ID, Analysis: a})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Analysis.AnalyzedAt.After(all[j].Analysis.AnalyzedAt)
	})
	return pageOf(all, limit, offset), uint32(len(all))
}
