package core

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"skillscope/internal/domain"
)

// seedQuerySkills inserts a fixed corpus of four skills (alice/alpha,
// alice/beta, bob/gamma, bob/delta), with alice/alpha and bob/delta analyzed.
func seedQuerySkills(t *testing.T, s *Store) {
	t.Helper()
	skills := []domain.Skill{
		{ID: "alice/alpha", Name: "alpha", Owner: "alice", Repo: "alpha", Description: "terraform helper", Stars: 5},
		{ID: "alice/beta", Name: "beta", Owner: "alice", Repo: "beta", Description: "a deploy skill", Stars: 50},
		{ID: "bob/gamma", Name: "gamma", Owner: "bob", Repo: "gamma", Description: "markdown tools", Stars: 20},
		{ID: "bob/delta", Name: "delta", Owner: "bob", Repo: "delta", Description: "security scanner", Stars: 1},
	}
	if _, err := s.AddSkillsBatch(testAdmin, skills); err != nil {
		t.Fatalf("seed: %v", err)
	}

	analyze := func(user, id, doc string) {
		mustSetCredential(t, s, user)
		jobID := requestJob(t, s, user, id)
		if _, err := s.ClaimPendingJobs(testWorker, 1); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := s.SubmitJobResult(testWorker, jobID, doc); err != nil {
			t.Fatalf("analyze %s: %v", id, err)
		}
	}
	analyze("u1", "alice/alpha", analysisJSONWithCategory("devops"))
	analyze("u2", "bob/delta", analysisJSONWithCategory("security"))
}

func matches(sk domain.Skill, q, category string) bool {
	if q != "" {
		ql := strings.ToLower(q)
		hit := strings.Contains(strings.ToLower(sk.Owner), ql) ||
			strings.Contains(strings.ToLower(sk.Repo), ql) ||
			strings.Contains(strings.ToLower(sk.Name), ql) ||
			strings.Contains(strings.ToLower(sk.Description), ql)
		if !hit {
			return false
		}
	}
	if category != "" {
		if sk.Analysis == nil {
			return false
		}
		if !strings.EqualFold(sk.Analysis.PrimaryCategory, category) {
			found := false
			for _, c := range sk.Analysis.SecondaryCategories {
				if strings.EqualFold(c, category) {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func TestListSkillsFilteredTotalSoundness(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)
	all := s.ListSkills()

	queries := []string{"", "alice", "skill", "security", "zzz"}
	categories := []string{"", "devops", "security", "nope"}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 40; i++ {
		q := queries[rng.Intn(len(queries))]
		c := categories[rng.Intn(len(categories))]
		_, total, err := s.ListSkillsFiltered(2, 0, SortName, q, c)
		if err != nil {
			t.Fatalf("filtered(%q, %q): %v", q, c, err)
		}
		want := 0
		for _, sk := range all {
			if matches(sk, q, c) {
				want++
			}
		}
		if int(total) != want {
			t.Fatalf("filtered(%q, %q) total = %d, want %d", q, c, total, want)
		}
	}
}

func TestListSkillsFilteredSorts(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	byStars, _, err := s.ListSkillsFiltered(10, 0, SortStars, "", "")
	if err != nil {
		t.Fatalf("stars sort: %v", err)
	}
	for i := 1; i < len(byStars); i++ {
		if byStars[i-1].Stars < byStars[i].Stars {
			t.Fatalf("stars not descending at %d", i)
		}
	}

	byName, _, err := s.ListSkillsFiltered(10, 0, SortName, "", "")
	if err != nil {
		t.Fatalf("name sort: %v", err)
	}
	for i := 1; i < len(byName); i++ {
		if strings.ToLower(byName[i-1].Name) > strings.ToLower(byName[i].Name) {
			t.Fatalf("name not ascending at %d", i)
		}
	}

	byRating, _, err := s.ListSkillsFiltered(10, 0, SortRating, "", "")
	if err != nil {
		t.Fatalf("rating sort: %v", err)
	}
	// Unrated skills sort last.
	seenUnrated := false
	for _, sk := range byRating {
		if sk.Analysis == nil {
			seenUnrated = true
		} else if seenUnrated {
			t.Fatalf("rated skill after unrated one")
		}
	}

	if _, _, err := s.ListSkillsFiltered(10, 0, "bogus", "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown sort key: %v", err)
	}
}

func TestListSkillsFilteredPagination(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	page1, total, err := s.ListSkillsFiltered(2, 0, SortName, "", "")
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	page2, _, err := s.ListSkillsFiltered(2, 2, SortName, "", "")
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	if total != 4 || len(page1) != 2 || len(page2) != 2 {
		t.Fatalf("pagination wrong: total=%d p1=%d p2=%d", total, len(page1), len(page2))
	}
	if page1[0].ID == page2[0].ID {
		t.Fatalf("pages overlap")
	}
	empty, _, err := s.ListSkillsFiltered(2, 10, SortName, "", "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("offset past end: %v, %d", err, len(empty))
	}
}

func TestSearchSkills(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	if got := s.SearchSkills(""); len(got) != 0 {
		t.Fatalf("empty query returned %d results", len(got))
	}
	results := s.SearchSkills("alpha")
	if len(results) == 0 {
		t.Fatalf("no results for alpha")
	}
	if results[0].Skill.Name != "alpha" {
		t.Fatalf("best match = %q", results[0].Skill.Name)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].RelevanceScore < results[i].RelevanceScore {
			t.Fatalf("relevance not descending")
		}
	}
	for _, r := range results {
		if r.RelevanceScore <= 0 {
			t.Fatalf("zero-score result leaked")
		}
	}
}

func TestCategoryQueries(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	categories := s.GetCategories()
	// Primary categories devops/security plus the shared secondary from the
	// minimal document.
	want := map[string]bool{"devops": true, "security": true}
	for _, c := range categories {
		delete(want, c)
	}
	if len(want) != 0 {
		t.Fatalf("categories missing: %v (got %v)", want, categories)
	}
	for i := 1; i < len(categories); i++ {
		if categories[i-1] > categories[i] {
			t.Fatalf("categories not sorted")
		}
	}

	devops := s.GetSkillsByCategory("DEVOPS")
	if len(devops) == 0 {
		t.Fatalf("case-insensitive category match failed")
	}
}

func TestOwnerTopRatedAndUnanalyzed(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	alice := s.GetSkillsByOwner("alice")
	if len(alice) != 2 {
		t.Fatalf("owner query = %d skills", len(alice))
	}

	top := s.GetTopRatedSkills(2)
	if len(top) != 2 || top[0].Analysis == nil {
		t.Fatalf("top rated wrong: %+v", top)
	}

	unanalyzed := s.GetUnanalyzedSkills()
	if len(unanalyzed) != 2 {
		t.Fatalf("unanalyzed = %d", len(unanalyzed))
	}
}

func TestTopicRatingQueries(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	skills, err := s.GetSkillsByTopicRating("Quality", 10)
	if err != nil {
		t.Fatalf("by topic: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("analyzed by topic = %d", len(skills))
	}
	if _, err := s.GetSkillsByTopicRating("Vibes", 10); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown topic: %v", err)
	}

	rating, err := s.GetSkillTopicRating("alice/alpha", "Quality")
	if err != nil || rating == nil || rating.Score != 80 {
		t.Fatalf("topic rating = %+v, %v", rating, err)
	}
}

func TestAllAnalysisHistory(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	entries, total := s.GetAllAnalysisHistory(10, 0)
	if total != 2 || len(entries) != 2 {
		t.Fatalf("history total = %d, entries = %d", total, len(entries))
	}
	if entries[0].Analysis.AnalyzedAt.Before(entries[1].Analysis.AnalyzedAt) {
		t.Fatalf("history not newest first")
	}

	entriesTotal, withHistory := s.GetAnalysisHistoryStats()
	if entriesTotal != 2 || withHistory != 2 {
		t.Fatalf("history stats = %d, %d", entriesTotal, withHistory)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)
	if _, err := s.RecordInstall(testUser, "alice/alpha"); err != nil {
		t.Fatalf("install: %v", err)
	}

	totalSkills, analyzed, installs, users := s.GetStats()
	if totalSkills != 4 || analyzed != 2 || installs != 1 {
		t.Fatalf("stats = %d, %d, %d", totalSkills, analyzed, installs)
	}
	// u1 and u2 created profiles by storing credentials.
	if users != 2 {
		t.Fatalf("users = %d", users)
	}

	total, content, history, jobs := s.GetMemoryStats()
	if total != content+history+jobs {
		t.Fatalf("memory total %d != %d+%d+%d", total, content, history, jobs)
	}
}

func TestMissingContentListing(t *testing.T) {
	s := newTestStore(t)
	seedQuerySkills(t, s)

	refs, total := s.ListSkillsMissingContent(10, 0)
	if total != 4 || len(refs) != 4 {
		t.Fatalf("missing content = %d/%d", len(refs), total)
	}
	content := "# alpha\n"
	if err := s.UpdateSkillMd(testAdmin, "alice/alpha", &content); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, total = s.ListSkillsMissingContent(10, 0)
	if total != 3 {
		t.Fatalf("missing content after update = %d", total)
	}

	// alice/alpha is analyzed and now has content; it is not unanalyzed.
	refs2, total2 := s.ListUnanalyzedWithContent(10, 0)
	if total2 != 0 || len(refs2) != 0 {
		t.Fatalf("unanalyzed with content = %d", total2)
	}
}
