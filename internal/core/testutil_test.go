package core

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"skillscope/internal/domain"
)

const (
	testAdmin  = "admin-1"
	testWorker = "worker-1"
	testUser   = "user-u"
)

// testCredential is a plausible iv||tag||ciphertext hex blob.
var testCredential = strings.Repeat("deadbeef", 8)

// fakeClock hands out strictly increasing timestamps so orderings derived
// from created_at are deterministic in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	clock := newFakeClock()
	all := append([]Option{WithClock(clock.Now)}, opts...)
	s := New(testAdmin, nil, all...)
	if err := s.AddWorker(testAdmin, testWorker); err != nil {
		t.Fatalf("add worker: %v", err)
	}
	return s
}

func mustAddSkill(t *testing.T, s *Store, id string) {
	t.Helper()
	parts := strings.Split(id, "/")
	sk := domain.Skill{
		ID:          id,
		Name:        parts[len(parts)-1],
		Description: "test skill",
		Owner:       parts[0],
		Repo:        parts[1],
		Source:      "test",
	}
	if _, err := s.AddSkill(testAdmin, sk); err != nil {
		t.Fatalf("add skill %s: %v", id, err)
	}
}

func mustSetCredential(t *testing.T, s *Store, identity string) {
	t.Helper()
	if err := s.SetEncryptedCredential(identity, testCredential); err != nil {
		t.Fatalf("set credential for %s: %v", identity, err)
	}
}

// minimalAnalysisJSON is a valid worker result document.
const minimalAnalysisJSON = `{
  "ratings": {
    "overall": 4.0,
    "topics": [
      {"topic": "Quality", "score": 80, "confidence": 75, "reasoning": "ok"}
    ],
    "flags": []
  },
  "primary_category": "programming",
  "secondary_categories": ["devops"],
  "tags": ["go"],
  "has_mcp": false,
  "provides_mcp": false,
  "required_mcps": [],
  "software_deps": [],
  "has_references": false,
  "has_assets": false,
  "estimated_token_usage": 800,
  "summary": "fine",
  "strengths": [],
  "weaknesses": [],
  "use_cases": [],
  "compatibility_notes": "",
  "prerequisites": [],
  "referenced_files": [],
  "referenced_urls": []
}`

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func mustUnmarshal(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

// analysisJSONWithCategory swaps the primary category of the minimal doc.
func analysisJSONWithCategory(category string) string {
	return strings.Replace(minimalAnalysisJSON, `"primary_category": "programming"`, `"primary_category": "`+category+`"`, 1)
}
