package worker

import "testing"

func TestCandidatePaths(t *testing.T) {
	named := candidatePaths("docx")
	if named[0] != "main/SKILL.md" || named[1] != "master/SKILL.md" {
		t.Fatalf("root candidates wrong: %v", named)
	}
	foundSub := false
	for _, p := range named {
		if p == "main/skills/docx/SKILL.md" {
			foundSub = true
		}
	}
	if !foundSub {
		t.Fatalf("subdirectory candidate missing: %v", named)
	}

	if got := candidatePaths(""); len(got) != 2 {
		t.Fatalf("unnamed skill candidates = %v", got)
	}
}

func TestReferencedPaths(t *testing.T) {
	content := "Read [api.md] first, then run `scripts/setup.py`.\n" +
		"See (references/deep.md) and https://example.com/doc.md for more.\n" +
		"Do not follow [../escape.md] or [/abs.md] or [SKILL.md].\n" +
		"Duplicate: [api.md]\n"
	got := referencedPaths(content)

	want := map[string]bool{"api.md": true, "scripts/setup.py": true, "references/deep.md": true}
	if len(got) != len(want) {
		t.Fatalf("referenced paths = %v", got)
	}
	for _, p := range got {
		if !want[p] {
			t.Fatalf("unexpected path %q in %v", p, got)
		}
	}
}
