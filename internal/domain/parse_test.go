package domain

import (
	"strings"
	"testing"
)

const validAnalysisJSON = `{
  "ratings": {
    "overall": 4.2,
    "topics": [
      {"topic": "Quality", "score": 85, "confidence": 90, "reasoning": "well structured"},
      {"topic": "Security", "score": 70, "confidence": 60, "reasoning": "no obvious issues"}
    ],
    "flags": [
      {"flag_type": "UnverifiedSource", "severity": "Info", "message": "new publisher"}
    ]
  },
  "primary_category": "programming",
  "secondary_categories": ["devops"],
  "tags": ["go", "testing"],
  "has_mcp": false,
  "provides_mcp": false,
  "required_mcps": [],
  "software_deps": [
    {"name": "go", "install_cmd": "brew install go", "url": null, "required": true}
  ],
  "has_references": true,
  "has_assets": false,
  "estimated_token_usage": 1200,
  "summary": "A solid skill.",
  "strengths": ["clear"],
  "weaknesses": [],
  "use_cases": ["ci"],
  "compatibility_notes": "works everywhere",
  "prerequisites": [],
  "referenced_files": [
    {"path": "api.md", "context": "API reference", "resolved": false}
  ],
  "referenced_urls": []
}`

func TestParseAnalysisJSON(t *testing.T) {
	a, err := ParseAnalysisJSON(validAnalysisJSON)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.Ratings.Overall != 4.2 {
		t.Fatalf("overall = %v", a.Ratings.Overall)
	}
	if len(a.Ratings.Topics) != 2 || a.Ratings.Topics[0].Topic != TopicQuality {
		t.Fatalf("unexpected topics: %+v", a.Ratings.Topics)
	}
	if a.PrimaryCategory != "programming" {
		t.Fatalf("primary category = %q", a.PrimaryCategory)
	}
	if len(a.SoftwareDeps) != 1 || a.SoftwareDeps[0].InstallCmd == nil {
		t.Fatalf("unexpected software deps: %+v", a.SoftwareDeps)
	}
	if a.AnalysisVersion != AnalysisVersion {
		t.Fatalf("analysis version = %q", a.AnalysisVersion)
	}
	if len(a.ReferencedFiles) != 1 || a.ReferencedFiles[0].Path != "api.md" {
		t.Fatalf("unexpected referenced files: %+v", a.ReferencedFiles)
	}
}

func TestParseAnalysisJSONSurroundingProse(t *testing.T) {
	wrapped := "Here is the analysis:\n" + validAnalysisJSON + "\nHope that helps!"
	if _, err := ParseAnalysisJSON(wrapped); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestParseAnalysisJSONMissingRequired(t *testing.T) {
	cases := []string{
		`"ratings"`,
		`"primary_category"`,
		`"has_mcp"`,
		`"has_references"`,
		`"has_assets"`,
		`"estimated_token_usage"`,
		`"summary"`,
	}
	for _, field := range cases {
		// Rename the field so it is absent from the document.
		broken := strings.Replace(validAnalysisJSON, field, `"x_`+strings.Trim(field, `"`)+`"`, 1)
		if _, err := ParseAnalysisJSON(broken); err == nil {
			t.Fatalf("expected error with %s missing", field)
		}
	}
}

func TestParseAnalysisJSONUnknownEnums(t *testing.T) {
	badTopic := strings.Replace(validAnalysisJSON, `"topic": "Quality"`, `"topic": "Vibes"`, 1)
	if _, err := ParseAnalysisJSON(badTopic); err == nil {
		t.Fatalf("expected error for unknown topic")
	}
	badFlag := strings.Replace(validAnalysisJSON, `"flag_type": "UnverifiedSource"`, `"flag_type": "Sketchy"`, 1)
	if _, err := ParseAnalysisJSON(badFlag); err == nil {
		t.Fatalf("expected error for unknown flag type")
	}
	badSeverity := strings.Replace(validAnalysisJSON, `"severity": "Info"`, `"severity": "Mild"`, 1)
	if _, err := ParseAnalysisJSON(badSeverity); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestParseAnalysisJSONWrongType(t *testing.T) {
	wrongType := strings.Replace(validAnalysisJSON, `"has_mcp": false`, `"has_mcp": "nope"`, 1)
	if _, err := ParseAnalysisJSON(wrongType); err == nil {
		t.Fatalf("expected error for wrong field type")
	}
}

func TestParseAnalysisJSONClamps(t *testing.T) {
	clamped := strings.Replace(validAnalysisJSON, `"overall": 4.2`, `"overall": 9.9`, 1)
	clamped = strings.Replace(clamped, `"score": 85`, `"score": 250`, 1)
	a, err := ParseAnalysisJSON(clamped)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.Ratings.Overall != 5.0 {
		t.Fatalf("overall not clamped: %v", a.Ratings.Overall)
	}
	if a.Ratings.Topics[0].Score != 100 {
		t.Fatalf("score not clamped: %v", a.Ratings.Topics[0].Score)
	}
}
