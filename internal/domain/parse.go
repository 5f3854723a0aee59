package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisVersion stamps every analysis parsed by this build.
const AnalysisVersion = "2.2.0"

// Raw decoding shapes. Required fields are pointers so a missing key is
// distinguishable from a zero value; unknown enum tags fail the parse.
type rawTopicRating struct {
	Topic      *string `json:"topic"`
	Score      *int    `json:"score"`
	Confidence *int    `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type rawFlag struct {
	FlagType *string `json:"flag_type"`
	Severity *string `json:"severity"`
	Message  string  `json:"message"`
}

type rawRatings struct {
	Overall *float32         `json:"overall"`
	Topics  []rawTopicRating `json:"topics"`
	Flags   []rawFlag        `json:"flags"`
}

type rawMcpDep struct {
	Name     *string     `json:"name"`
	Package  string      `json:"package"`
	Required bool        `json:"required"`
	Ratings  *rawRatings `json:"ratings"`
}

type rawSoftwareDep struct {
	Name       *string     `json:"name"`
	InstallCmd *string     `json:"install_cmd"`
	URL        *string     `json:"url"`
	Required   bool        `json:"required"`
	Ratings    *rawRatings `json:"ratings"`
}

type rawReferencedFile struct {
	Path     *string `json:"path"`
	Context  string  `json:"context"`
	Resolved bool    `json:"resolved"`
}

type rawReferencedURL struct {
	URL     *string `json:"url"`
	Context string  `json:"context"`
	Fetched bool    `json:"fetched"`
}

type rawAnalysis struct {
	Ratings             *rawRatings         `json:"ratings"`
	PrimaryCategory     *string             `json:"primary_category"`
	SecondaryCategories []string            `json:"secondary_categories"`
	Tags                []string            `json:"tags"`
	HasMCP              *bool               `json:"has_mcp"`
	ProvidesMCP         bool                `json:"provides_mcp"`
	RequiredMCPs        []rawMcpDep         `json:"required_mcps"`
	SoftwareDeps        []rawSoftwareDep    `json:"software_deps"`
	HasReferences       *bool               `json:"has_references"`
	HasAssets           *bool               `json:"has_assets"`
	EstimatedTokenUsage *uint32             `json:"estimated_token_usage"`
	Summary             *string             `json:"summary"`
	Strengths           []string            `json:"strengths"`
	Weaknesses          []string            `json:"weaknesses"`
	UseCases            []string            `json:"use_cases"`
	CompatibilityNotes  string              `json:"compatibility_notes"`
	Prerequisites       []string            `json:"prerequisites"`
	ReferencedFiles     []rawReferencedFile `json:"referenced_files"`
	ReferencedURLs      []rawReferencedURL  `json:"referenced_urls"`
}

func clampScore(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return uint8(v)
}

func clampOverall(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

func convertRatings(raw *rawRatings) (Ratings, error) {
	if raw == nil || raw.Overall == nil {
		return Ratings{}, fmt.Errorf("missing ratings.overall")
	}
	out := Ratings{
		Overall: clampOverall(*raw.Overall),
		Topics:  make([]TopicRating, 0, len(raw.Topics)),
		Flags:   make([]RatingFlag, 0, len(raw.Flags)),
	}
	for _, t := range raw.Topics {
		if t.Topic == nil || t.Score == nil || t.Confidence == nil {
			return Ratings{}, fmt.Errorf("topic rating missing topic/score/confidence")
		}
		topic, ok := ParseRatingTopic(*t.Topic)
		if !ok {
			return Ratings{}, fmt.Errorf("unknown rating topic %q", *t.Topic)
		}
		out.Topics = append(out.Topics, TopicRating{
			Topic:      topic,
			Score:      clampScore(*t.Score),
			Confidence: clampScore(*t.Confidence),
			Reasoning:  t.Reasoning,
		})
	}
	for _, f := range raw.Flags {
		if f.FlagType == nil || f.Severity == nil {
			return Ratings{}, fmt.Errorf("rating flag missing flag_type/severity")
		}
		ft, ok := ParseFlagType(*f.FlagType)
		if !ok {
			return Ratings{}, fmt.Errorf("unknown flag type %q", *f.FlagType)
		}
		sev, ok := ParseFlagSeverity(*f.Severity)
		if !ok {
			return Ratings{}, fmt.Errorf("unknown flag severity %q", *f.Severity)
		}
		out.Flags = append(out.Flags, RatingFlag{FlagType: ft, Severity: sev, Message: f.Message})
	}
	return out, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ParseAnalysisJSON decodes a worker-produced analysis document into a
// SkillAnalysis. Text surrounding the outermost JSON object is tolerated
// (models wrap output in prose); missing required fields, type mismatches
// and unknown enum tags are errors. Provenance fields (analyzed_at/by,
// model_used, versions) are filled in by the caller.
func ParseAnalysisJSON(text string) (*SkillAnalysis, error) {
	jsonStr := text
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			jsonStr = text[start : end+1]
		}
	}

	var raw rawAnalysis
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	switch {
	case raw.Ratings == nil:
		return nil, fmt.Errorf("missing ratings")
	case raw.PrimaryCategory == nil:
		return nil, fmt.Errorf("missing primary_category")
	case raw.HasMCP == nil:
		return nil, fmt.Errorf("missing has_mcp")
	case raw.HasReferences == nil:
		return nil, fmt.Errorf("missing has_references")
	case raw.HasAssets == nil:
		return nil, fmt.Errorf("missing has_assets")
	case raw.EstimatedTokenUsage == nil:
		return nil, fmt.Errorf("missing estimated_token_usage")
	case raw.Summary == nil:
		return nil, fmt.Errorf("missing summary")
	}

	ratings, err := convertRatings(raw.Ratings)
	if err != nil {
		return nil, err
	}

	a := &SkillAnalysis{
		Ratings:             ratings,
		PrimaryCategory:     *raw.PrimaryCategory,
		SecondaryCategories: orEmpty(raw.SecondaryCategories),
		Tags:                orEmpty(raw.Tags),
		HasMCP:              *raw.HasMCP,
		ProvidesMCP:         raw.ProvidesMCP,
		RequiredMCPs:        make([]McpDependency, 0, len(raw.RequiredMCPs)),
		SoftwareDeps:        make([]SoftwareDependency, 0, len(raw.SoftwareDeps)),
		HasReferences:       *raw.HasReferences,
		HasAssets:           *raw.HasAssets,
		EstimatedTokenUsage: *raw.EstimatedTokenUsage,
		Summary:             *raw.Summary,
		Strengths:           orEmpty(raw.Strengths),
		Weaknesses:          orEmpty(raw.Weaknesses),
		UseCases:            orEmpty(raw.UseCases),
		CompatibilityNotes:  raw.CompatibilityNotes,
		Prerequisites:       orEmpty(raw.Prerequisites),
		ReferencedFiles:     make([]ReferencedFile, 0, len(raw.ReferencedFiles)),
		ReferencedURLs:      make([]ReferencedURL, 0, len(raw.ReferencedURLs)),
		AnalysisVersion:     AnalysisVersion,
	}

	for _, m := range raw.RequiredMCPs {
		if m.Name == nil {
			return nil, fmt.Errorf("required_mcps entry missing name")
		}
		dep := McpDependency{Name: *m.Name, Package: m.Package, Required: m.Required}
		if m.Ratings != nil {
			r, err := convertRatings(m.Ratings)
			if err != nil {
				return nil, fmt.Errorf("required_mcps %q: %w", *m.Name, err)
			}
			dep.Ratings = &r
		}
		a.RequiredMCPs = append(a.RequiredMCPs, dep)
	}
	for _, s := range raw.SoftwareDeps {
		if s.Name == nil {
			return nil, fmt.Errorf("software_deps entry missing name")
		}
		dep := SoftwareDependency{Name: *s.Name, InstallCmd: s.InstallCmd, URL: s.URL, Required: s.Required}
		if s.Ratings != nil {
			r, err := convertRatings(s.Ratings)
			if err != nil {
				return nil, fmt.Errorf("software_deps %q: %w", *s.Name, err)
			}
			dep.Ratings = &r
		}
		a.SoftwareDeps = append(a.SoftwareDeps, dep)
	}
	for _, rf := range raw.ReferencedFiles {
		if rf.Path == nil {
			return nil, fmt.Errorf("referenced_files entry missing path")
		}
		a.ReferencedFiles = append(a.ReferencedFiles, ReferencedFile{Path: *rf.Path, Context: rf.Context, Resolved: rf.Resolved})
	}
	for _, ru := range raw.ReferencedURLs {
		if ru.URL == nil {
			return nil, fmt.Errorf("referenced_urls entry missing url")
		}
		a.ReferencedURLs = append(a.ReferencedURLs, ReferencedURL{URL: *ru.URL, Context: ru.Context, Fetched: ru.Fetched})
	}

	return a, nil
}
