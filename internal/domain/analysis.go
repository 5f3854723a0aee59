package domain

import "time"

// RatingTopic is the closed set of rating dimensions.
type RatingTopic string

const (
	TopicQuality         RatingTopic = "Quality"
	TopicDocumentation   RatingTopic = "Documentation"
	TopicMaintainability RatingTopic = "Maintainability"
	TopicCompleteness    RatingTopic = "Completeness"
	TopicSecurity        RatingTopic = "Security"
	TopicMalicious       RatingTopic = "Malicious"
	TopicPrivacy         RatingTopic = "Privacy"
	TopicUsability       RatingTopic = "Usability"
	TopicCompatibility   RatingTopic = "Compatibility"
	TopicPerformance     RatingTopic = "Performance"
	TopicTrustworthiness RatingTopic = "Trustworthiness"
	TopicMaintenance     RatingTopic = "Maintenance"
	TopicCommunity       RatingTopic = "Community"
)

var allTopics = map[RatingTopic]struct{}{
	TopicQuality: {}, TopicDocumentation: {}, TopicMaintainability: {},
	TopicCompleteness: {}, TopicSecurity: {}, TopicMalicious: {},
	TopicPrivacy: {}, TopicUsability: {}, TopicCompatibility: {},
	TopicPerformance: {}, TopicTrustworthiness: {}, TopicMaintenance: {},
	TopicCommunity: {},
}

// ParseRatingTopic rejects unknown tags.
func ParseRatingTopic(s string) (RatingTopic, bool) {
	_, ok := allTopics[RatingTopic(s)]
	if !ok {
		return "", false
	}
	return RatingTopic(s), true
}

// FlagType is the closed set of warning flag kinds.
type FlagType string

const (
	FlagSecurityRisk         FlagType = "SecurityRisk"
	FlagMaliciousPattern     FlagType = "MaliciousPattern"
	FlagPrivacyConcern       FlagType = "PrivacyConcern"
	FlagUnmaintained         FlagType = "Unmaintained"
	FlagDeprecated           FlagType = "Deprecated"
	FlagExcessivePermissions FlagType = "ExcessivePermissions"
	FlagUnverifiedSource     FlagType = "UnverifiedSource"
	FlagKnownVulnerability   FlagType = "KnownVulnerability"
)

// ParseFlagType rejects unknown tags.
func ParseFlagType(s string) (FlagType, bool) {
	switch FlagType(s) {
	case FlagSecurityRisk, FlagMaliciousPattern, FlagPrivacyConcern,
		FlagUnmaintained, FlagDeprecated, FlagExcessivePermissions,
		FlagUnverifiedSource, FlagKnownVulnerability:
		return FlagType(s), true
	}
	return "", false
}

// FlagSeverity grades a flag.
type FlagSeverity string

const (
	SeverityInfo     FlagSeverity = "Info"
	SeverityWarning  FlagSeverity = "Warning"
	SeverityCritical FlagSeverity = "Critical"
)

// ParseFlagSeverity rejects unknown tags.
func ParseFlagSeverity(s string) (FlagSeverity, bool) {
	switch FlagSeverity(s) {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return FlagSeverity(s), true
	}
	return "", false
}

// TopicRating scores one topic on a 0-100 scale.
type TopicRating struct {
	Topic      RatingTopic `json:"topic"`
	Score      uint8       `json:"score"`
	Confidence uint8       `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
}

type RatingFlag struct {
	FlagType FlagType     `json:"flag_type"`
	Severity FlagSeverity `json:"severity"`
	Message  string       `json:"message"`
}

// Ratings aggregates topic scores. Overall is a 0.0-5.0 weighted average.
type Ratings struct {
	Overall float32       `json:"overall"`
	Topics  []TopicRating `json:"topics"`
	Flags   []RatingFlag  `json:"flags"`
}

// McpDependency is an MCP server a skill requires, optionally with its own
// ratings from the analysis.
type McpDependency struct {
	Name     string   `json:"name"`
	Package  string   `json:"package"`
	Required bool     `json:"required"`
	Indexed  bool     `json:"indexed"`
	Verified bool     `json:"verified"`
	Ratings  *Ratings `json:"ratings,omitempty"`
}

type SoftwareDependency struct {
	Name       string   `json:"name"`
	InstallCmd *string  `json:"install_cmd,omitempty"`
	URL        *string  `json:"url,omitempty"`
	Required   bool     `json:"required"`
	Ratings    *Ratings `json:"ratings,omitempty"`
}

// ReferencedFile is a companion file the skill expects the agent to read.
type ReferencedFile struct {
	Path     string `json:"path"`
	Context  string `json:"context"`
	Resolved bool   `json:"resolved"`
}

type ReferencedURL struct {
	URL     string `json:"url"`
	Context string `json:"context"`
	Fetched bool   `json:"fetched"`
}

// SkillAnalysis is one immutable entry of a skill's analysis history.
type SkillAnalysis struct {
	Ratings Ratings `json:"ratings"`

	PrimaryCategory     string   `json:"primary_category"`
	SecondaryCategories []string `json:"secondary_categories"`
	Tags                []string `json:"tags"`

	HasMCP       bool            `json:"has_mcp"`
	ProvidesMCP  bool            `json:"provides_mcp"`
	RequiredMCPs []McpDependency `json:"required_mcps"`

	SoftwareDeps []SoftwareDependency `json:"software_deps"`

	HasReferences       bool   `json:"has_references"`
	HasAssets           bool   `json:"has_assets"`
	EstimatedTokenUsage uint32 `json:"estimated_token_usage"`

	Summary            string   `json:"summary"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	UseCases           []string `json:"use_cases"`
	CompatibilityNotes string   `json:"compatibility_notes"`
	Prerequisites      []string `json:"prerequisites"`

	ReferencedFiles []ReferencedFile `json:"referenced_files"`
	ReferencedURLs  []ReferencedURL  `json:"referenced_urls"`

	AnalyzedAt       time.Time `json:"analyzed_at"`
	AnalyzedBy       string    `json:"analyzed_by"`
	ModelUsed        string    `json:"model_used"`
	AnalysisVersion  string    `json:"analysis_version"`
	TeeWorkerVersion *string   `json:"tee_worker_version,omitempty"`
	PromptVersion    *string   `json:"prompt_version,omitempty"`
}

// SkillSearchResult pairs a skill with its relevance score for a query.
type SkillSearchResult struct {
	Skill          Skill   `json:"skill"`
	RelevanceScore float32 `json:"relevance_score"`
}
