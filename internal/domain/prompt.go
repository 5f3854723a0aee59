package domain

import "time"

// AnalysisPrompt is a versioned prompt template. At most one prompt is the
// default at any time.
type AnalysisPrompt struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	PromptTemplate string    `json:"prompt_template"`
	Description    string    `json:"description"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	IsDefault      bool      `json:"is_default"`
}

// DefaultPromptID is the seeded prompt's id.
const DefaultPromptID = "default-v1"

// DefaultPromptVersion tracks the template below; bumped whenever the
// template changes so refreshed deployments overwrite the stored copy.
const DefaultPromptVersion = "1.1.0"

// DefaultPromptTemplate is the analysis prompt seeded at first start.
// Placeholders {owner}, {repo}, {name}, {description}, {content} and {files}
// are substituted by workers before execution.
const DefaultPromptTemplate = `Analyze this Claude Code skill and provide evaluation as JSON.

SKILL: {owner}/{repo}
NAME: {name}
DESCRIPTION: {description}

CONTENT:
{content}
{files}

Rate this skill on EACH of these topics (0-100 scale):
- Quality: Code/content quality
- Documentation: How well documented
- Maintainability: Easy to maintain
- Completeness: Covers what it claims
- Security: Security best practices
- Malicious: Safety score (100=completely safe, 0=definitely malicious)
- Privacy: Privacy considerations
- Usability: Easy to use/install
- Compatibility: Works with various setups
- Performance: Efficient, not wasteful
- Trustworthiness: Can we trust this source
- Maintenance: Actively maintained
- Community: Community support

Also analyze:
1. Whether it PROVIDES an MCP server (provides_mcp)
2. Whether it REQUIRES other MCPs to work (required_mcps) - rate each dependency
3. Software dependencies needed (software_deps) - rate each dependency
4. Referenced files: Identify ANY files the skill references that it expects the agent to read (e.g. [docx-js.md], backtick references like ` + "`api-reference.md`" + `, instructions like "read X.md", "see the file Y", companion docs). List each with its path and why it's referenced.
5. Referenced URLs: Identify ANY URLs/websites the skill tells the agent to visit or read (e.g. documentation links, API references, external resources). List each with its URL and purpose.

Return JSON:
{
  "ratings": {
    "overall": <0.0-5.0>,
    "topics": [
      {"topic": "Quality", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Documentation", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Maintainability", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Completeness", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Security", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Malicious", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Privacy", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Usability", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Compatibility", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Performance", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Trustworthiness", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Maintenance", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"},
      {"topic": "Community", "score": <0-100>, "confidence": <0-100>, "reasoning": "<brief>"}
    ],
    "flags": [
      {"flag_type": "<SecurityRisk|MaliciousPattern|PrivacyConcern|Unmaintained|Deprecated|ExcessivePermissions|UnverifiedSource|KnownVulnerability>", "severity": "<Info|Warning|Critical>", "message": "<description>"}
    ]
  },
  "primary_category": "<web|programming|systems|blockchain|ai|devops|data|security|productivity|meta>",
  "secondary_categories": [],
  "tags": [],
  "has_mcp": <bool>,
  "provides_mcp": <bool>,
  "required_mcps": [],
  "software_deps": [],
  "has_references": <bool>,
  "has_assets": <bool>,
  "estimated_token_usage": <int>,
  "summary": "<2-3 sentences>",
  "strengths": [],
  "weaknesses": [],
  "use_cases": [],
  "compatibility_notes": "<string>",
  "prerequisites": [],
  "referenced_files": [
    {"path": "<filename.md>", "context": "<why this file is referenced>", "resolved": false}
  ],
  "referenced_urls": [
    {"url": "<https://...>", "context": "<what the URL is for>", "fetched": false}
  ]
}

IMPORTANT:
- Malicious score 100 = completely safe, 0 = definitely malicious
- Flag any security concerns, even minor ones
- Be conservative with trust scores for unknown sources
- Return ONLY valid JSON`
