package worker

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"skillscope/internal/domain"
)

// Fetcher pulls skill contents from the source host's raw file endpoints.
type Fetcher struct {
	rawBase   string
	userAgent string
	timeout   time.Duration
}

// NewFetcher targets a raw content base such as
// "https://raw.githubusercontent.com".
func NewFetcher(rawBase string) *Fetcher {
	return &Fetcher{
		rawBase:   strings.TrimRight(rawBase, "/"),
		userAgent: "skillscope-worker/1.0",
		timeout:   20 * time.Second,
	}
}

// FetchOutcome mirrors the enrichment completion payload: found=false means
// every candidate location 404'd, which the core records as NotFound.
type FetchOutcome struct {
	Found     bool
	Content   string
	SourceURL string
	Files     []domain.EnrichmentFile
}

// candidatePaths are the locations SKILL.md is published at, in order of
// likelihood. {name} is the skill name for bundles living in a subdirectory.
func candidatePaths(name string) []string {
	paths := []string{
		"main/SKILL.md",
		"master/SKILL.md",
	}
	if name != "" {
		paths = append(paths,
			"main/skills/"+name+"/SKILL.md",
			"master/skills/"+name+"/SKILL.md",
			"main/"+name+"/SKILL.md",
		)
	}
	return paths
}

func (f *Fetcher) collector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(f.timeout)
	return c
}

// fetchRaw retrieves one raw file. Missing files return ("", false, nil).
func (f *Fetcher) fetchRaw(url string) (string, bool, error) {
	var (
		body    string
		found   bool
		fetched bool
		lastErr error
	)

	c := f.collector()
	c.OnResponse(func(r *colly.Response) {
		fetched = true
		if r.StatusCode == 200 {
			body = string(r.Body)
			found = true
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode == 404 {
			fetched = true
			return
		}
		lastErr = err
	})

	if err := c.Visit(url); err != nil && lastErr == nil && !fetched {
		lastErr = err
	}
	c.Wait()

	if lastErr != nil {
		return "", false, fmt.Errorf("fetch %s: %w", url, lastErr)
	}
	return body, found, nil
}

var relativeFileRe = regexp.MustCompile("(?m)[\\[(`]([A-Za-z0-9._/-]+\\.(?:md|py|sh|js|ts|json|yaml|yml|toml))[])`]")

// referencedPaths extracts relative companion files mentioned in SKILL.md.
func referencedPaths(content string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range relativeFileRe.FindAllStringSubmatch(content, -1) {
		p := m[1]
		if strings.HasPrefix(p, "http") || strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
			continue
		}
		if strings.EqualFold(p, "SKILL.md") {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if len(out) >= 20 {
			break
		}
	}
	return out
}

// Fetch locates SKILL.md for a skill and pulls the companion files it
// references from the same directory.
func (f *Fetcher) Fetch(job domain.PendingEnrichmentJob) (FetchOutcome, error) {
	for _, path := range candidatePaths(job.Name) {
		url := fmt.Sprintf("%s/%s/%s/%s", f.rawBase, job.Owner, job.Repo, path)
		content, found, err := f.fetchRaw(url)
		if err != nil {
			return FetchOutcome{}, err
		}
		if !found || strings.TrimSpace(content) == "" {
			continue
		}

		outcome := FetchOutcome{Found: true, Content: content, SourceURL: url}
		baseDir := url[:strings.LastIndex(url, "/")+1]
		for _, rel := range referencedPaths(content) {
			sub, ok, err := f.fetchRaw(baseDir + rel)
			if err != nil || !ok {
				continue
			}
			outcome.Files = append(outcome.Files, domain.EnrichmentFile{Path: rel, Content: sub})
		}
		return outcome, nil
	}
	return FetchOutcome{Found: false}, nil
}
