package core

// GetStats returns the headline counters in documented field order:
// (total_skills, analyzed_skills, total_installs, total_users).
func (s *Store) GetStats() (uint64, uint64, uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var analyzed, installs uint64
	for _, sk := range s.skills {
		if sk.Analysis != nil {
			analyzed++
		}
		installs += sk.InstallCount
	}
	return uint64(len(s.skills)), analyzed, installs, uint64(len(s.users))
}

// GetAnalysisStats returns (total_skills, analyzed, with_mcp, high_quality)
// where high quality means an overall rating of at least 4.0.
func (s *Store) GetAnalysisStats() (uint64, uint64, uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var analyzed, withMCP, highQuality uint64
	for _, sk := range s.skills {
		if sk.Analysis == nil {
			continue
		}
		analyzed++
		if sk.Analysis.HasMCP {
			withMCP++
		}
		if sk.Analysis.Ratings.Overall >= 4.0 {
			highQuality++
		}
	}
	return uint64(len(s.skills)), analyzed, withMCP, highQuality
}

// GetAnalysisHistoryStats returns (total_entries, skills_with_history).
func (s *Store) GetAnalysisHistoryStats() (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries, withHistory uint64
	for _, sk := range s.skills {
		entries += uint64(len(sk.AnalysisHistory))
		if len(sk.AnalysisHistory) > 0 {
			withHistory++
		}
	}
	return entries, withHistory
}

// GetMemoryStats returns approximate byte counters for operators in
// documented field order: (total, skill_content, analysis_history,
// job_payloads). History entries are estimated from their narrative fields.
func (s *Store) GetMemoryStats() (uint64, uint64, uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var contentBytes, historyBytes, jobBytes uint64
	for _, sk := range s.skills {
		if sk.SkillMdContent != nil {
			contentBytes += uint64(len(*sk.SkillMdContent))
		}
		for _, f := range sk.Files {
			contentBytes += uint64(len(f.Content))
		}
		for _, a := range sk.AnalysisHistory {
			historyBytes += uint64(len(a.Summary)+len(a.CompatibilityNotes)) + 500
		}
	}
	for _, job := range s.jobs {
		jobBytes += uint64(len(job.EncryptedCredential)) + 200
	}
	for range s.enrichJobs {
		jobBytes += 200
	}
	total := contentBytes + historyBytes + jobBytes
	return total, contentBytes, historyBytes, jobBytes
}
