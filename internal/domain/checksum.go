package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sha256Hex returns the lowercase hex SHA-256 of the raw bytes of s. This is
// the per-file checksum of the wire contract; clients compute the same hash
// locally to verify downloaded files.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CombinedChecksum is the deterministic aggregate over a file set: files
// sorted by path, "path:checksum\n" concatenated, hashed. Identical file sets
// produce identical aggregates regardless of insertion order.
func CombinedChecksum(files []SkillFile) string {
	sorted := make([]SkillFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	var b strings.Builder
	for _, f := range sorted {
		b.WriteString(f.Path + ":" + f.Checksum + "\n")
	}
	return Sha256Hex(b.String())
}
