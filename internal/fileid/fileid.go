// Package fileid derives deterministic collection names from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	hashLen = 8
	maxStem = 48
)

// CollectionName returns a stable collection name for the file at path: the
// sanitized base name without extension followed by a short hash of the cleaned
// absolute path. The same path always yields the same name.
func CollectionName(path string) string {
	normalized := filepath.Clean(path)
	if abs, err := filepath.Abs(normalized); err == nil {
		normalized = abs
	}
	hash := sha256.Sum256([]byte(normalized))
	suffix := hex.EncodeToString(hash[:])[:hashLen]

	stem := Sanitize(strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized)))
	if stem == "" {
		return "doc_" + suffix
	}
	return stem + "_" + suffix
}

// Sanitize lowercases s and keeps only ASCII letters, digits and single
// underscores, trimming the result to a bounded length.
func Sanitize(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimRight(b.String(), "_")
	if len(out) > maxStem {
		out = strings.TrimRight(out[:maxStem], "_")
	}
	return out
}
