package service

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	defaultSlugBase   = "portfolio"
	slugSuffixBytes   = 3
	slugFallbackBytes = 8
	maxSlugAttempts   = 10
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, collapses every run of non-alphanumeric
// characters into one hyphen and trims hyphens from both ends.
func Slugify(name string) string {
	s := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("slug: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
