package heuristic

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultPolicyIsValid(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
}

func TestLoadPolicyOverridesAndKeepsDefaults(t *testing.T) {
	path := writePolicy(t, `
version: "2026-10-01"
violence_patterns: [kill, bomb]
min_content_length: 300
messages:
  approved: "Looks good."
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, "2026-10-01", p.Version)
	assert.Equal(t, []string{"kill", "bomb"}, p.ViolencePatterns)
	assert.Equal(t, 300, p.MinContentLength)
	assert.Equal(t, "Looks good.", p.Messages.Approved)

	def := DefaultPolicy()
	assert.Equal(t, def.HateTerms, p.HateTerms)
	assert.Equal(t, def.DisclosureRequiredTypes, p.DisclosureRequiredTypes)
	assert.Equal(t, def.Messages.Violence, p.Messages.Violence)
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadPolicyRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"negative length": "version: v1\nmin_content_length: -1\n",
		"empty term":      "version: v1\nhate_terms: [\"\"]\n",
		"empty message":   "version: v1\nmessages:\n  hate: \"\"\n",
		"blank version":   "version: \" \"\n",
		"negative spam":   "version: v1\nspam:\n  max_links: -1\n",
		"empty phrase":    "version: v1\nhard_reject_patterns: [\" \"]\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, body))
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestLoadPolicyRejectsUnknownKeys(t *testing.T) {
	_, err := LoadPolicy(writePolicy(t, "version: v1\nbanned_words: [x]\n"))
	assert.Error(t, err)
}

func TestShippedPolicyMatchesBuiltin(t *testing.T) {
	p, err := LoadPolicy(filepath.Join("..", "..", "configs", "policy.yml"))
	require.NoError(t, err)

	def := DefaultPolicy()
	assert.Equal(t, def.ViolencePatterns, p.ViolencePatterns)
	assert.Equal(t, def.HateTerms, p.HateTerms)
	assert.Equal(t, def.HardRejectPatterns, p.HardRejectPatterns)
	assert.Equal(t, def.Spam, p.Spam)
	assert.Equal(t, def.MinContentLength, p.MinContentLength)
	assert.Equal(t, def.Messages, p.Messages)
}
