package prompt

import (
	"strings"
	"testing"

	"review-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainsSectionsInOrder(t *testing.T) {
	article := models.Article{
		Title:       "Library Hours Cut",
		Content:     "The city council voted on Tuesday.",
		ArticleType: "reporting",
		Disclosure:  "I attended the meeting.",
	}

	p := Build(article)

	markers := []string{
		"You are a standards verifier",
		"1. Clear structure",
		"2. Clear disclosure",
		"3. Calm, non-inciting",
		"4. Appropriate classification",
		"If claims cannot be verified",
		"Title: Library Hours Cut",
		"Type: reporting",
		"Content: The city council voted on Tuesday.",
		"Disclosure: I attended the meeting.",
		`"decision": "approved" | "needs_revision" | "rejected"`,
		`choose "needs_revision"`,
	}

	last := -1
	for _, m := range markers {
		idx := strings.Index(p, m)
		require.GreaterOrEqual(t, idx, 0, "missing %q", m)
		assert.Greater(t, idx, last, "%q out of order", m)
		last = idx
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	article := models.Article{Title: "t", Content: "c", ArticleType: "perspective"}
	assert.Equal(t, Build(article), Build(article))
}

func TestBuildKeepsFieldsVerbatim(t *testing.T) {
	article := models.Article{
		Title:   "  {weird} \"title\"  ",
		Content: "line one\nline two",
	}

	p := Build(article)

	assert.Contains(t, p, "Title:   {weird} \"title\"  \n")
	assert.Contains(t, p, "Content: line one\nline two\n")
	assert.Contains(t, p, "Type: \nContent:")
	assert.Contains(t, p, "Disclosure: \n\n")
}
