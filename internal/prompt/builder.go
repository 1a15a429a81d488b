// Package prompt renders the instruction prompt sent to the review model.
package prompt

import (
	"strings"

	"review-service/internal/models"
)

// Instruction is the fixed moderator-role preamble
const Instruction = `You are a standards verifier for a youth-run journalism platform.

You are NOT a journalist, editor, or fact checker.
You do NOT judge truth or accuracy.
You do NOT rewrite content or add facts.

Your job is ONLY to verify whether a submitted article meets basic publication standards.

Check for:
1. Clear structure (readable paragraphs, coherent flow)
2. Clear disclosure of how the author knows this information
3. Calm, non-inciting, non-hateful tone
4. Appropriate classification as reporting or perspective

If claims cannot be verified, require the author to label them clearly as personal experience or uncertainty.`

// OutputFormat is the strict response directive appended after the article
const OutputFormat = `IMPORTANT: Respond with ONLY valid JSON and NOTHING else. The JSON must be exactly:
{
  "decision": "approved" | "needs_revision" | "rejected",
  "feedback": "Clear, kind, specific feedback for the author"
}

If you are unsure, choose "needs_revision". Output only the JSON object and nothing else.`

// Build renders the review prompt for an article. Output depends only on the input.
func Build(article models.Article) string {
	var b strings.Builder
	b.Grow(len(Instruction) + len(OutputFormat) + len(article.Content) + len(article.Title) + len(article.Disclosure) + 128)

	b.WriteString(Instruction)
	b.WriteString("\n\nArticle Details:\n")
	b.WriteString("Title: ")
	b.WriteString(article.Title)
	b.WriteString("\nType: ")
	b.WriteString(article.ArticleType)
	b.WriteString("\nContent: ")
	b.WriteString(article.Content)
	b.WriteString("\nDisclosure: ")
	b.WriteString(article.Disclosure)
	b.WriteString("\n\n")
	b.WriteString(OutputFormat)

	return b.String()
}
