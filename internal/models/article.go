package models

// Verdict is the moderation outcome for a submitted article
type Verdict string

const (
	Approved      Verdict = "approved"
	NeedsRevision Verdict = "needs_revision"
	Rejected      Verdict = "rejected"
)

// Verdicts lists every allowed outcome
var Verdicts = []Verdict{Approved, NeedsRevision, Rejected}

// Valid reports whether v is one of the allowed outcomes
func (v Verdict) Valid() bool {
	switch v {
	case Approved, NeedsRevision, Rejected:
		return true
	}
	return false
}

// DefaultArticleType is assumed when the submitter does not declare one
const DefaultArticleType = "reporting"

// Article is a submission awaiting review
type Article struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ArticleType string `json:"article_type"`
	Disclosure  string `json:"disclosure"`
}

// Decision is the review result returned to the caller
type Decision struct {
	Decision Verdict `json:"decision"`
	Feedback string  `json:"feedback"`
	Raw      string  `json:"raw"` // Unprocessed model output, empty if no model was consulted
}

// ReviewRequest is the HTTP payload for POST /review. Title and content must be
// present but may be empty.
type ReviewRequest struct {
	Title       *string `json:"title" binding:"required"`
	Content     *string `json:"content" binding:"required"`
	ArticleType *string `json:"article_type,omitempty"`
	Disclosure  *string `json:"disclosure,omitempty"`
}

// Article converts the request to an Article, applying defaults for omitted fields
func (r ReviewRequest) Article() Article {
	article := Article{ArticleType: DefaultArticleType}
	if r.Title != nil {
		article.Title = *r.Title
	}
	if r.Content != nil {
		article.Content = *r.Content
	}
	if r.ArticleType != nil {
		article.ArticleType = *r.ArticleType
	}
	if r.Disclosure != nil {
		article.Disclosure = *r.Disclosure
	}
	return article
}
