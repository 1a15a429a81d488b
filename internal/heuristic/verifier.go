// Package heuristic is the deterministic fallback reviewer: an ordered list of
// predicate -> verdict rules evaluated until the first match.
package heuristic

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"review-service/internal/models"
)

// Rule names, in evaluation order
const (
	RuleViolence   = "violence"
	RuleHate       = "hate_speech"
	RuleDisclosure = "disclosure"
	RuleLength     = "length"
	RuleDefault    = "default"
)

// Subject is what every rule inspects
type Subject struct {
	Article models.Article
	Text    string // lower(title + "\n" + content)
}

// Rule maps a predicate to a verdict
type Rule struct {
	Name     string
	Match    func(s Subject) bool
	Decision models.Verdict
	Feedback string
}

// Verifier applies the rule chain
type Verifier struct {
	policy     *Policy
	rules      []Rule
	violence   []*regexp.Regexp
	hate       []*regexp.Regexp
	hardReject []*regexp.Regexp
}

// NewVerifier compiles policy into a rule chain. A nil policy uses DefaultPolicy.
func NewVerifier(policy *Policy) *Verifier {
	if policy == nil {
		policy = DefaultPolicy()
	}

	v := &Verifier{
		policy:     policy,
		violence:   compileTerms(policy.ViolencePatterns),
		hate:       compileTerms(policy.HateTerms),
		hardReject: compileTerms(policy.HardRejectPatterns),
	}

	requiresDisclosure := make(map[string]bool, len(policy.DisclosureRequiredTypes))
	for _, t := range policy.DisclosureRequiredTypes {
		requiresDisclosure[t] = true
	}

	// Safety rejections outrank revision requests, which outrank approval.
	v.rules = []Rule{
		{
			Name:     RuleViolence,
			Match:    func(s Subject) bool { return matchAny(v.violence, s.Text) },
			Decision: models.Rejected,
			Feedback: policy.Messages.Violence,
		},
		{
			Name:     RuleHate,
			Match:    func(s Subject) bool { return matchAny(v.hate, s.Text) },
			Decision: models.Rejected,
			Feedback: policy.Messages.Hate,
		},
		{
			Name: RuleDisclosure,
			Match: func(s Subject) bool {
				return requiresDisclosure[s.Article.ArticleType] && strings.TrimSpace(s.Article.Disclosure) == ""
			},
			Decision: models.NeedsRevision,
			Feedback: policy.Messages.Disclosure,
		},
		{
			Name: RuleLength,
			Match: func(s Subject) bool {
				return utf8.RuneCountInString(strings.TrimSpace(s.Article.Content)) < policy.MinContentLength
			},
			Decision: models.NeedsRevision,
			Feedback: policy.Messages.TooShort,
		},
		{
			Name:     RuleDefault,
			Match:    func(Subject) bool { return true },
			Decision: models.Approved,
			Feedback: policy.Messages.Approved,
		},
	}

	return v
}

// Verify returns the verdict of the first matching rule. Raw is always empty.
func (v *Verifier) Verify(article models.Article) models.Decision {
	s := newSubject(article)
	for _, rule := range v.rules {
		if rule.Match(s) {
			return models.Decision{Decision: rule.Decision, Feedback: rule.Feedback}
		}
	}
	// Unreachable while the default rule is last
	return models.Decision{Decision: models.NeedsRevision, Feedback: v.policy.Messages.TooShort}
}

// Explain returns the name of the rule that decides article
func (v *Verifier) Explain(article models.Article) string {
	s := newSubject(article)
	for _, rule := range v.rules {
		if rule.Match(s) {
			return rule.Name
		}
	}
	return ""
}

// HardReject reports whether article must stay rejected whatever the model says:
// it trips the violence or hate rules, a hard-reject phrase, or a spam signal.
func (v *Verifier) HardReject(article models.Article) bool {
	s := newSubject(article)
	if matchAny(v.violence, s.Text) || matchAny(v.hate, s.Text) || matchAny(v.hardReject, s.Text) {
		return true
	}
	return isSpam(v.policy.Spam, s.Text)
}

func isSpam(spam Spam, text string) bool {
	if spam.MaxLinks > 0 {
		links := strings.Count(text, "http://") + strings.Count(text, "https://")
		if links >= spam.MaxLinks {
			return true
		}
	}

	if spam.RepeatedRun > 0 && spam.ShortText > 0 && nonSpaceLen(text) < spam.ShortText {
		return longestRun(text) >= spam.RepeatedRun
	}
	return false
}

func nonSpaceLen(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// longestRun returns the length of the longest run of one repeated rune
func longestRun(text string) int {
	longest, run := 0, 0
	var prev rune = -1
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// RuleNames lists the chain in evaluation order
func (v *Verifier) RuleNames() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name
	}
	return names
}

// Policy returns the active policy
func (v *Verifier) Policy() *Policy {
	return v.policy
}

func newSubject(article models.Article) Subject {
	return Subject{
		Article: article,
		Text:    strings.ToLower(article.Title + "\n" + article.Content),
	}
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
