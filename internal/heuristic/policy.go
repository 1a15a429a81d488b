package heuristic

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy is returned for a policy file that decodes but cannot be applied
var ErrInvalidPolicy = errors.New("invalid moderation policy")

// Messages holds the author-facing feedback for each rule outcome
type Messages struct {
	Violence   string `yaml:"violence"`
	Hate       string `yaml:"hate"`
	Disclosure string `yaml:"disclosure"`
	TooShort   string `yaml:"too_short"`
	Approved   string `yaml:"approved"`
}

// Spam holds the abuse signals that make content a hard reject: MaxLinks or more
// http(s) links, or a run of RepeatedRun identical characters in text with fewer
// than ShortText non-space characters. Zero disables a signal.
type Spam struct {
	MaxLinks    int `yaml:"max_links"`
	RepeatedRun int `yaml:"repeated_run"`
	ShortText   int `yaml:"short_text"`
}

// Policy is the reviewable moderation policy behind the rule chain.
// Terms are matched case-insensitively as whole words.
type Policy struct {
	Version                 string   `yaml:"version"`
	ViolencePatterns        []string `yaml:"violence_patterns"`
	HateTerms               []string `yaml:"hate_terms"`
	HardRejectPatterns      []string `yaml:"hard_reject_patterns"`
	Spam                    Spam     `yaml:"spam"`
	DisclosureRequiredTypes []string `yaml:"disclosure_required_types"`
	MinContentLength        int      `yaml:"min_content_length"`
	Messages                Messages `yaml:"messages"`
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() *Policy {
	return &Policy{
		Version:                 "builtin-1",
		ViolencePatterns:        []string{"kill", "bomb", "shoot", "kill the"},
		HateTerms:               []string{"nigger", "faggot", "kike"},
		DisclosureRequiredTypes: []string{"reporting"},
		MinContentLength:        200,
		HardRejectPatterns: []string{
			"kill them", "kill all", "shoot them", "shoot up", "bomb them", "bomb it", "lynch",
			"heil hitler", "white power", "child porn", "cp",
		},
		Spam: Spam{
			MaxLinks:    6,
			RepeatedRun: 19,
			ShortText:   35,
		},
		Messages: Messages{
			Violence:   "Content contains violent or clearly harmful language.",
			Hate:       "Content contains hate speech and cannot be published.",
			Disclosure: "Reporting articles require a disclosure describing sources or how the author knows this information.",
			TooShort:   "Article is too short; add more detail and clear structure.",
			Approved:   "Article passes basic heuristic checks.",
		},
	}
}

// LoadPolicy reads a policy file. Keys absent from the file keep their built-in values.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(policy); err != nil {
		return nil, fmt.Errorf("failed to decode policy file: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return policy, nil
}

// Validate checks the policy can drive the rule chain
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidPolicy)
	}
	if p.MinContentLength < 0 {
		return fmt.Errorf("%w: min_content_length must not be negative", ErrInvalidPolicy)
	}
	if p.Spam.MaxLinks < 0 || p.Spam.RepeatedRun < 0 || p.Spam.ShortText < 0 {
		return fmt.Errorf("%w: spam thresholds must not be negative", ErrInvalidPolicy)
	}

	terms := append(append([]string{}, p.ViolencePatterns...), p.HateTerms...)
	for _, term := range append(terms, p.HardRejectPatterns...) {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("%w: empty term", ErrInvalidPolicy)
		}
	}

	m := p.Messages
	for name, msg := range map[string]string{
		"violence":   m.Violence,
		"hate":       m.Hate,
		"disclosure": m.Disclosure,
		"too_short":  m.TooShort,
		"approved":   m.Approved,
	} {
		if strings.TrimSpace(msg) == "" {
			return fmt.Errorf("%w: message %q is empty", ErrInvalidPolicy, name)
		}
	}
	return nil
}

// Word boundaries are Unicode-aware: any letter, digit or underscore continues a word
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

// compileTerms builds one whole-word matcher per term
func compileTerms(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		out = append(out, regexp.MustCompile(wordStart+regexp.QuoteMeta(term)+wordEnd))
	}
	return out
}
