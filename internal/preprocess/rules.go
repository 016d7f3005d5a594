package preprocess

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ErrInvalidRules indicates a rules document that cannot be compiled.
var ErrInvalidRules = errors.New("invalid preprocessing rules")

// EntityKind groups entity patterns by what they recognize.
type EntityKind string

const (
	EntityProperty EntityKind = "property"
	EntityCompany  EntityKind = "company"
)

// EntityPattern recognizes capitalized phrases ending in one of Keywords.
// Lead is a regular expression for the words allowed before the keyword.
type EntityPattern struct {
	Name     string     `yaml:"name"`
	Kind     EntityKind `yaml:"kind"`
	Lead     string     `yaml:"lead"`
	Keywords []string   `yaml:"keywords"`
}

// Rules holds the tunable keyword sets and patterns of the preprocessor.
type Rules struct {
	AttachmentKeywords []string        `yaml:"attachment_keywords"`
	UrgencyKeywords    []string        `yaml:"urgency_keywords"`
	SignatureMarkers   []string        `yaml:"signature_markers"`
	MarkupAllowList    []string        `yaml:"markup_allow_list"`
	EntityPatterns     []EntityPattern `yaml:"entity_patterns"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Errorf("embedded rules.yaml: %w", err))
	}
	return rules
}

// LoadRules reads a YAML rules file from disk.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("ParseRules(%s) failed: %w", path, err)
	}

	return rules, nil
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("yaml.Unmarshal failed: %w", err)
	}
	return rules, nil
}

type entityMatcher struct {
	name string
	kind EntityKind
	re   *regexp.Regexp
}

type compiledRules struct {
	attachment *regexp.Regexp
	urgency    *regexp.Regexp
	signature  *regexp.Regexp
	allowTags  map[string]struct{}
	entities   []entityMatcher
}

func compileRules(rules Rules) (compiledRules, error) {
	c := compiledRules{
		attachment: wordListRegexp(rules.AttachmentKeywords),
		urgency:    wordListRegexp(rules.UrgencyKeywords),
		signature:  signatureRegexp(rules.SignatureMarkers),
		allowTags:  make(map[string]struct{}, len(rules.MarkupAllowList)),
	}

	for _, tag := range rules.MarkupAllowList {
		c.allowTags[tag] = struct{}{}
	}

	for _, ep := range rules.EntityPatterns {
		m, err := compileEntityPattern(ep)
		if err != nil {
			return compiledRules{}, err
		}
		c.entities = append(c.entities, m)
	}

	return c, nil
}

func compileEntityPattern(ep EntityPattern) (entityMatcher, error) {
	if ep.Kind != EntityProperty && ep.Kind != EntityCompany {
		return entityMatcher{}, fmt.Errorf("%w: pattern %q has unknown kind %q", ErrInvalidRules, ep.Name, ep.Kind)
	}

	alts := make([]string, 0, len(ep.Keywords))
	for _, kw := range ep.Keywords {
		if frag := keywordFragment(kw); frag != "" {
			alts = append(alts, frag)
		}
	}
	if len(alts) == 0 {
		return entityMatcher{}, fmt.Errorf("%w: pattern %q has no keywords", ErrInvalidRules, ep.Name)
	}

	re, err := regexp.Compile(`\b` + ep.Lead + `(?:` + strings.Join(alts, "|") + `)`)
	if err != nil {
		return entityMatcher{}, fmt.Errorf("%w: pattern %q: %w", ErrInvalidRules, ep.Name, err)
	}

	return entityMatcher{name: ep.Name, kind: ep.Kind, re: re}, nil
}

// keywordFragment turns "St." into `St\b\.?` and "Real Estate" into `Real[ \t]+Estate\b`.
func keywordFragment(kw string) string {
	kw = strings.TrimSpace(kw)
	base, dotted := strings.CutSuffix(kw, ".")
	if base == "" {
		return ""
	}

	words := strings.Fields(base)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	frag := strings.Join(words, `[ \t]+`) + `\b`
	if dotted {
		frag += `\.?`
	}
	return frag
}

func wordListRegexp(words []string) *regexp.Regexp {
	alts := quoteAll(words)
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func signatureRegexp(markers []string) *regexp.Regexp {
	alts := quoteAll(markers)
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`\n(?:` + strings.Join(alts, "|") + `)`)
}

func quoteAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, regexp.QuoteMeta(w))
		}
	}
	return out
}
