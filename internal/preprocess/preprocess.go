// Package preprocess normalizes raw email text before intent classification.
//
// Preprocessing is a fixed, ordered pipeline of pure text stages: line
// endings, subject extraction, forwarding and header removal, signature
// cut, markup stripping, then metadata extraction and paragraph assembly.
// It never fails; unusable input degrades to empty fields.
package preprocess

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

const numberedSampleSize = 3

// ProcessedEmail is the result of preprocessing a single email.
type ProcessedEmail struct {
	Subject    string   `json:"subject" jsonschema:"extracted subject line, empty if none"`
	Body       string   `json:"body" jsonschema:"body without headers, signature and markup"`
	CleanText  string   `json:"clean_text" jsonschema:"normalized text passed to the classifier"`
	Metadata   Metadata `json:"metadata" jsonschema:"flags and extracted candidate entities"`
	Paragraphs []string `json:"paragraphs" jsonschema:"non-empty paragraphs in original order"`
}

// Metadata holds flags and facts derived while preprocessing.
type Metadata struct {
	HasAttachments      bool     `json:"has_attachments" jsonschema:"body mentions attachment-like words"`
	HasNumberedList     bool     `json:"has_numbered_list" jsonschema:"body contains a numbered list"`
	HasBulletList       bool     `json:"has_bullet_list" jsonschema:"body contains a bulleted list"`
	UrgentIndicators    bool     `json:"urgent_indicators" jsonschema:"body or subject contains urgency keywords"`
	PotentialEntities   []string `json:"potential_entities" jsonschema:"deduplicated candidate property and company names"`
	LineCount           int      `json:"line_count" jsonschema:"lines in the normalized input"`
	ParagraphCount      int      `json:"paragraph_count" jsonschema:"number of extracted paragraphs"`
	NumberedItemsCount  int      `json:"numbered_items_count,omitempty" jsonschema:"numbered list items found"`
	NumberedItemsSample []string `json:"numbered_items_sample,omitempty" jsonschema:"first numbered list items"`
}

// Preprocessor applies a compiled rule set. It holds no mutable state and is
// safe for concurrent use.
type Preprocessor struct {
	rules compiledRules
}

var defaultPreprocessor = mustNew(DefaultRules())

// New compiles rules into a Preprocessor.
func New(rules Rules) (*Preprocessor, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, fmt.Errorf("compileRules failed: %w", err)
	}
	return &Preprocessor{rules: compiled}, nil
}

func mustNew(rules Rules) *Preprocessor {
	p, err := New(rules)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the Preprocessor built from the embedded rules.
func Default() *Preprocessor {
	return defaultPreprocessor
}

// Preprocess runs the default Preprocessor.
func Preprocess(raw string) ProcessedEmail {
	return defaultPreprocessor.Preprocess(raw)
}

// Preprocess turns raw email text into a ProcessedEmail.
func (p *Preprocessor) Preprocess(raw string) ProcessedEmail {
	text := NormalizeLineEndings(raw)
	lineCount := CountLines(text)

	subject, text := ExtractSubject(text)
	body := p.cleanBody(text)
	paragraphs := SplitParagraphs(body)

	meta := Metadata{
		HasAttachments:    matches(p.rules.attachment, body),
		HasBulletList:     bulletItemRe.MatchString(body),
		UrgentIndicators:  matches(p.rules.urgency, body+" "+subject),
		PotentialEntities: p.extractEntities(body),
		LineCount:         lineCount,
		ParagraphCount:    len(paragraphs),
	}

	if items := numberedItems(body); len(items) > 0 {
		meta.HasNumberedList = true
		meta.NumberedItemsCount = len(items)
		meta.NumberedItemsSample = slices.Clone(items[:min(numberedSampleSize, len(items))])
	}

	return ProcessedEmail{
		Subject:    subject,
		Body:       body,
		CleanText:  AssembleCleanText(subject, paragraphs),
		Metadata:   meta,
		Paragraphs: paragraphs,
	}
}

func (p *Preprocessor) cleanBody(text string) string {
	stages := []func(string) string{
		StripForwarding,
		StripHeaderLines,
		p.stripSignature,
		p.stripMarkup,
		DecodeEntities,
	}
	for _, stage := range stages {
		text = stage(text)
	}
	return strings.TrimSpace(text)
}

// stripSignature cuts text at the earliest sign-off marker.
func (p *Preprocessor) stripSignature(text string) string {
	if p.rules.signature == nil {
		return text
	}
	if loc := p.rules.signature.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	return text
}

func (p *Preprocessor) stripMarkup(text string) string {
	return StripMarkup(text, p.rules.allowTags)
}

func (p *Preprocessor) extractEntities(body string) []string {
	seen := make(map[string]struct{})
	for _, em := range p.rules.entities {
		for _, m := range em.re.FindAllString(body, -1) {
			if entity := strings.Join(strings.Fields(m), " "); entity != "" {
				seen[entity] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return []string{}
	}
	return slices.Sorted(maps.Keys(seen))
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}
