package preprocess

import (
	"regexp"
	"strings"
)

// Every pattern here is RE2: matching is linear in the input length.
var (
	subjectRe         = regexp.MustCompile(`(?i)(?:^|\n)subject:`)
	forwardBannerRe   = regexp.MustCompile(`(?is)(?:^|\n)-+\s*(?:forwarded|original message).*?-+(?:\n|$)`)
	headerLineRe      = regexp.MustCompile(`(?im)^(?:from|sent|to|cc):.*(?:\n|$)`)
	tagRe             = regexp.MustCompile(`<[^>]*>`)
	numberedItemRe    = regexp.MustCompile(`(?m)^[ \t]*(\d+[.)] .+)`)
	bulletItemRe      = regexp.MustCompile(`(?m)^[ \t]*[•*+\-] .+`)
	paragraphBreakRe  = regexp.MustCompile(`\n\s*\n`)
	horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)
	excessNewlinesRe  = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
)

// NormalizeLineEndings converts CRLF and CR to LF and trims the text.
func NormalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// CountLines returns the number of lines in text, zero for empty text.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

// ExtractSubject finds the first "Subject:" line and returns its collapsed
// value along with text where the subject region was removed. The region
// runs until a blank line, a line starting with a letter, or end of text,
// so folded continuation lines belong to the subject.
func ExtractSubject(text string) (subject, rest string) {
	loc := subjectRe.FindStringIndex(text)
	if loc == nil {
		return "", text
	}

	end := subjectEnd(text, loc[1])
	subject = strings.Join(strings.Fields(text[loc[1]:end]), " ")

	return subject, text[:loc[0]] + text[end:]
}

func subjectEnd(text string, from int) int {
	for i := from; i < len(text)-1; i++ {
		if text[i] != '\n' {
			continue
		}
		if next := text[i+1]; next == '\n' || isASCIILetter(next) {
			return i
		}
	}
	return len(text)
}

func isASCIILetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// StripForwarding removes "Forwarded message" and "Original Message" banners.
func StripForwarding(text string) string {
	return forwardBannerRe.ReplaceAllString(text, "\n")
}

// StripHeaderLines drops whole From:, Sent:, To: and Cc: lines.
func StripHeaderLines(text string) string {
	return headerLineRe.ReplaceAllString(text, "")
}

// StripMarkup replaces tags with a space, except allow-listed inline tags
// which are dropped so their content joins the surrounding text.
func StripMarkup(text string, allow map[string]struct{}) string {
	return tagRe.ReplaceAllStringFunc(text, func(tag string) string {
		name := strings.TrimPrefix(tag[1:len(tag)-1], "/")
		if _, ok := allow[name]; ok {
			return ""
		}
		return " "
	})
}

// DecodeEntities decodes the five entities common in email HTML.
func DecodeEntities(text string) string {
	return entityReplacer.Replace(text)
}

// SplitParagraphs splits on blank lines, trims and drops empty paragraphs.
func SplitParagraphs(body string) []string {
	paragraphs := make([]string, 0)
	for _, p := range paragraphBreakRe.Split(body, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// AssembleCleanText joins the subject and paragraphs into the text handed
// to the classifier.
func AssembleCleanText(subject string, paragraphs []string) string {
	blocks := paragraphs
	if subject != "" {
		blocks = append([]string{"Subject: " + subject}, paragraphs...)
	}

	text := strings.Join(blocks, "\n\n")
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = excessNewlinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

func numberedItems(body string) []string {
	var items []string
	for _, m := range numberedItemRe.FindAllStringSubmatch(body, -1) {
		items = append(items, m[1])
	}
	return items
}
