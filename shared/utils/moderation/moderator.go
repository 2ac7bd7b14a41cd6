// Package moderation scores user-submitted text against a fixed set of
// publication rules: blocked terms, suspicious patterns, length bounds and
// capitalization.
package moderation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	bannedWordWeight = 0.6
	patternWeight    = 0.6
	lengthWeight     = 0.5
	capsWeight       = 0.5

	// ApprovalThreshold is the exclusive upper bound on the summed score of an
	// approved text. Every failing check already weighs at least this much.
	ApprovalThreshold = 0.5

	ReasonEmpty      = "Content cannot be empty"
	ReasonLength     = "Content length is outside acceptable range"
	ReasonCapitals   = "Excessive use of capital letters"
	reasonBlocked    = "Contains blocked terms: %s"
	reasonSuspicious = "Contains %d suspicious pattern(s)"
)

// DefaultBannedWords are matched case-insensitively as whole words.
var DefaultBannedWords = []string{"hate", "violence", "illegal", "scam", "phishing"}

// defaultPatterns: URLs, card-like numbers, SSN-like numbers, email addresses.
var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:https?|ftp)://\S+`),
	regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`),
}

// Result is the outcome of a moderation pass. It is built fresh for every call.
type Result struct {
	IsApproved bool     `json:"is_approved"`
	Reasons    []string `json:"reasons"`
	Score      float64  `json:"score"`
}

// PromptInput is the subset of a prompt record that gets moderated.
type PromptInput struct {
	Title       string
	Description string
	Content     string
	Tags        []string
}

// checkResult is the verdict of a single rule.
type checkResult struct {
	passed bool
	score  float64
	reason string
}

// Moderator holds the rule set. It has no mutable state and is safe for
// concurrent use.
type Moderator struct {
	bannedWords   []string
	bannedRegexps []*regexp.Regexp
	patterns      []*regexp.Regexp
	minLength     int
	maxLength     int
	maxCapsRatio  float64
}

// Option customizes a Moderator.
type Option func(*Moderator)

// WithBannedWords replaces the blocked term list.
func WithBannedWords(words ...string) Option {
	return func(m *Moderator) {
		m.bannedWords = append([]string(nil), words...)
	}
}

// WithLengthBounds sets the inclusive character range accepted by the length check.
func WithLengthBounds(min, max int) Option {
	return func(m *Moderator) {
		m.minLength = min
		m.maxLength = max
	}
}

// WithMaxCapsRatio sets the uppercase ratio above which text is rejected.
func WithMaxCapsRatio(ratio float64) Option {
	return func(m *Moderator) {
		m.maxCapsRatio = ratio
	}
}

// New builds a Moderator with the default rules, then applies opts.
func New(opts ...Option) *Moderator {
	m := &Moderator{
		bannedWords:  DefaultBannedWords,
		patterns:     defaultPatterns,
		minLength:    10,
		maxLength:    10000,
		maxCapsRatio: 0.3,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.bannedRegexps = make([]*regexp.Regexp, len(m.bannedWords))
	for i, word := range m.bannedWords {
		m.bannedRegexps[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return m
}

// Default is the moderator used by the package-level helpers.
var Default = New()

// ModerateContent runs text through the default rule set.
func ModerateContent(text string) Result {
	return Default.ModerateContent(text)
}

// ModeratePrompt runs a prompt through the default rule set.
func ModeratePrompt(p PromptInput) Result {
	return Default.ModeratePrompt(p)
}

// ModerateContent scores text. Empty or whitespace-only input is rejected
// outright with a score of 1.0. Otherwise all four checks run and their
// scores are summed; the text is approved only when every check passes and
// the sum stays below ApprovalThreshold.
func (m *Moderator) ModerateContent(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{
			IsApproved: false,
			Reasons:    []string{ReasonEmpty},
			Score:      1.0,
		}
	}

	checks := []checkResult{
		m.checkBannedWords(text),
		m.checkSuspiciousPatterns(text),
		m.checkLength(text),
		m.checkCapitals(text),
	}

	result := Result{Reasons: []string{}}
	allPassed := true
	for _, c := range checks {
		result.Score += c.score
		if !c.passed {
			allPassed = false
			result.Reasons = append(result.Reasons, c.reason)
		}
	}
	result.IsApproved = allPassed && result.Score < ApprovalThreshold

	return result
}

// ModeratePrompt joins the non-empty title, description, content and
// space-joined tags with newlines and moderates the combined text.
func (m *Moderator) ModeratePrompt(p PromptInput) Result {
	parts := make([]string, 0, 4)
	for _, field := range []string{p.Title, p.Description, p.Content} {
		if field != "" {
			parts = append(parts, field)
		}
	}

	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " "))
	}

	return m.ModerateContent(strings.Join(parts, "\n"))
}

type bannedMatch struct {
	word string
	at   int
}

// checkBannedWords reports matched terms in the order they first appear in text
func (m *Moderator) checkBannedWords(text string) checkResult {
	var matches []bannedMatch
	for i, re := range m.bannedRegexps {
		if loc := re.FindStringIndex(text); loc != nil {
			matches = append(matches, bannedMatch{word: m.bannedWords[i], at: loc[0]})
		}
	}

	if len(matches) == 0 {
		return checkResult{passed: true}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].at < matches[j].at })
	found := make([]string, len(matches))
	for i, match := range matches {
		found[i] = match.word
	}
	return checkResult{
		passed: false,
		score:  float64(len(found)) * bannedWordWeight,
		reason: fmt.Sprintf(reasonBlocked, strings.Join(found, ", ")),
	}
}

func (m *Moderator) checkSuspiciousPatterns(text string) checkResult {
	count := 0
	for _, re := range m.patterns {
		count += len(re.FindAllStringIndex(text, -1))
	}

	if count == 0 {
		return checkResult{passed: true}
	}
	return checkResult{
		passed: false,
		score:  patternWeight,
		reason: fmt.Sprintf(reasonSuspicious, count),
	}
}

func (m *Moderator) checkLength(text string) checkResult {
	n := utf8.RuneCountInString(text)
	if n < m.minLength || n > m.maxLength {
		return checkResult{passed: false, score: lengthWeight, reason: ReasonLength}
	}
	return checkResult{passed: true}
}

func (m *Moderator) checkCapitals(text string) checkResult {
	upper, nonSpace := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if unicode.IsUpper(r) {
			upper++
		}
	}

	// nothing to measure
	if nonSpace == 0 {
		return checkResult{passed: true}
	}

	if float64(upper)/float64(nonSpace) > m.maxCapsRatio {
		return checkResult{passed: false, score: capsWeight, reason: ReasonCapitals}
	}
	return checkResult{passed: true}
}
