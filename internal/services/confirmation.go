// Package services – ConfirmationMatcher
//
// This file implements the classifier that decides whether a short inbound
// utterance is an affirmative confirmation ("да, всё верно", "ok", …).
// Matching is exact set membership over a normalized form: fuzzy or partial
// matching is deliberately avoided so that ordinary conversation turns which
// happen to contain an affirmative word do not trigger a summary capture.
package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultConfirmationPhrases is the accepted set used when no phrases are
// configured. The entries are stored in normalized form.
var DefaultConfirmationPhrases = []string{
	"да", "да все верно", "все верно",
	"подтверждаю", "все так", "ок", "окей", "ага", "готов",
	"да отправляй", "все правильно", "супер", "отлично",
	"yes", "confirmed", "ok",
}

// nonWordRE strips everything that is not a letter, digit, underscore, or
// whitespace. Unicode classes keep Cyrillic intact.
var nonWordRE = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// spaceRE collapses internal whitespace runs.
var spaceRE = regexp.MustCompile(`\s+`)

// ConfirmationMatcher classifies utterances against a fixed phrase set.
// The zero value is unusable; construct with NewConfirmationMatcher.
// Safe for concurrent use: the phrase set is immutable after construction.
type ConfirmationMatcher struct {
	phrases map[string]struct{}
	fold    cases.Caser
}

// NewConfirmationMatcher builds a matcher from the given accepted phrases.
// Each phrase is normalized before being added, so callers may pass raw
// variants ("Да, всё верно!"). Phrases normalizing to the empty string are
// dropped: empty input must never count as a confirmation. When phrases is
// empty the default set is used.
func NewConfirmationMatcher(phrases []string) *ConfirmationMatcher {
	if len(phrases) == 0 {
		phrases = DefaultConfirmationPhrases
	}
	m := &ConfirmationMatcher{
		phrases: make(map[string]struct{}, len(phrases)),
		fold:    cases.Fold(),
	}
	for _, p := range phrases {
		if n := m.normalize(p); n != "" {
			m.phrases[n] = struct{}{}
		}
	}
	return m
}

// IsConfirmation reports whether raw, after normalization, is a member of
// the accepted phrase set.
func (m *ConfirmationMatcher) IsConfirmation(raw string) bool {
	n := m.normalize(raw)
	if n == "" {
		return false
	}
	_, ok := m.phrases[n]
	return ok
}

// normalize trims and case-folds the input, maps ё to its base letter е,
// strips punctuation and symbols, and collapses whitespace runs to single
// spaces.
func (m *ConfirmationMatcher) normalize(s string) string {
	s = m.fold.String(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ё", "е")
	s = nonWordRE.ReplaceAllString(s, "")
	s = spaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
