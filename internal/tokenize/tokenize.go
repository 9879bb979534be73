// Package tokenize turns raw note text into normalized index keys.
package tokenize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// markdownControl matches characters that carry markdown structure rather
// than words. Underscore is included, so snake_case splits into two tokens.
var markdownControl = regexp.MustCompile("[#*_`\\[\\](){}|>~]")

// wordPattern extracts runs that start with a letter or digit, may carry
// hyphens inside and end with a letter, digit or combining mark. Single
// letters and digits, with their marks, are tokens on their own. Any
// script counts as a letter.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{M}\p{N}\-]*[\p{L}\p{M}\p{N}]|[\p{L}\p{N}]\p{M}*`)

// Tokenize returns the lowercase tokens of text in order of appearance,
// duplicates included.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	s := strings.ToLower(norm.NFC.String(text))
	s = markdownControl.ReplaceAllString(s, " ")
	return wordPattern.FindAllString(s, -1)
}

// Unique returns the distinct tokens of text in first-seen order.
func Unique(text string) []string {
	return Distinct(Tokenize(text))
}

// Distinct removes repeated entries from tokens, keeping the first.
func Distinct(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
