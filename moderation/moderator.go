// Package moderation masks blacklisted words in chat content before it is
// persisted or broadcast, so history and live delivery always agree.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"roomcast/errors"
)

// Moderator matches blacklisted words with an Aho-Corasick automaton built
// once at startup. Matching runs on a normalized view of the text
// (lowercased, separators stripped, common leet substitutions undone) while
// masking applies to the original runes, so spacing and casing survive.
type Moderator struct {
	machine  *goahocorasick.Machine
	maskRune rune
}

func NewModerator(words []string, maskRune rune) (*Moderator, error) {
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		norm, _ := normalize([]rune(w))
		if len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, maskRune: maskRune}, nil
}

// Mask replaces every matched span with the mask rune.
func (m *Moderator) Mask(content string) string {
	original := []rune(content)
	norm, backref := normalize(original)
	if len(norm) == 0 {
		return content
	}

	matches := m.machine.MultiPatternSearch(norm, false)
	if len(matches) == 0 {
		return content
	}

	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(backref) {
			continue
		}
		// backref maps normalized positions back onto the original text.
		for i := backref[start]; i <= backref[end-1]; i++ {
			original[i] = m.maskRune
		}
	}
	return string(original)
}

// normalize lowercases, drops separator noise, and undoes the usual leet
// substitutions. The second return value maps each kept rune back to its
// index in the input.
func normalize(input []rune) ([]rune, []int) {
	norm := make([]rune, 0, len(input))
	backref := make([]int, 0, len(input))
	for i, r := range input {
		r = unleet(r)
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		backref = append(backref, i)
	}
	return norm, backref
}

func unleet(r rune) rune {
	switch r {
	case '0':
		return 'o'
	case '1', '!', '|':
		return 'i'
	case '3':
		return 'e'
	case '4', '@':
		return 'a'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	}
	return r
}
