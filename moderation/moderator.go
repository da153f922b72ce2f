// Package moderation masks forbidden words in chat messages before they
// enter the shared transcript. Matching runs over a normalized view of the
// text so spacing, punctuation and leet substitutions don't defeat the
// word list.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator holds a compiled Aho-Corasick automaton over the normalized
// word list. Safe for concurrent use once built.
type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// New compiles the forbidden word list. Words are normalized the same way
// incoming text is, so the list can be written in plain lowercase.
func New(forbidden []string, mask rune) (*Moderator, error) {
	patterns := make([][]rune, len(forbidden))
	for i, word := range forbidden {
		normalized, _ := normalize([]rune(word))
		patterns[i] = normalized
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: machine, mask: mask}, nil
}

// Censor replaces every forbidden match with the mask rune. Positions are
// mapped back from the normalized text to the original, so a spaced-out or
// leeted spelling is masked over its full original span.
func (m *Moderator) Censor(original string) string {
	origRunes := []rune(original)
	normalized, origIdx := normalize(origRunes)
	if len(normalized) == 0 {
		return original
	}

	matches := m.matcher.MultiPatternSearch(normalized, false)
	if len(matches) == 0 {
		return original
	}

	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.mask
		}
	}
	return string(origRunes)
}

// normalize lowercases, undoes leet substitutions and strips noise runes.
// The second return maps each normalized position back to its index in the
// input, which Censor needs to mask the right characters.
func normalize(input []rune) ([]rune, []int) {
	normalized := make([]rune, 0, len(input))
	origIdx := make([]int, 0, len(input))
	for i, r := range input {
		plain := unleet(r)
		if isNoise(plain) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(plain))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}

// unleet maps common leet speak characters back to letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
