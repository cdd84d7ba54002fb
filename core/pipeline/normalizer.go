package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviation is one clinical shorthand and its expansion. The table is
// an ordered slice, longest form first, so that "w/o" is expanded before
// its prefix "w/".
type abbreviation struct {
	short string
	full  string
	re    *regexp.Regexp
}

var abbreviationTable = compileAbbreviations([][2]string{
	{"c/o", "complains of"},
	{"w/o", "without"},
	{"y/o", "year old"},
	{"w/", "with"},
	{"yo", "year old"},
	{"pt", "patient"},
	{"hx", "history"},
	{"dx", "diagnosis"},
	{"tx", "treatment"},
	{"rx", "prescription"},
	{"sx", "symptoms"},
})

func compileAbbreviations(pairs [][2]string) []abbreviation {
	abbrs := make([]abbreviation, 0, len(pairs))
	for _, p := range pairs {
		abbrs = append(abbrs, abbreviation{
			short: p[0],
			full:  p[1],
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
		})
	}
	return abbrs
}

// OffsetMap maps byte positions of the normalized text back to the
// original text. For normalized byte i, the originating original range
// is [Starts[i], Ends[i]). Bytes inserted by normalization carry a
// zero-width range at their insertion point; bytes produced by an
// abbreviation expansion all carry the range of the whole abbreviation.
type OffsetMap struct {
	Starts []int
	Ends   []int
}

// OriginalSpan converts a normalized-text span [start, end) into the
// corresponding span of the original text.
func (m OffsetMap) OriginalSpan(start, end int) (int, int) {
	if len(m.Starts) == 0 || start >= end || start < 0 || end > len(m.Starts) {
		return 0, 0
	}
	return m.Starts[start], m.Ends[end-1]
}

// Normalizer performs deterministic text cleanup before candidate
// detection: whitespace collapse, digit/letter splitting and clinical
// abbreviation expansion.
type Normalizer struct {
	abbreviations []abbreviation
}

// NewNormalizer creates a Normalizer with the built-in abbreviation table
func NewNormalizer() *Normalizer {
	return &Normalizer{abbreviations: abbreviationTable}
}

// Normalize returns the normalized form of text
func (n *Normalizer) Normalize(text string) string {
	normalized, _ := n.NormalizeWithOffsets(text)
	return normalized
}

// NormalizeWithOffsets returns the normalized text together with an
// offset map into the original text. Candidate detection runs against
// the normalized text; final entity spans are always reported against
// the original, so every transformation here must keep the map exact.
func (n *Normalizer) NormalizeWithOffsets(text string) (string, OffsetMap) {
	out, m := collapseWhitespace(text)
	out, m = splitDigitLetter(out, m)
	for _, abbr := range n.abbreviations {
		out, m = expandAbbreviation(out, m, abbr)
	}
	return out, m
}

// collapseWhitespace replaces each run of whitespace with a single space
// mapped to the full original run.
func collapseWhitespace(text string) (string, OffsetMap) {
	var b strings.Builder
	m := OffsetMap{}

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			runStart := i
			for i < len(text) {
				r2, size2 := utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(r2) {
					break
				}
				i += size2
			}
			b.WriteByte(' ')
			m.Starts = append(m.Starts, runStart)
			m.Ends = append(m.Ends, i)
			continue
		}
		for j := 0; j < size; j++ {
			b.WriteByte(text[i+j])
			m.Starts = append(m.Starts, i)
			m.Ends = append(m.Ends, i+size)
		}
		i += size
	}

	return b.String(), m
}

// splitDigitLetter inserts a space between a digit run and an immediately
// following letter run ("101F" -> "101 F"), which the dosage and unit
// regexes depend on. Inserted spaces map to a zero-width original range.
func splitDigitLetter(text string, m OffsetMap) (string, OffsetMap) {
	var b strings.Builder
	out := OffsetMap{}

	for i := 0; i < len(text); i++ {
		if i > 0 && isASCIIDigit(text[i-1]) && isASCIILetter(text[i]) {
			b.WriteByte(' ')
			out.Starts = append(out.Starts, m.Starts[i])
			out.Ends = append(out.Ends, m.Starts[i])
		}
		b.WriteByte(text[i])
		out.Starts = append(out.Starts, m.Starts[i])
		out.Ends = append(out.Ends, m.Ends[i])
	}

	return b.String(), out
}

// expandAbbreviation replaces every whole-word occurrence of one
// abbreviation. All bytes of the expansion map to the original range of
// the matched abbreviation.
func expandAbbreviation(text string, m OffsetMap, abbr abbreviation) (string, OffsetMap) {
	matches := abbr.re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, m
	}

	var b strings.Builder
	out := OffsetMap{}
	prev := 0

	for _, match := range matches {
		ms, me := match[0], match[1]
		for i := prev; i < ms; i++ {
			b.WriteByte(text[i])
			out.Starts = append(out.Starts, m.Starts[i])
			out.Ends = append(out.Ends, m.Ends[i])
		}
		origStart, origEnd := m.Starts[ms], m.Ends[me-1]
		for j := 0; j < len(abbr.full); j++ {
			b.WriteByte(abbr.full[j])
			out.Starts = append(out.Starts, origStart)
			out.Ends = append(out.Ends, origEnd)
		}
		prev = me
	}
	for i := prev; i < len(text); i++ {
		b.WriteByte(text[i])
		out.Starts = append(out.Starts, m.Starts[i])
		out.Ends = append(out.Ends, m.Ends[i])
	}

	return b.String(), out
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
