package evaluate

import (
	"regexp"
	"strings"

	"github.com/opendub/engine/internal/core/job"
)

var (
	numberPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\b`)

	// datePattern catches common numeric and month-name date shapes; it is
	// intentionally permissive rather than exhaustive.
	datePattern = regexp.MustCompile(`\b\d{1,4}[/-]\d{1,2}[/-]\d{1,4}\b|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?\b`)

	// capitalizedWord matches a capitalized word not at sentence start
	// (proper-noun heuristic); sentence-start detection is handled by the
	// caller tracking position rather than here.
	capitalizedWord = regexp.MustCompile(`\b[A-Z][a-zA-Z]*\b`)

	// asciiRun matches ASCII-alphabetic runs of 2+ chars, used when the
	// target language is non-Latin to catch untranslated foreign-script IDs.
	asciiRun = regexp.MustCompile(`[A-Za-z]{2,}`)
)

// ComputeTermPreservation extracts salient tokens from original and checks
// whether translated contains an exact (case-insensitive for Latin terms)
// match for each.
func ComputeTermPreservation(original, translated string, targetIsNonLatin bool) job.TermPreservation {
	terms := extractTerms(original, targetIsNonLatin)
	if len(terms) == 0 {
		return job.TermPreservation{Score: 1.0}
	}

	lowerTranslated := strings.ToLower(translated)

	var missing []string
	matched := 0
	for _, term := range terms {
		if strings.Contains(lowerTranslated, strings.ToLower(term)) || strings.Contains(translated, term) {
			matched++
		} else {
			missing = append(missing, term)
		}
	}

	return job.TermPreservation{
		Score:   float64(matched) / float64(len(terms)),
		Missing: missing,
	}
}

// extractTerms pulls numbers, dates, capitalized non-initial words, and
// (for non-Latin targets) ASCII runs of ≥2 chars from text.
func extractTerms(text string, targetIsNonLatin bool) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		terms = append(terms, s)
	}

	for _, m := range datePattern.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range numberPattern.FindAllString(text, -1) {
		add(m)
	}

	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		for i, w := range words {
			if i == 0 {
				continue // skip sentence-initial capitalization
			}
			if capitalizedWord.MatchString(w) {
				add(capitalizedWord.FindString(w))
			}
		}
	}

	if targetIsNonLatin {
		for _, m := range asciiRun.FindAllString(text, -1) {
			add(m)
		}
	}

	return terms
}

// splitSentences performs a simple terminal-punctuation split; it does not
// need to be linguistically perfect, only good enough to skip
// sentence-initial capitalization when hunting for proper nouns.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	return sentences
}
