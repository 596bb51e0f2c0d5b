// Package normalize implements the text normalizer and medical-core
// extractor (spec.md §4.B). Every function here is pure and deterministic:
// no hospital-specific or drug-specific hardcoding, no I/O.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// Leading serial numbers: "1.", "2)", "a.".
	leadingSerialRe = regexp.MustCompile(`^\s*(?:[0-9]{1,4}[.)]|[a-zA-Z][.)])\s+`)

	// "Dr. X" / "Prof. Y" plus trailing credential letters (MD, MBBS, ...)
	// within the same comma/space-delimited run.
	doctorRe = regexp.MustCompile(`(?i)\b(?:dr\.?|prof\.?|doctor)\s+[a-z][a-z.\s]{0,40}(?:\b(?:md|mbbs|ms|do|frcs|mch|dm)\b)?`)

	// Lot / batch / expiry markers, e.g. "Batch: AB123", "Exp 12/25", "Lot No 9".
	lotBatchExpiryRe = regexp.MustCompile(`(?i)\b(?:batch|lot|exp(?:iry)?|mfg)\s*(?:no\.?|#)?\s*[:.]?\s*[a-z0-9/-]+`)

	// Candidate SKU / HSN style codes: any alphanumeric token of length
	// >= 6. Filtered down to actual codes (digit+letter mix) below.
	skuHsnRe = regexp.MustCompile(`\b[a-zA-Z0-9]{6,}\b`)

	hasDigitRe  = regexp.MustCompile(`[0-9]`)
	hasLetterRe = regexp.MustCompile(`[a-zA-Z]`)

	// Dates: 12/03/2024, 12-03-24, 2024-03-12.
	dateRe = regexp.MustCompile(`\b(?:\d{1,4}[/-]\d{1,2}[/-]\d{1,4})\b`)

	// Doctor-attribution trailer after a pipe or " - " separator, e.g.
	// "CONSULTATION | Dr. A Kumar" or "MRI BRAIN - Dr X".
	pipeAttributionRe = regexp.MustCompile(`(?i)(?:\|| - )\s*(?:dr\.?|prof\.?|doctor)\b.*$`)

	pipeHyphenColonRe = regexp.MustCompile(`[|:;]|(?:\s-\s)`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	// Strength pattern: a number followed by a recognized unit.
	strengthRe = regexp.MustCompile(`(?i)\b([0-9]+(?:\.[0-9]+)?)\s*(mg|mcg|ml|g|iu|%)\b`)

	// A "medical core" substance token: the word(s) immediately preceding
	// the strength match, trimmed of stray punctuation.
	substanceBeforeStrengthRe = regexp.MustCompile(`(?i)([a-z][a-z\-]{2,})\s+[0-9]+(?:\.[0-9]+)?\s*(?:mg|mcg|ml|g|iu|%)\b`)
)

// Normalize runs Stage 1 of spec.md §4.B: strips serials, doctor
// attribution, lot/batch/expiry, SKU/HSN codes, and dates, converts
// separators to spaces, lowercases, and collapses whitespace.
func Normalize(text string) string {
	s := text

	s = leadingSerialRe.ReplaceAllString(s, "")
	s = pipeAttributionRe.ReplaceAllString(s, "")
	s = doctorRe.ReplaceAllString(s, " ")
	s = lotBatchExpiryRe.ReplaceAllString(s, " ")
	s = dateRe.ReplaceAllString(s, " ")
	s = skuHsnRe.ReplaceAllStringFunc(s, func(match string) string {
		// Only strip tokens that mix letters and digits — pure words
		// (however long) and strength expressions like "500mg" stay.
		if !hasDigitRe.MatchString(match) || !hasLetterRe.MatchString(match) {
			return match
		}
		if strengthRe.MatchString(match) {
			return match
		}
		return " "
	})
	s = pipeHyphenColonRe.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// MedicalCore attempts Stage 2 of spec.md §4.B: extracting
// "<substance> <strength><unit>" from already-normalized text. Returns
// ("", false) when no recognized strength pattern is present.
func MedicalCore(normalizedText string) (string, bool) {
	strengthMatch := strengthRe.FindStringSubmatch(normalizedText)
	if strengthMatch == nil {
		return "", false
	}

	substanceMatch := substanceBeforeStrengthRe.FindStringSubmatch(normalizedText)
	amount, unit := strengthMatch[1], strengthMatch[2]

	if substanceMatch == nil {
		return strings.TrimSpace(amount + unit), true
	}

	substance := strings.TrimSpace(substanceMatch[1])
	return strings.TrimSpace(substance + " " + amount + unit), true
}

// WithMedicalCore normalizes text and appends the medical core when it
// differs from the plain normalized form, as spec.md §4.B requires ("the
// core is added alongside the normalized form when it differs").
func WithMedicalCore(text string) string {
	normalized := Normalize(text)
	core, ok := MedicalCore(normalized)
	if !ok || core == normalized {
		return normalized
	}
	return normalized + " " + core
}
