// Package ocr defines the OCR collaborator contract (spec.md §6): the
// core consumes page-ordered text with line-level bounding hints and
// never calls a hosted OCR/vision API directly. Concrete backends (a
// local renderer, a hosted multimodal API) implement Engine outside this
// package.
package ocr

import "context"

// BoundingBox is a line's position hint on its source page, in the
// coordinate space the concrete OCR backend reports (typically pixels
// at the rendered page resolution).
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Line is one recognized line of text on a page.
type Line struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"bbox"`
}

// Page is the OCR output for a single page of the source PDF. Text is
// empty and Failed is true when the page could not be read at all
// (spec.md §6 "may drop pages on failure; returns empty text for
// dropped pages").
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
	Lines  []Line `json:"lines"`
	Failed bool   `json:"-"`
}

// Engine is the collaborator contract itself:
// extract_text(pdf_bytes_or_path) → [{page, text, lines}]. A per-page
// failure never surfaces as an error from ExtractText — it is recorded
// as a Failed page and the caller (pkg/pipeline) decides whether every
// page failing constitutes a job-level OcrFailure (spec.md §7).
type Engine interface {
	ExtractText(ctx context.Context, pdfPath string) ([]Page, error)
}

// AllFailed reports whether every page in pages failed, the condition
// under which the pipeline raises OcrFailure rather than proceeding
// with a partially-extracted bill.
func AllFailed(pages []Page) bool {
	if len(pages) == 0 {
		return true
	}
	for _, p := range pages {
		if !p.Failed {
			return false
		}
	}
	return true
}
