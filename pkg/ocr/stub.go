package ocr

import (
	"context"
	"os"
)

// StubEngine is a placeholder Engine for deployments that have not yet
// wired a real OCR/PDF-rendering backend. It reports every page as
// failed so the pipeline surfaces OcrFailure rather than silently
// fabricating bill content — a real backend (a local renderer, a
// hosted multimodal API) is expected to replace it before production
// use, per spec.md §1's scoping of OCR to a narrow collaborator
// interface.
type StubEngine struct{}

func NewStubEngine() *StubEngine { return &StubEngine{} }

func (e *StubEngine) ExtractText(_ context.Context, pdfPath string) ([]Page, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, err
	}
	_ = info
	return []Page{{Number: 1, Failed: true}}, nil
}
