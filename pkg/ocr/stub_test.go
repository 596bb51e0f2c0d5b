package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOcr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OCR Suite")
}

var _ = Describe("StubEngine", func() {
	It("reports every page as failed so AllFailed triggers OcrFailure", func() {
		dir, err := os.MkdirTemp("", "ocr-stub-*")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "source.pdf")
		Expect(os.WriteFile(path, []byte("%PDF-1.4"), 0o644)).To(Succeed())

		engine := NewStubEngine()
		pages, err := engine.ExtractText(context.Background(), path)
		Expect(err).ToNot(HaveOccurred())
		Expect(AllFailed(pages)).To(BeTrue())
	})

	It("errors when the staged file is missing", func() {
		engine := NewStubEngine()
		_, err := engine.ExtractText(context.Background(), "/no/such/path.pdf")
		Expect(err).To(HaveOccurred())
	})
})
