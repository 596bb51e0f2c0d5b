package errors

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Errors Suite")
}

var _ = Describe("AppError", func() {
	Context("basic error creation", func() {
		It("should create an error with correct properties", func() {
			err := New(ErrorTypeValidation, "bad input")

			Expect(err.Type).To(Equal(ErrorTypeValidation))
			Expect(err.Message).To(Equal("bad input"))
			Expect(err.StatusCode).To(Equal(400))
			Expect(err.Details).To(BeEmpty())
			Expect(err.Cause).To(BeNil())
		})

		It("should implement the error interface", func() {
			err := New(ErrorTypeValidation, "bad input")
			Expect(err.Error()).To(Equal("validation: bad input"))
		})

		It("should include details in the error string when present", func() {
			err := New(ErrorTypeValidation, "bad input").WithDetails("employee_id must be 8 digits")
			Expect(err.Error()).To(Equal("validation: bad input (employee_id must be 8 digits)"))
		})
	})

	Context("wrapping", func() {
		It("should wrap an underlying error", func() {
			cause := errors.New("connection refused")
			wrapped := Wrap(cause, ErrorTypeStore, "insert failed")

			Expect(wrapped.Cause).To(Equal(cause))
			Expect(wrapped.Unwrap()).To(Equal(cause))
			Expect(wrapped.Type).To(Equal(ErrorTypeStore))
		})
	})

	DescribeTable("status code mapping",
		func(t ErrorType, code int) {
			Expect(New(t, "x").StatusCode).To(Equal(code))
		},
		Entry("validation", ErrorTypeValidation, 400),
		Entry("not found", ErrorTypeNotFound, 404),
		Entry("conflict", ErrorTypeConflict, 409),
		Entry("not ready", ErrorTypeNotReady, 409),
		Entry("catalog load", ErrorTypeCatalog, 500),
		Entry("timeout", ErrorTypeTimeout, 408),
		Entry("store unavailable", ErrorTypeStore, 503),
		Entry("ocr failure", ErrorTypeOcr, 502),
		Entry("internal", ErrorTypeInternal, 500),
	)

	Describe("predefined constructors", func() {
		It("builds a not-found error for a named resource", func() {
			err := NewNotFound("upload")
			Expect(err.Type).To(Equal(ErrorTypeNotFound))
			Expect(err.Message).To(Equal("upload not found"))
		})

		It("builds a hospital-not-found error carrying the hospital name", func() {
			err := NewHospitalNotFound("Apollo Hospital")
			Expect(err.Details).To(Equal("Apollo Hospital"))
		})
	})

	Describe("IsType", func() {
		It("identifies AppError types correctly", func() {
			err := NewInvalidInput("bad employee id")
			Expect(IsType(err, ErrorTypeValidation)).To(BeTrue())
			Expect(IsType(err, ErrorTypeNotFound)).To(BeFalse())
		})

		It("returns false for non-AppError values", func() {
			Expect(IsType(errors.New("plain"), ErrorTypeValidation)).To(BeFalse())
		})
	})
})
