package normalize

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestNormalize(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Normalize Suite")
}

var _ = Describe("Normalize", func() {
	DescribeTable("strips noise and lowercases",
		func(input, expected string) {
			Expect(Normalize(input)).To(Equal(expected))
		},
		Entry("leading serial number with dot", "1. CONSULTATION - FIRST VISIT | Dr. A. Kumar", "consultation first visit"),
		Entry("leading serial number with paren", "2) Room Rent", "room rent"),
		Entry("pipe doctor attribution", "MRI BRAIN | Dr. X", "mri brain"),
		Entry("standalone doctor mention", "Consultation Dr. Kumar MBBS", "consultation"),
		Entry("date removed", "Admission on 12/03/2024 charges", "admission on charges"),
		Entry("collapses whitespace", "Room   Rent   -   General   Ward", "room rent general ward"),
	)

	It("keeps a strength expression immediately glued to its number", func() {
		Expect(Normalize("Nicorandil 5mg Tablet")).To(Equal("nicorandil 5mg tablet"))
	})

	It("strips a mixed alphanumeric SKU code of length >= 6", func() {
		Expect(Normalize("Syringe 5ml ABC123X")).To(Equal("syringe 5ml"))
	})

	It("does not strip long pure-letter words", func() {
		Expect(Normalize("HOSPITALIZATION CHARGES")).To(Equal("hospitalization charges"))
	})
})

var _ = Describe("MedicalCore", func() {
	It("extracts substance and strength when present", func() {
		core, ok := MedicalCore("nicorandil 5mg tablet")
		Expect(ok).To(BeTrue())
		Expect(core).To(Equal("nicorandil 5mg"))
	})

	It("reports no core when no strength pattern is present", func() {
		_, ok := MedicalCore("room rent general ward")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("WithMedicalCore", func() {
	It("appends the core when it differs from the normalized text", func() {
		Expect(WithMedicalCore("Nicorandil 5mg Tablet Twice Daily")).To(Equal("nicorandil 5mg tablet twice daily nicorandil 5mg"))
	})

	It("does not duplicate when the normalized text already is the core", func() {
		Expect(WithMedicalCore("Nicorandil 5mg")).To(Equal("nicorandil 5mg"))
	})
})
