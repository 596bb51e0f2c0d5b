package artifact

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestArtifact(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Artifact Suite")
}

var _ = Describe("IsHospitalHeaderArtifact", func() {
	It("flags the canonical Hospital - / UNKNOWN / zero pattern", func() {
		Expect(IsHospitalHeaderArtifact("Hospital", "UNKNOWN", 0, 0)).To(BeTrue())
	})

	It("flags an empty item name under a hospitalization category", func() {
		Expect(IsHospitalHeaderArtifact("Hospitalization", "", 0, 0)).To(BeTrue())
	})

	It("does not flag a real billable row under the same category name", func() {
		Expect(IsHospitalHeaderArtifact("Hospital", "Room Rent", 0, 0)).To(BeFalse())
	})

	It("does not flag when amounts are non-zero", func() {
		Expect(IsHospitalHeaderArtifact("Hospital", "Unknown", 10, 10)).To(BeFalse())
	})

	It("does not flag an unrelated category", func() {
		Expect(IsHospitalHeaderArtifact("Pharmacy", "Unknown", 0, 0)).To(BeFalse())
	})
})

var _ = Describe("IsZeroAmountCodeArtifact", func() {
	It("flags a purely numeric zero-amount item", func() {
		Expect(IsZeroAmountCodeArtifact("12345", 0)).To(BeTrue())
	})

	It("flags a long alphanumeric code at zero amount", func() {
		Expect(IsZeroAmountCodeArtifact("ABC123X", 0)).To(BeTrue())
	})

	It("flags a lot/batch marker at zero amount", func() {
		Expect(IsZeroAmountCodeArtifact("Batch AB12", 0)).To(BeTrue())
	})

	It("does not flag a real item even at zero amount", func() {
		Expect(IsZeroAmountCodeArtifact("Consultation", 0)).To(BeFalse())
	})

	It("does not flag a numeric-looking item with a non-zero amount", func() {
		Expect(IsZeroAmountCodeArtifact("12345", 50)).To(BeFalse())
	})
})

var _ = Describe("IsAdminCharge", func() {
	It("matches common admin phrases", func() {
		Expect(IsAdminCharge("Registration Fee")).To(BeTrue())
		Expect(IsAdminCharge("Refundable Deposit")).To(BeTrue())
	})

	It("does not match an unrelated item", func() {
		Expect(IsAdminCharge("MRI Brain")).To(BeFalse())
	})
})
