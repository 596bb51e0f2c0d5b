package pricing

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Aviraj-Roy/billverify/pkg/model"
)

func TestPricing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pricing Suite")
}

func f64(v float64) *float64 { return &v }

var _ = Describe("AllowedAmount", func() {
	It("multiplies rate by quantity for unit items", func() {
		item := model.ItemRow{Quantity: f64(3)}
		tieup := model.TieUpItem{Rate: 50, Type: model.TieUpItemUnit}
		Expect(AllowedAmount(item, tieup)).To(Equal(150.0))
	})

	It("defaults quantity to 1 when absent", func() {
		item := model.ItemRow{}
		tieup := model.TieUpItem{Rate: 50, Type: model.TieUpItemUnit}
		Expect(AllowedAmount(item, tieup)).To(Equal(50.0))
	})

	It("uses the flat rate for service items regardless of quantity", func() {
		item := model.ItemRow{Quantity: f64(9)}
		tieup := model.TieUpItem{Rate: 1500, Type: model.TieUpItemService}
		Expect(AllowedAmount(item, tieup)).To(Equal(1500.0))
	})

	It("uses the flat rate for bundle items", func() {
		item := model.ItemRow{}
		tieup := model.TieUpItem{Rate: 20000, Type: model.TieUpItemBundle}
		Expect(AllowedAmount(item, tieup)).To(Equal(20000.0))
	})
})

var _ = Describe("ClassifyMatched", func() {
	It("classifies GREEN when bill equals allowed exactly", func() {
		item := model.ItemRow{ItemName: "Consultation", Amount: 1500}
		tieup := model.TieUpItem{ItemName: "Consultation", Rate: 1500, Type: model.TieUpItemService}

		result := ClassifyMatched(item, tieup)

		Expect(result.Status).To(Equal(model.StatusGreen))
		Expect(result.AllowedAmount).To(Equal(1500.0))
		Expect(result.ExtraAmount).To(Equal(0.0))
	})

	It("classifies RED when bill exceeds allowed by one paisa", func() {
		item := model.ItemRow{Amount: 1500.01}
		tieup := model.TieUpItem{Rate: 1500, Type: model.TieUpItemService}

		result := ClassifyMatched(item, tieup)

		Expect(result.Status).To(Equal(model.StatusRed))
		Expect(result.ExtraAmount).To(BeNumerically("~", 0.01, 1e-9))
	})

	It("classifies RED with the full overage for the MRI scenario", func() {
		item := model.ItemRow{ItemName: "MRI Brain", Amount: 10770}
		tieup := model.TieUpItem{ItemName: "MRI Brain", Rate: 8500, Type: model.TieUpItemService}

		result := ClassifyMatched(item, tieup)

		Expect(result.Status).To(Equal(model.StatusRed))
		Expect(result.AllowedAmount).To(Equal(8500.0))
		Expect(result.ExtraAmount).To(Equal(2270.0))
	})
})

var _ = Describe("ClassifyUnmatched", func() {
	It("classifies an admin charge as ALLOWED_NOT_COMPARABLE", func() {
		item := model.ItemRow{ItemName: "Registration Fee", Amount: 200}
		result := ClassifyUnmatched(item, model.FailureAdminCharge)

		Expect(result.Status).To(Equal(model.StatusAllowedNotComparable))
		Expect(result.AllowedAmount).To(Equal(0.0))
	})

	It("classifies a bundle-only candidate as MISMATCH", func() {
		item := model.ItemRow{Amount: 500}
		result := ClassifyUnmatched(item, model.FailurePackageOnly)
		Expect(result.Status).To(Equal(model.StatusMismatch))
	})

	It("classifies a hospital-mismatch item as UNCLASSIFIED", func() {
		item := model.ItemRow{Amount: 500}
		result := ClassifyUnmatched(item, model.FailureHospitalNotMatch)
		Expect(result.Status).To(Equal(model.StatusUnclassified))
	})
})

var _ = Describe("ClassifyArtifact", func() {
	It("marks the item IGNORED_ARTIFACT with no allowed/extra amounts", func() {
		item := model.ItemRow{ItemName: "Unknown", Amount: 0}
		result := ClassifyArtifact(item)

		Expect(result.Status).To(Equal(model.StatusIgnoredArtifact))
		Expect(result.AllowedAmount).To(Equal(0.0))
		Expect(result.ExtraAmount).To(Equal(0.0))
	})
})
