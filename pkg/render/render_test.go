package render

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Aviraj-Roy/billverify/pkg/model"
)

func TestRender(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Render Suite")
}

func sampleInput() model.BillInput {
	return model.BillInput{
		HospitalName: "Apollo Hospital",
		Categories: []model.BillCategory{
			{CategoryName: "Consultation", Items: []model.ItemRow{{ItemName: "Consultation", Amount: 1500}}},
		},
	}
}

func sampleResult(status model.ItemStatus) model.VerificationResult {
	return model.VerificationResult{
		Categories: []model.CategoryResult{
			{
				CategoryName: "Consultation",
				Items: []model.ItemResult{
					{Input: model.ItemRow{ItemName: "Consultation"}, Status: status, BillAmount: 1500, AllowedAmount: 1500},
				},
			},
		},
	}
}

var _ = Describe("CheckCompleteness", func() {
	It("reports no violation when every input item appears once", func() {
		Expect(CheckCompleteness(sampleInput(), sampleResult(model.StatusGreen))).To(BeEmpty())
	})

	It("reports a violation when an input item is missing from the result", func() {
		result := model.VerificationResult{Categories: []model.CategoryResult{{CategoryName: "Consultation"}}}
		violations := CheckCompleteness(sampleInput(), result)
		Expect(violations).ToNot(BeEmpty())
	})

	It("counts an ignored artifact as having been handled, not as missing", func() {
		result := sampleResult(model.StatusIgnoredArtifact)
		violations := CheckCompleteness(sampleInput(), result)
		Expect(violations).To(BeEmpty())
	})
})

var _ = Describe("CheckCounters", func() {
	It("reports no violation when summary counts match the item total", func() {
		result := sampleResult(model.StatusGreen)
		result.Reconcile()
		Expect(CheckCounters(result)).To(BeEmpty())
	})

	It("reports a violation when summary counts were not recomputed after a change", func() {
		result := sampleResult(model.StatusGreen)
		result.Summary.Green = 5 // stale, doesn't match the single item above
		Expect(CheckCounters(result)).ToNot(BeEmpty())
	})
})

var _ = Describe("RenderFinal", func() {
	It("excludes ignored artifacts from the final view", func() {
		result := sampleResult(model.StatusIgnoredArtifact)
		views := RenderFinal(result)
		Expect(views[0].Items).To(BeEmpty())
	})

	It("includes allowed and extra amounts for RED, only allowed for GREEN", func() {
		green := RenderFinal(sampleResult(model.StatusGreen))
		Expect(green[0].Items[0].AllowedAmount).ToNot(BeNil())
		Expect(green[0].Items[0].ExtraAmount).To(BeNil())

		red := sampleResult(model.StatusRed)
		red.Categories[0].Items[0].ExtraAmount = 50
		redViews := RenderFinal(red)
		Expect(redViews[0].Items[0].AllowedAmount).ToNot(BeNil())
		Expect(redViews[0].Items[0].ExtraAmount).ToNot(BeNil())
	})
})

var _ = Describe("RenderDebug", func() {
	It("includes ignored artifacts and candidate lists", func() {
		result := sampleResult(model.StatusIgnoredArtifact)
		result.Categories[0].Items[0].Candidates = []model.CandidateMatch{{ItemName: "x", Semantic: 0.4}}

		views := RenderDebug(result)
		Expect(views[0].Items).To(HaveLen(1))
		Expect(views[0].Items[0].Candidates).To(HaveLen(1))
	})
})
