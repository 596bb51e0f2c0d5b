package model

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestModel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Model Suite")
}

func f64(v float64) *float64 { return &v }

var _ = Describe("ApplyLineItemEdits", func() {
	It("recomputes amount only when both qty and rate are supplied", func() {
		items := []ItemRow{{ItemName: "MRI Brain", Amount: 10000}}
		edits := []LineItemEdit{{CategoryName: "Radiology", ItemIndex: 0, Qty: f64(2), Rate: f64(4000)}}

		out := ApplyLineItemEdits("Radiology", items, edits)

		Expect(out[0].Amount).To(Equal(8000.0))
		Expect(*out[0].Quantity).To(Equal(2.0))
	})

	It("leaves amount untouched when only one of qty/rate is edited", func() {
		items := []ItemRow{{ItemName: "MRI Brain", Amount: 10000}}
		edits := []LineItemEdit{{CategoryName: "Radiology", ItemIndex: 0, Rate: f64(4000)}}

		out := ApplyLineItemEdits("Radiology", items, edits)

		Expect(out[0].Amount).To(Equal(10000.0))
		Expect(*out[0].Rate).To(Equal(4000.0))
	})

	It("ignores edits for a different category", func() {
		items := []ItemRow{{ItemName: "MRI Brain", Amount: 10000}}
		edits := []LineItemEdit{{CategoryName: "Pharmacy", ItemIndex: 0, Qty: f64(2), Rate: f64(1)}}

		out := ApplyLineItemEdits("Radiology", items, edits)

		Expect(out[0].Amount).To(Equal(10000.0))
	})

	It("ignores out-of-range item indices", func() {
		items := []ItemRow{{ItemName: "MRI Brain", Amount: 10000}}
		edits := []LineItemEdit{{CategoryName: "Radiology", ItemIndex: 5, Qty: f64(2), Rate: f64(1)}}

		Expect(func() { ApplyLineItemEdits("Radiology", items, edits) }).ToNot(Panic())
	})
})

var _ = Describe("VerificationResult.Reconcile", func() {
	It("balances bill = allowed + extra + unclassified within tolerance", func() {
		v := &VerificationResult{
			Categories: []CategoryResult{
				{
					CategoryName: "Consultation",
					Items: []ItemResult{
						{Status: StatusGreen, BillAmount: 1500, AllowedAmount: 1500},
						{Status: StatusRed, BillAmount: 10770, AllowedAmount: 8500, ExtraAmount: 2270},
						{Status: StatusAllowedNotComparable, BillAmount: 200},
						{Status: StatusIgnoredArtifact, BillAmount: 0},
					},
				},
			},
		}

		v.Reconcile()

		Expect(v.Totals.Bill).To(Equal(1500.0 + 10770.0 + 200.0))
		Expect(v.Totals.Allowed).To(Equal(1500.0 + 8500.0))
		Expect(v.Totals.Extra).To(Equal(2270.0))
		Expect(v.Totals.Unclassified).To(Equal(200.0))
		Expect(v.FinancialsBalanced).To(BeTrue())
		Expect(v.Summary.Total()).To(Equal(4))
	})

	It("flags an imbalance beyond the 0.01 tolerance", func() {
		v := &VerificationResult{
			Categories: []CategoryResult{{
				Items: []ItemResult{
					{Status: StatusRed, BillAmount: 100.05, AllowedAmount: 90, ExtraAmount: 10},
				},
			}},
		}

		v.Reconcile()

		Expect(v.FinancialsBalanced).To(BeFalse())
	})
})

var _ = Describe("DeriveProcessingStage", func() {
	DescribeTable("derives the expected stage",
		func(status Status, verification VerificationStatus, expected ProcessingStage) {
			Expect(DeriveProcessingStage(status, verification)).To(Equal(expected))
		},
		Entry("pending", StatusPending, VerificationNone, StageQueued),
		Entry("processing before verification", StatusProcessing, VerificationNone, StageExtracting),
		Entry("processing during verification", StatusProcessing, VerificationProcessing, StageVerifying),
		Entry("completed and verified", StatusCompleted, VerificationCompleted, StageDone),
		Entry("completed but still verifying", StatusCompleted, VerificationProcessing, StageVerifying),
		Entry("failed", StatusFailed, VerificationNone, StageFailed),
	)
})

var _ = Describe("ListFilter.NormalizedLimit", func() {
	It("defaults to 50 when unset", func() {
		Expect(ListFilter{}.NormalizedLimit()).To(Equal(50))
	})

	It("clamps to 500", func() {
		Expect(ListFilter{Limit: 10000}.NormalizedLimit()).To(Equal(500))
	})

	It("passes through valid values", func() {
		Expect(ListFilter{Limit: 120}.NormalizedLimit()).To(Equal(120))
	})
})
