package store

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Aviraj-Roy/billverify/pkg/model"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var _ = Describe("dbRow.toModel", func() {
	It("leaves nullable timestamps nil when the column was null", func() {
		row := dbRow{
			UploadID:           "up-1",
			IngestionRequestID: "req-1",
			Status:             string(model.StatusPending),
			VerificationStatus: string(model.VerificationNone),
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		}

		rec, err := row.toModel()
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.QueueLeaseExpiresAt).To(BeNil())
		Expect(rec.ProcessingStartedAt).To(BeNil())
		Expect(rec.CompletedAt).To(BeNil())
		Expect(rec.DeletedAt).To(BeNil())
		Expect(rec.Bill).To(BeNil())
		Expect(rec.VerificationResult).To(BeNil())
	})

	It("dereferences a present nullable timestamp", func() {
		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		row := dbRow{
			Status:              string(model.StatusProcessing),
			VerificationStatus:  string(model.VerificationNone),
			QueueLeaseExpiresAt: sql.NullTime{Time: ts, Valid: true},
		}

		rec, err := row.toModel()
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.QueueLeaseExpiresAt).ToNot(BeNil())
		Expect(*rec.QueueLeaseExpiresAt).To(Equal(ts))
	})

	It("unmarshals a populated bill JSON column", func() {
		bill := model.ExtractedBill{GrandTotal: 1500}
		data, err := json.Marshal(bill)
		Expect(err).ToNot(HaveOccurred())

		row := dbRow{
			Status:             string(model.StatusCompleted),
			VerificationStatus: string(model.VerificationNone),
			Bill:               data,
		}

		rec, err := row.toModel()
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Bill).ToNot(BeNil())
		Expect(rec.Bill.GrandTotal).To(Equal(1500.0))
	})

	It("unmarshals populated line item edits", func() {
		edits := []model.LineItemEdit{{CategoryName: "Radiology", ItemIndex: 0}}
		data, err := json.Marshal(edits)
		Expect(err).ToNot(HaveOccurred())

		row := dbRow{
			Status:             string(model.StatusCompleted),
			VerificationStatus: string(model.VerificationNone),
			LineItemEdits:      data,
		}

		rec, err := row.toModel()
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.LineItemEdits).To(HaveLen(1))
		Expect(rec.LineItemEdits[0].CategoryName).To(Equal("Radiology"))
	})

	It("returns an error when the bill column holds malformed JSON", func() {
		row := dbRow{Bill: []byte("{not json")}
		_, err := row.toModel()
		Expect(err).To(HaveOccurred())
	})
})
