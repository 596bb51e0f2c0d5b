// Package model holds the shared domain types for the bill-verification
// backbone: the extracted bill shape, the rate catalog shape, and the
// verification result shape. Every component in pkg/ consumes these types
// rather than inventing its own.
package model

import "time"

// ItemRow is one free-text line from an extracted bill.
type ItemRow struct {
	ItemName string   `json:"item_name"`
	Amount   float64  `json:"amount"`
	Quantity *float64 `json:"quantity,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	Page     int      `json:"page,omitempty"`
	Category string   `json:"category,omitempty"`
}

// QuantityOrDefault returns Quantity if present, otherwise 1 (spec.md §4.F).
func (r ItemRow) QuantityOrDefault() float64 {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// BillCategory groups the rows extracted under a single free-text category
// heading (the caller-observed grouping, not yet matched to the catalog).
type BillCategory struct {
	CategoryName string    `json:"category_name"`
	Items        []ItemRow `json:"items"`
}

// BillInput is what the verifier (§4.G) consumes: the hospital name
// asserted at submission plus the extracted, categorized line items.
type BillInput struct {
	HospitalName string         `json:"hospital_name"`
	Categories   []BillCategory `json:"categories"`
}

// Patient is the extracted patient block of a bill.
type Patient struct {
	Name       string `json:"name,omitempty"`
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	AdmissionID string `json:"admission_id,omitempty"`
}

// Header is the extracted non-itemized header block of a bill.
type Header struct {
	HospitalName string     `json:"hospital_name,omitempty"`
	InvoiceDate  *time.Time `json:"invoice_date,omitempty"`
	InvoiceNo    string     `json:"invoice_no,omitempty"`
}

// Payments captures the payment summary extracted from a bill, if present.
type Payments struct {
	AmountPaid float64 `json:"amount_paid,omitempty"`
	Balance    float64 `json:"balance,omitempty"`
	Mode       string  `json:"mode,omitempty"`
}

// ExtractedBill is the structured result of OCR + extraction, set on an
// upload record when status transitions to COMPLETED (spec.md §3).
type ExtractedBill struct {
	Patient            Patient              `json:"patient"`
	Header             Header               `json:"header"`
	Items              map[string][]ItemRow `json:"items"`
	Payments           Payments             `json:"payments"`
	GrandTotal         float64              `json:"grand_total"`
	ExtractionWarnings []string             `json:"extraction_warnings,omitempty"`
}

// ToBillInput converts an extracted bill into the BillInput shape the
// verifier consumes, preserving category and item order via catOrder.
func (b ExtractedBill) ToBillInput(hospitalName string, catOrder []string) BillInput {
	categories := make([]BillCategory, 0, len(catOrder))
	for _, name := range catOrder {
		categories = append(categories, BillCategory{
			CategoryName: name,
			Items:        b.Items[name],
		})
	}
	return BillInput{HospitalName: hospitalName, Categories: categories}
}

// LineItemEdit is a manual correction recorded against a specific row of an
// already-extracted bill (spec.md §3, "Manual edits"). It never mutates the
// extracted bill in place.
type LineItemEdit struct {
	CategoryName string   `json:"category_name"`
	ItemIndex    int      `json:"item_index"`
	Qty          *float64 `json:"qty,omitempty"`
	Rate         *float64 `json:"rate,omitempty"`
	TieupRate    *float64 `json:"tieup_rate,omitempty"`
}

// ApplyLineItemEdits returns a copy of items with edits applied: amount is
// recomputed from qty*rate only when both are supplied by the edit,
// otherwise the original amount is preserved untouched (spec.md "Manual
// edits" + SPEC_FULL patch_line_items recomputation rule).
func ApplyLineItemEdits(categoryName string, items []ItemRow, edits []LineItemEdit) []ItemRow {
	out := make([]ItemRow, len(items))
	copy(out, items)

	for _, edit := range edits {
		if edit.CategoryName != categoryName {
			continue
		}
		if edit.ItemIndex < 0 || edit.ItemIndex >= len(out) {
			continue
		}
		row := out[edit.ItemIndex]
		if edit.Qty != nil {
			row.Quantity = edit.Qty
		}
		if edit.Rate != nil {
			row.Rate = edit.Rate
		}
		if edit.Qty != nil && edit.Rate != nil {
			row.Amount = *edit.Qty * *edit.Rate
		}
		out[edit.ItemIndex] = row
	}
	return out
}
