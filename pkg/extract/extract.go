// Package extract turns OCR page output into a structured bill
// (spec.md §3's ExtractedBill): category headings, line items with
// amounts, and the header/patient/payment fields a bill carries outside
// its line items. It is deterministic, rule-based text parsing — no
// hosted extraction model is wired (see SPEC_FULL.md's DOMAIN STACK
// notes on the dropped generative-ai-go dependency) — grounded on the
// same "pattern over raw OCR text" shape the teacher's own
// extraction/classification helpers use, just applied to bill text
// instead of Kubernetes event text.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Aviraj-Roy/billverify/pkg/model"
	"github.com/Aviraj-Roy/billverify/pkg/ocr"
)

var (
	// trailingAmountRe captures a line ending in a rupee amount, with an
	// optional leading currency marker, e.g. "Consultation Fee   1,500.00"
	// or "MRI Brain Rs. 8500".
	trailingAmountRe = regexp.MustCompile(`^(.*?)\s*(?:Rs\.?|INR|₹)?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*$`)

	// qtyRateRe captures an explicit "qty x rate" breakdown embedded in
	// the item text, e.g. "Syringe 5ml x3 @ 45".
	qtyRateRe = regexp.MustCompile(`(?i)x\s*([0-9]+(?:\.[0-9]+)?)\s*@\s*([0-9]+(?:\.[0-9]+)?)`)

	categoryHeadingRe = regexp.MustCompile(`^[A-Z][A-Z /&-]{2,39}$`)

	invoiceNoRe  = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number)\s*[:\-]?\s*(\S+)`)
	patientNameRe = regexp.MustCompile(`(?i)patient\s*name\s*[:\-]?\s*(.+)`)
	amountPaidRe = regexp.MustCompile(`(?i)amount\s*paid\s*[:\-]?\s*(?:Rs\.?|INR|₹)?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
)

// ParseBill walks the OCR pages in order and produces a structured bill
// plus the category names in first-seen order. Non-fatal extraction
// warnings (unparseable lines, dropped pages) go into the bill's
// ExtractionWarnings. It never returns an error: a page that failed in OCR, or a
// line that doesn't fit a known shape, is recorded as a warning instead
// of aborting the whole extraction (spec.md §7 "OcrFailure... propagated
// only when every page failed").
func ParseBill(pages []ocr.Page) (model.ExtractedBill, []string) {
	bill := model.ExtractedBill{Items: make(map[string][]model.ItemRow)}
	var warnings []string
	var catOrder []string
	currentCategory := "Uncategorized"

	for _, page := range pages {
		if page.Failed {
			warnings = append(warnings, "page "+itoa(page.Number)+": ocr failed, skipped")
			continue
		}

		for _, line := range linesOf(page) {
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			if m := invoiceNoRe.FindStringSubmatch(text); m != nil {
				bill.Header.InvoiceNo = strings.TrimSpace(m[1])
				continue
			}
			if m := patientNameRe.FindStringSubmatch(text); m != nil {
				bill.Patient.Name = strings.TrimSpace(m[1])
				continue
			}
			if m := amountPaidRe.FindStringSubmatch(text); m != nil {
				if v, ok := parseAmount(m[1]); ok {
					bill.Payments.AmountPaid = v
				}
				continue
			}

			if categoryHeadingRe.MatchString(text) {
				currentCategory = strings.Title(strings.ToLower(text))
				if _, seen := bill.Items[currentCategory]; !seen {
					catOrder = append(catOrder, currentCategory)
					bill.Items[currentCategory] = nil
				}
				continue
			}

			row, ok := parseItemLine(text, page.Number)
			if !ok {
				warnings = append(warnings, "page "+itoa(page.Number)+": unparsed line: "+text)
				continue
			}
			if _, seen := bill.Items[currentCategory]; !seen {
				catOrder = append(catOrder, currentCategory)
			}
			row.Category = currentCategory
			bill.Items[currentCategory] = append(bill.Items[currentCategory], row)
			bill.GrandTotal += row.Amount
		}
	}

	bill.ExtractionWarnings = warnings
	return bill, catOrder
}

// parseItemLine extracts an item name and amount, and — when present —
// an explicit quantity/rate breakdown, from one OCR line.
func parseItemLine(text string, page int) (model.ItemRow, bool) {
	m := trailingAmountRe.FindStringSubmatch(text)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return model.ItemRow{}, false
	}
	amount, ok := parseAmount(m[2])
	if !ok {
		return model.ItemRow{}, false
	}

	row := model.ItemRow{
		ItemName: strings.TrimSpace(m[1]),
		Amount:   amount,
		Page:     page,
	}

	if qm := qtyRateRe.FindStringSubmatch(row.ItemName); qm != nil {
		if qty, err := strconv.ParseFloat(qm[1], 64); err == nil {
			row.Quantity = &qty
		}
		if rate, err := strconv.ParseFloat(qm[2], 64); err == nil {
			row.Rate = &rate
		}
	}

	return row, true
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func linesOf(page ocr.Page) []string {
	if len(page.Lines) > 0 {
		out := make([]string, len(page.Lines))
		for i, l := range page.Lines {
			out[i] = l.Text
		}
		return out
	}
	return strings.Split(page.Text, "\n")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
