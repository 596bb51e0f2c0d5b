// Package artifact implements the artifact detector (spec.md §4.C): it
// classifies a (category, item, amount) triple as a non-billable OCR or
// header fragment rather than a real billable row.
package artifact

import (
	"regexp"
	"strings"

	"github.com/Aviraj-Roy/billverify/pkg/normalize"
)

var (
	purelyNumericRe  = regexp.MustCompile(`^[0-9\s.,-]+$`)
	longAlnumCodeRe  = regexp.MustCompile(`^[a-z0-9]{6,}$`)
	lotBatchExpiryRe = regexp.MustCompile(`(?i)^(?:batch|lot|exp(?:iry)?|mfg)\b`)

	// Admin/registration-style phrases §4.C's "extended admin-phrase
	// heuristic" referenced by §4.G for FailureAdminCharge.
	adminPhraseRe = regexp.MustCompile(`(?i)\b(registration fee|admission fee|deposit|processing fee|file charges|documentation charges|service tax|convenience fee)\b`)
)

// IsHospitalHeaderArtifact implements spec.md §4.C's primary rule: a
// category matching "hospital"/"hospitalization" with an empty or
// "unknown" item name and zero amounts on both sides.
func IsHospitalHeaderArtifact(category, itemName string, amount, finalAmount float64) bool {
	normCategory := normalize.Normalize(category)
	if normCategory != "hospital" && normCategory != "hospitalization" {
		return false
	}

	normItem := normalize.Normalize(itemName)
	if normItem != "" && normItem != "unknown" {
		return false
	}

	return amount == 0 && finalAmount == 0
}

// IsZeroAmountCodeArtifact implements §4.C's secondary rule: zero-amount
// items whose trimmed, lowercased text is purely numeric, a long code
// mixing letters and digits, or starts with a lot/batch/expiry marker.
// It checks the raw text rather than Normalize's output, because Normalize
// strips such codes and markers.
func IsZeroAmountCodeArtifact(itemName string, amount float64) bool {
	if amount != 0 {
		return false
	}

	raw := strings.ToLower(strings.TrimSpace(itemName))
	if raw == "" {
		return false
	}

	compact := strings.ReplaceAll(raw, " ", "")
	if purelyNumericRe.MatchString(raw) {
		return true
	}
	if longAlnumCodeRe.MatchString(compact) &&
		strings.ContainsAny(compact, "0123456789") &&
		strings.ContainsAny(compact, "abcdefghijklmnopqrstuvwxyz") {
		return true
	}
	if lotBatchExpiryRe.MatchString(raw) {
		return true
	}
	return false
}

// IsArtifact is the combined check the bill verifier (§4.G Stage 3 step 1)
// and the state store's CompleteBill (§4.H complete_bill, before
// persistence) use.
func IsArtifact(category, itemName string, amount, finalAmount float64) bool {
	if IsHospitalHeaderArtifact(category, itemName, amount, finalAmount) {
		return true
	}
	return IsZeroAmountCodeArtifact(itemName, amount)
}

// IsAdminCharge implements §4.G Stage 3 step 6's extended admin-phrase
// heuristic used to set FailureReason=ADMIN_CHARGE on unmatched items.
func IsAdminCharge(itemName string) bool {
	return adminPhraseRe.MatchString(itemName)
}
