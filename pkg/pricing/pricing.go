// Package pricing implements the price checker and classifier (spec.md
// §4.F): it computes the allowed amount for a matched tie-up item and
// classifies a bill line into one of the six terminal statuses.
package pricing

import "github.com/Aviraj-Roy/billverify/pkg/model"

// AllowedAmount computes the allowed amount for a matched item per
// spec.md §4.F: unit items multiply rate by quantity (defaulting to 1),
// service and bundle items charge the flat rate.
func AllowedAmount(item model.ItemRow, tieup model.TieUpItem) float64 {
	switch tieup.Type {
	case model.TieUpItemUnit:
		return tieup.Rate * item.QuantityOrDefault()
	default: // service, bundle
		return tieup.Rate
	}
}

// ClassifyMatched classifies a bill line that was accepted against a
// tie-up item (spec.md §4.F's GREEN/RED rows).
func ClassifyMatched(item model.ItemRow, tieup model.TieUpItem) model.ItemResult {
	allowed := AllowedAmount(item, tieup)
	result := model.ItemResult{
		Input:         item,
		BillAmount:    item.Amount,
		AllowedAmount: allowed,
		MatchedItem:   &tieup,
	}

	if item.Amount <= allowed {
		result.Status = model.StatusGreen
		result.ExtraAmount = 0
	} else {
		result.Status = model.StatusRed
		result.ExtraAmount = item.Amount - allowed
	}
	return result
}

// ClassifyUnmatched classifies a bill line that was not accepted against
// any tie-up item, using the failure reason already determined by the
// caller (spec.md §4.F's ALLOWED_NOT_COMPARABLE / MISMATCH /
// UNCLASSIFIED rows; artifacts go through ClassifyArtifact instead).
func ClassifyUnmatched(item model.ItemRow, reason model.FailureReason) model.ItemResult {
	status := statusForReason(reason)
	result := model.ItemResult{
		Input:         item,
		Status:        status,
		FailureReason: reason,
		BillAmount:    item.Amount,
		AllowedAmount: 0,
		ExtraAmount:   0,
	}
	if status == model.StatusIgnoredArtifact {
		result.BillAmount = item.Amount
	}
	return result
}

func statusForReason(reason model.FailureReason) model.ItemStatus {
	switch reason {
	case model.FailureAdminCharge:
		return model.StatusAllowedNotComparable
	case model.FailurePackageOnly:
		return model.StatusMismatch
	case model.FailureHospitalNotMatch, model.FailureNotInTieup, model.FailureLowSimilarity:
		return model.StatusUnclassified
	default:
		return model.StatusUnclassified
	}
}

// ClassifyArtifact classifies a bill line detected as a non-billable
// artifact (spec.md §4.C, §4.F's IGNORED_ARTIFACT row).
func ClassifyArtifact(item model.ItemRow) model.ItemResult {
	return model.ItemResult{
		Input:      item,
		Status:     model.StatusIgnoredArtifact,
		BillAmount: item.Amount,
	}
}
