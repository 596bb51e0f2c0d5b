// Package render implements the output renderer and validator (spec.md
// §4.K): completeness and counter checks over a VerificationResult, and
// the final/debug view projections served to callers.
package render

import (
	"fmt"

	"github.com/Aviraj-Roy/billverify/pkg/model"
)

// CheckCompleteness verifies that every input item, artifacts included,
// appears exactly once in the result, in the same category, with the
// same original text. It never raises — each violation is returned as a
// diagnostic string for the caller to log, rather than failing the
// operation (spec.md §4.K "non-fatal; surfaced to logs").
func CheckCompleteness(input model.BillInput, result model.VerificationResult) []string {
	var violations []string

	for _, inputCat := range input.Categories {
		catResult := findCategory(result, inputCat.CategoryName)
		if catResult == nil {
			if len(inputCat.Items) > 0 {
				violations = append(violations, fmt.Sprintf(
					"COMPLETENESS_VIOLATION: category %q present in input but missing from result", inputCat.CategoryName))
			}
			continue
		}

		seen := make(map[string]int, len(inputCat.Items))
		for _, item := range inputCat.Items {
			seen[item.ItemName]++
		}

		// Artifacts are excluded from the *final* view (RenderFinal) but
		// still count toward completeness here: the verifier examined
		// them and recorded a disposition, which is what completeness
		// actually checks for — that no input line vanished silently.
		found := make(map[string]int, len(catResult.Items))
		for _, itemResult := range catResult.Items {
			found[itemResult.Input.ItemName]++
		}

		for name, wantCount := range seen {
			if found[name] != wantCount {
				violations = append(violations, fmt.Sprintf(
					"COMPLETENESS_VIOLATION: category %q item %q expected %d occurrence(s), found %d",
					inputCat.CategoryName, name, wantCount, found[name]))
			}
		}
	}

	return violations
}

func findCategory(result model.VerificationResult, name string) *model.CategoryResult {
	for i := range result.Categories {
		if result.Categories[i].CategoryName == name {
			return &result.Categories[i]
		}
	}
	return nil
}

// CheckCounters verifies the summary counts sum to the total item count
// across every category (spec.md §4.K). A mismatch means the verifier
// dropped or double-counted an item while assembling the result.
func CheckCounters(result model.VerificationResult) []string {
	var total int
	for _, cat := range result.Categories {
		total += len(cat.Items)
	}
	if result.Summary.Total() != total {
		return []string{fmt.Sprintf(
			"COUNTER_VIOLATION: summary counts total %d, item count %d", result.Summary.Total(), total)}
	}
	return nil
}

// FinalItemView is the caller-facing projection of one ItemResult: the
// exact field set spec.md §4.K prescribes per status, with N/A fields
// simply left zero-valued/omitted by the JSON tag rather than rendered
// as the literal string "N/A" (the HTTP collaborator's presentation
// layer is responsible for that substitution, not the core).
type FinalItemView struct {
	ItemName      string               `json:"item_name"`
	Status        model.ItemStatus     `json:"status"`
	BillAmount    float64              `json:"bill_amount"`
	AllowedAmount *float64             `json:"allowed_amount,omitempty"`
	ExtraAmount   *float64             `json:"extra_amount,omitempty"`
	FailureReason model.FailureReason  `json:"failure_reason,omitempty"`
	BestCandidate *model.CandidateMatch `json:"best_candidate,omitempty"`
}

// FinalCategoryView groups FinalItemViews under their category name,
// preserving input order and excluding ignored artifacts (spec.md §4.K).
type FinalCategoryView struct {
	CategoryName string          `json:"category_name"`
	Items        []FinalItemView `json:"items"`
}

// RenderFinal produces the user-facing view: categories and items in
// input order, IGNORED_ARTIFACT items excluded, field sets matching
// spec.md §4.K's per-status rules.
func RenderFinal(result model.VerificationResult) []FinalCategoryView {
	views := make([]FinalCategoryView, 0, len(result.Categories))
	for _, cat := range result.Categories {
		view := FinalCategoryView{CategoryName: cat.CategoryName}
		for _, item := range cat.Items {
			if item.Status == model.StatusIgnoredArtifact {
				continue
			}
			view.Items = append(view.Items, finalItemView(item))
		}
		views = append(views, view)
	}
	return views
}

func finalItemView(item model.ItemResult) FinalItemView {
	view := FinalItemView{
		ItemName:   item.Input.ItemName,
		Status:     item.Status,
		BillAmount: item.BillAmount,
	}
	switch item.Status {
	case model.StatusGreen:
		allowed := item.AllowedAmount
		view.AllowedAmount = &allowed
	case model.StatusRed:
		allowed, extra := item.AllowedAmount, item.ExtraAmount
		view.AllowedAmount = &allowed
		view.ExtraAmount = &extra
	case model.StatusMismatch, model.StatusUnclassified, model.StatusAllowedNotComparable:
		view.FailureReason = item.FailureReason
		view.BestCandidate = item.BestCandidate
	}
	return view
}

// DebugItemView additionally carries the full candidate list and scores
// for every item, including ignored artifacts (spec.md §4.K "Debug view
// additionally includes per-item candidate lists and scores").
type DebugItemView struct {
	FinalItemView
	Candidates  []model.CandidateMatch `json:"candidates,omitempty"`
	ArbiterUsed bool                    `json:"arbiter_used,omitempty"`
}

// DebugCategoryView is the debug-view analogue of FinalCategoryView,
// including ignored artifacts.
type DebugCategoryView struct {
	CategoryName       string          `json:"category_name"`
	MatchedCategory    string          `json:"matched_category,omitempty"`
	CategorySimilarity float64         `json:"category_similarity"`
	UsedUnionSearch    bool            `json:"used_union_search,omitempty"`
	Items              []DebugItemView `json:"items"`
}

// RenderDebug produces the full debug view: every item (including
// ignored artifacts), every candidate and score, category match
// diagnostics.
func RenderDebug(result model.VerificationResult) []DebugCategoryView {
	views := make([]DebugCategoryView, 0, len(result.Categories))
	for _, cat := range result.Categories {
		view := DebugCategoryView{
			CategoryName:       cat.CategoryName,
			MatchedCategory:    cat.MatchedCategory,
			CategorySimilarity: cat.CategorySimilarity,
			UsedUnionSearch:    cat.UsedUnionSearch,
		}
		for _, item := range cat.Items {
			view.Items = append(view.Items, DebugItemView{
				FinalItemView: finalItemView(item),
				Candidates:    item.Candidates,
				ArbiterUsed:   item.ArbiterUsed,
			})
		}
		views = append(views, view)
	}
	return views
}
