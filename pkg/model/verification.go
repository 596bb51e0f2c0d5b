package model

// ItemStatus is the per-item classification produced by §4.F.
type ItemStatus string

const (
	StatusGreen                 ItemStatus = "GREEN"
	StatusRed                   ItemStatus = "RED"
	StatusUnclassified          ItemStatus = "UNCLASSIFIED"
	StatusAllowedNotComparable  ItemStatus = "ALLOWED_NOT_COMPARABLE"
	StatusMismatch              ItemStatus = "MISMATCH"
	StatusIgnoredArtifact       ItemStatus = "IGNORED_ARTIFACT"
)

// FailureReason explains why an item did not receive GREEN/RED (spec.md
// Glossary).
type FailureReason string

const (
	FailureNotInTieup       FailureReason = "NOT_IN_TIEUP"
	FailureLowSimilarity    FailureReason = "LOW_SIMILARITY"
	FailurePackageOnly      FailureReason = "PACKAGE_ONLY"
	FailureAdminCharge      FailureReason = "ADMIN_CHARGE"
	FailureHospitalNotMatch FailureReason = "HOSPITAL_NOT_MATCHED"
)

// CandidateMatch is a scored candidate returned by the semantic matcher
// (§4.D) — also used by the debug view (§4.K) to show per-item candidates.
type CandidateMatch struct {
	ItemName      string  `json:"item_name"`
	Semantic      float64 `json:"semantic"`
	TokenOverlap  float64 `json:"token_overlap"`
	Containment   float64 `json:"containment"`
	Hybrid        float64 `json:"hybrid"`
	TieUpItem     *TieUpItem `json:"tieup_item,omitempty"`
	IsBundleOnly  bool    `json:"is_bundle_only,omitempty"`
}

// ItemResult is the verification outcome for a single bill line.
type ItemResult struct {
	Input         ItemRow          `json:"input"`
	Status        ItemStatus       `json:"status"`
	FailureReason FailureReason    `json:"failure_reason,omitempty"`
	BillAmount    float64          `json:"bill_amount"`
	AllowedAmount float64          `json:"allowed_amount"`
	ExtraAmount   float64          `json:"extra_amount"`
	MatchedItem   *TieUpItem       `json:"matched_item,omitempty"`
	BestCandidate *CandidateMatch  `json:"best_candidate,omitempty"`
	Candidates    []CandidateMatch `json:"candidates,omitempty"`
	ArbiterUsed   bool             `json:"arbiter_used,omitempty"`
}

// CategoryResult groups item results under the input category, preserving
// input order (spec.md §4.G Stage 4).
type CategoryResult struct {
	CategoryName      string       `json:"category_name"`
	MatchedCategory   string       `json:"matched_category,omitempty"`
	CategorySimilarity float64     `json:"category_similarity"`
	UsedUnionSearch   bool         `json:"used_union_search,omitempty"`
	Items             []ItemResult `json:"items"`
}

// SummaryCounts is the per-status tally over every item in a bill.
type SummaryCounts struct {
	Green                 int `json:"green"`
	Red                   int `json:"red"`
	Unclassified          int `json:"unclassified"`
	AllowedNotComparable  int `json:"allowed_not_comparable"`
	Mismatch              int `json:"mismatch"`
	IgnoredArtifact       int `json:"ignored_artifact"`
}

// Total is the count of all items including ignored artifacts — used by
// the counter-reconciliation check (§4.K).
func (s SummaryCounts) Total() int {
	return s.Green + s.Red + s.Unclassified + s.AllowedNotComparable + s.Mismatch + s.IgnoredArtifact
}

// FinancialTotals is the bill-level reconciliation produced by §4.G Stage 4.
type FinancialTotals struct {
	Bill         float64 `json:"bill"`
	Allowed      float64 `json:"allowed"`
	Extra        float64 `json:"extra"`
	Unclassified float64 `json:"unclassified"`
}

// HospitalMatch records the hospital-level match made in §4.G Stage 1.
type HospitalMatch struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	Matched    bool    `json:"matched"`
}

// VerificationResult is the full output of the bill verifier (§4.G, §3).
type VerificationResult struct {
	Hospital           HospitalMatch    `json:"hospital"`
	Categories         []CategoryResult `json:"categories"`
	Summary            SummaryCounts    `json:"summary"`
	Totals             FinancialTotals  `json:"totals"`
	FinancialsBalanced bool             `json:"financials_balanced"`
	Diagnostics        []string         `json:"diagnostics,omitempty"`
}

// reconciliationTolerance is the ±₹0.01 tolerance from spec.md §4.G.
const reconciliationTolerance = 0.01

// Reconcile computes Summary, Totals and FinancialsBalanced from the
// per-category item results already assembled on the result.
func (v *VerificationResult) Reconcile() {
	var summary SummaryCounts
	var totals FinancialTotals

	for _, cat := range v.Categories {
		for _, item := range cat.Items {
			totals.Bill += item.BillAmount
			switch item.Status {
			case StatusGreen:
				summary.Green++
				totals.Allowed += item.AllowedAmount
			case StatusRed:
				summary.Red++
				totals.Allowed += item.AllowedAmount
				totals.Extra += item.ExtraAmount
			case StatusUnclassified:
				summary.Unclassified++
				totals.Unclassified += item.BillAmount
			case StatusAllowedNotComparable:
				summary.AllowedNotComparable++
				totals.Unclassified += item.BillAmount
			case StatusMismatch:
				summary.Mismatch++
				totals.Unclassified += item.BillAmount
			case StatusIgnoredArtifact:
				summary.IgnoredArtifact++
			}
		}
	}

	v.Summary = summary
	v.Totals = totals
	diff := totals.Bill - (totals.Allowed + totals.Extra + totals.Unclassified)
	if diff < 0 {
		diff = -diff
	}
	v.FinancialsBalanced = diff <= reconciliationTolerance
}
