// Package verifier implements the bill verifier (spec.md §4.G): the
// central algorithm that takes an extracted bill plus an asserted
// hospital name and produces a fully classified, reconciled
// VerificationResult by walking hospital match, category match, and
// per-item match/price-check in sequence.
package verifier

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/Aviraj-Roy/billverify/internal/config"
	"github.com/Aviraj-Roy/billverify/pkg/artifact"
	"github.com/Aviraj-Roy/billverify/pkg/catalog"
	"github.com/Aviraj-Roy/billverify/pkg/llmarbiter"
	"github.com/Aviraj-Roy/billverify/pkg/matcher"
	"github.com/Aviraj-Roy/billverify/pkg/model"
	"github.com/Aviraj-Roy/billverify/pkg/normalize"
	"github.com/Aviraj-Roy/billverify/pkg/pricing"
)

// Verifier orchestrates the hospital → category → item matching pipeline
// against a loaded catalog.
type Verifier struct {
	catalog *catalog.Catalog
	matcher *matcher.Matcher
	arbiter *llmarbiter.Arbiter
	cfg     *config.MatcherConfig
	logger  logr.Logger
}

func New(cat *catalog.Catalog, m *matcher.Matcher, arb *llmarbiter.Arbiter, cfg *config.MatcherConfig, logger logr.Logger) *Verifier {
	if cfg == nil {
		cfg = config.DefaultMatcherConfig()
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &Verifier{catalog: cat, matcher: m, arbiter: arb, cfg: cfg, logger: logger}
}

// Verify runs the full four-stage algorithm and returns a reconciled
// VerificationResult. It never returns an error for a bill that simply
// fails to match the catalog — a hospital or category miss is a
// classification outcome (HOSPITAL_NOT_MATCHED / low-similarity fallback),
// not a failure of the operation. It returns an error only when the
// catalog itself cannot be queried (e.g. not loaded).
func (v *Verifier) Verify(ctx context.Context, input model.BillInput) (*model.VerificationResult, error) {
	result := &model.VerificationResult{}

	hospMatch, indices, matched, err := v.matchHospital(ctx, input.HospitalName)
	if err != nil {
		return nil, fmt.Errorf("verifier: hospital match: %w", err)
	}
	result.Hospital = hospMatch

	for _, inputCat := range input.Categories {
		var catResult model.CategoryResult
		if !matched {
			catResult = v.unmatchedCategory(inputCat)
		} else {
			catResult = v.verifyCategory(ctx, inputCat, indices)
		}
		result.Categories = append(result.Categories, catResult)
	}

	result.Reconcile()
	if !result.FinancialsBalanced {
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf(
			"financial totals did not reconcile within tolerance: bill=%.2f allowed=%.2f extra=%.2f unclassified=%.2f",
			result.Totals.Bill, result.Totals.Allowed, result.Totals.Extra, result.Totals.Unclassified))
		v.logger.Info("verifier: financials did not balance", "hospital", input.HospitalName)
	}
	return result, nil
}

// matchHospital implements Stage 1 (spec.md §4.G): embed the asserted
// hospital name, take the top-1 hospital by cosine similarity, and accept
// it only when similarity clears HospitalThreshold.
func (v *Verifier) matchHospital(ctx context.Context, assertedName string) (model.HospitalMatch, catalog.HospitalIndices, bool, error) {
	nodes, err := v.catalog.HospitalNodes()
	if err != nil {
		return model.HospitalMatch{}, catalog.HospitalIndices{}, false, err
	}

	queryVector, err := v.catalog.EmbedQuery(ctx, assertedName)
	if err != nil {
		return model.HospitalMatch{}, catalog.HospitalIndices{}, false, err
	}

	best, ok := catalog.TopOne(nodes, queryVector)
	if !ok || best.Similarity <= v.cfg.HospitalThreshold {
		sim := 0.0
		name := ""
		if ok {
			sim = best.Similarity
			name = best.Node.Name
		}
		return model.HospitalMatch{Name: name, Similarity: sim, Matched: false}, catalog.HospitalIndices{}, false, nil
	}

	indices, err := v.catalog.GetIndices(best.Node.Name)
	if err != nil {
		return model.HospitalMatch{}, catalog.HospitalIndices{}, false, err
	}

	return model.HospitalMatch{Name: best.Node.Name, Similarity: best.Similarity, Matched: true}, indices, true, nil
}

// unmatchedCategory handles every item of a category when Stage 1 failed:
// artifacts are still filtered out, everything else becomes UNCLASSIFIED /
// HOSPITAL_NOT_MATCHED (spec.md §4.G Stage 1).
func (v *Verifier) unmatchedCategory(inputCat model.BillCategory) model.CategoryResult {
	catResult := model.CategoryResult{CategoryName: inputCat.CategoryName}
	for _, item := range inputCat.Items {
		if artifact.IsArtifact(inputCat.CategoryName, item.ItemName, item.Amount, item.Amount) {
			catResult.Items = append(catResult.Items, pricing.ClassifyArtifact(item))
			continue
		}
		catResult.Items = append(catResult.Items, pricing.ClassifyUnmatched(item, model.FailureHospitalNotMatch))
	}
	return catResult
}

// verifyCategory implements Stage 2 and Stage 3 (spec.md §4.G) for one
// input category against a matched hospital's indices.
func (v *Verifier) verifyCategory(ctx context.Context, inputCat model.BillCategory, indices catalog.HospitalIndices) model.CategoryResult {
	catResult := model.CategoryResult{CategoryName: inputCat.CategoryName}

	itemIndex, matchedCatName, catSim, usedUnion := v.resolveItemIndex(ctx, inputCat.CategoryName, indices)
	catResult.MatchedCategory = matchedCatName
	catResult.CategorySimilarity = catSim
	catResult.UsedUnionSearch = usedUnion

	for _, item := range inputCat.Items {
		catResult.Items = append(catResult.Items, v.verifyItem(ctx, inputCat.CategoryName, item, itemIndex))
	}
	return catResult
}

// resolveItemIndex implements Stage 2's three-way branch on category
// similarity: direct match (>=CategoryHardFloor), soft-warn match
// ([CategorySoftFloor, CategoryHardFloor)), or a union-index fallback
// across every category of the hospital (<CategorySoftFloor).
func (v *Verifier) resolveItemIndex(ctx context.Context, categoryName string, indices catalog.HospitalIndices) ([]catalog.ItemNode, string, float64, bool) {
	if len(indices.Categories) == 0 {
		return indices.UnionItems, "", 0, true
	}

	queryVector, err := v.catalog.EmbedQuery(ctx, categoryName)
	if err != nil {
		v.logger.Error(err, "verifier: embedding category query failed, falling back to union search")
		return indices.UnionItems, "", 0, true
	}

	best, ok := catalog.TopOne(indices.Categories, queryVector)
	if !ok || best.Similarity < v.cfg.CategorySoftFloor {
		return indices.UnionItems, "", 0, true
	}

	if best.Similarity < v.cfg.CategoryHardFloor {
		v.logger.Info("verifier: category matched below hard floor",
			"category", categoryName,
			"matched_category", best.Node.Name,
			"similarity", best.Similarity)
	}

	return indices.ItemsFor(best.Node.ID), best.Node.Name, best.Similarity, false
}

// verifyItem implements Stage 3: artifact filtering, semantic matching,
// acceptance thresholds, LLM arbitration for the borderline band, and
// price classification.
func (v *Verifier) verifyItem(ctx context.Context, categoryName string, item model.ItemRow, itemIndex []catalog.ItemNode) model.ItemResult {
	if artifact.IsArtifact(categoryName, item.ItemName, item.Amount, item.Amount) {
		return pricing.ClassifyArtifact(item)
	}

	queryVector, err := v.catalog.EmbedQuery(ctx, item.ItemName)
	if err != nil {
		v.logger.Error(err, "verifier: embedding item query failed")
		return v.classifyUnaccepted(item, model.CandidateMatch{})
	}

	candidates := v.matcher.MatchItems(item.ItemName, queryVector, itemIndex)
	best, ok := matcher.BestCandidate(candidates)
	if !ok {
		return v.classifyUnaccepted(item, model.CandidateMatch{})
	}

	result := v.decideCandidate(ctx, item, best)
	result.Candidates = candidates
	result.BestCandidate = &best
	return result
}

// decideCandidate applies Stage 3's acceptance rule and, for the
// borderline semantic band, consults the LLM arbiter before classifying.
func (v *Verifier) decideCandidate(ctx context.Context, item model.ItemRow, best model.CandidateMatch) model.ItemResult {
	if v.accepts(best) {
		return pricing.ClassifyMatched(item, *best.TieUpItem)
	}

	if v.arbiter != nil && best.Semantic >= v.cfg.SemanticMinForLLM && best.Semantic < v.cfg.SemanticMaxForLLM {
		billNorm := normalize.WithMedicalCore(item.ItemName)
		tieupNorm := normalize.WithMedicalCore(best.ItemName)
		verdict := v.arbiter.Judge(ctx, billNorm, tieupNorm)
		if verdict.Match {
			result := pricing.ClassifyMatched(item, *best.TieUpItem)
			result.ArbiterUsed = true
			return result
		}
	}

	result := v.classifyUnaccepted(item, best)
	result.ArbiterUsed = false
	return result
}

// accepts implements §4.G Stage 3's acceptance rule: a semantic score
// clearing SemanticAutoAccept always accepts; otherwise a hybrid score
// clearing HybridAccept accepts provided token overlap or containment
// also clears their own floors.
func (v *Verifier) accepts(c model.CandidateMatch) bool {
	if c.Semantic >= v.cfg.SemanticAutoAccept {
		return true
	}
	if c.Hybrid >= v.cfg.HybridAccept &&
		(c.TokenOverlap >= v.cfg.TokenOverlapAccept || c.Containment >= v.cfg.ContainmentAccept) {
		return true
	}
	return false
}

// classifyUnaccepted determines the failure reason for an item that was
// not accepted against any tie-up candidate: an admin-phrase match takes
// priority, then bundle-only candidates, then a similarity-based split
// between NOT_IN_TIEUP and LOW_SIMILARITY.
func (v *Verifier) classifyUnaccepted(item model.ItemRow, best model.CandidateMatch) model.ItemResult {
	var reason model.FailureReason
	switch {
	case artifact.IsAdminCharge(item.ItemName):
		reason = model.FailureAdminCharge
	case best.IsBundleOnly:
		reason = model.FailurePackageOnly
	case best.Semantic < v.cfg.CategorySoftFloor:
		reason = model.FailureNotInTieup
	default:
		reason = model.FailureLowSimilarity
	}
	return pricing.ClassifyUnmatched(item, reason)
}
