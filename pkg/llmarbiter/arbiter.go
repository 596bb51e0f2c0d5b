// Package llmarbiter implements the LLM arbiter (spec.md §4.E): for
// borderline semantic matches, it asks a local chat model for a strict
// JSON verdict, falling back to a secondary model exactly once, and
// memoizes decisions for the lifetime of the process.
package llmarbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Aviraj-Roy/billverify/internal/config"
)

// Verdict is the arbiter's decision for a single (bill item, tie-up item)
// pair.
type Verdict struct {
	Match          bool
	Confidence     float64
	NormalizedName string
	Error          string
}

type cacheKey struct {
	billItem  string
	tieupItem string
}

// Arbiter asks the configured chat backend for match verdicts, with an
// in-memory, never-expiring-within-process cache (spec.md §5).
type Arbiter struct {
	backend ChatBackend
	cfg     *config.LLMConfig
	breaker *gobreaker.CircuitBreaker

	mu    sync.Mutex
	cache map[cacheKey]Verdict
}

func New(backend ChatBackend, cfg *config.LLMConfig) *Arbiter {
	if cfg == nil {
		cfg = config.DefaultLLMConfig()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-arbiter-primary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Arbiter{
		backend: backend,
		cfg:     cfg,
		breaker: breaker,
		cache:   make(map[cacheKey]Verdict),
	}
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

type verdictJSON struct {
	Match          bool    `json:"match"`
	Confidence     float64 `json:"confidence"`
	NormalizedName string  `json:"normalized_name"`
}

const promptTemplate = `<|system|>
You are a strict billing-code matcher for a hospital reimbursement system.
Decide whether the BILL ITEM refers to the same billable service or good as
the TIE-UP ITEM from the hospital's rate sheet. Respond with ONLY a single
JSON object, no prose, no markdown fences.
<|user|>
BILL ITEM: %s
TIE-UP ITEM: %s

Respond with exactly this JSON shape:
{"match": <true|false>, "confidence": <0.0-1.0>, "normalized_name": "<canonical name>"}
<|assistant|>
`

// Judge returns a match verdict for (billItemNormalized, tieupItemNormalized),
// serving a cached decision when available (spec.md §4.E step 1).
func (a *Arbiter) Judge(ctx context.Context, billItemNormalized, tieupItemNormalized string) Verdict {
	key := cacheKey{billItem: billItemNormalized, tieupItem: tieupItemNormalized}

	a.mu.Lock()
	if cached, ok := a.cache[key]; ok {
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	verdict := a.judgeUncached(ctx, billItemNormalized, tieupItemNormalized)

	a.mu.Lock()
	a.cache[key] = verdict
	a.mu.Unlock()

	return verdict
}

func (a *Arbiter) judgeUncached(ctx context.Context, billItem, tieupItem string) Verdict {
	prompt := fmt.Sprintf(promptTemplate, billItem, tieupItem)
	opts := GenerateOptions{Temperature: a.cfg.Temperature, MaxTokens: a.cfg.MaxTokens}

	// Bounded by the circuit breaker (§5 "LLM arbiter cache guarded by a
	// mutex") and a per-call timeout; total wall clock across both
	// attempts is capped at llm_timeout*2 (spec.md §4.E).
	verdict, ok := a.tryModel(ctx, a.cfg.PrimaryModel, prompt, opts, true)
	if ok && verdict.Confidence >= a.cfg.MinConfidence {
		return verdict
	}

	secondaryVerdict, ok := a.tryModel(ctx, a.cfg.SecondaryModel, prompt, opts, false)
	if ok && secondaryVerdict.Confidence >= a.cfg.MinConfidence {
		return secondaryVerdict
	}

	reason := "both models failed or returned low confidence"
	if !ok && secondaryVerdict.Error != "" {
		reason = secondaryVerdict.Error
	}
	return Verdict{Match: false, Confidence: 0, Error: reason}
}

func (a *Arbiter) tryModel(ctx context.Context, modelID, prompt string, opts GenerateOptions, useBreaker bool) (Verdict, bool) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var response string
	var err error
	if useBreaker {
		var result interface{}
		result, err = a.breaker.Execute(func() (interface{}, error) {
			return a.backend.Generate(callCtx, modelID, prompt, opts)
		})
		if err == nil {
			response, _ = result.(string)
		}
	} else {
		response, err = a.backend.Generate(callCtx, modelID, prompt, opts)
	}

	if err != nil {
		return Verdict{Error: err.Error()}, false
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		return Verdict{Error: err.Error()}, false
	}
	return verdict, true
}

func parseVerdict(response string) (Verdict, error) {
	jsonText := jsonObjectRe.FindString(response)
	if jsonText == "" {
		return Verdict{}, fmt.Errorf("llmarbiter: no JSON object in response")
	}

	var parsed verdictJSON
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return Verdict{}, fmt.Errorf("llmarbiter: malformed JSON: %w", err)
	}

	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return Verdict{}, fmt.Errorf("llmarbiter: confidence out of range: %v", parsed.Confidence)
	}

	return Verdict{
		Match:          parsed.Match,
		Confidence:     parsed.Confidence,
		NormalizedName: parsed.NormalizedName,
	}, nil
}

// CacheSize reports the number of memoized verdicts, for diagnostics.
func (a *Arbiter) CacheSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cache)
}
