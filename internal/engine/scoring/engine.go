// Package scoring computes deterministic relevance scores for conversation
// events. Each analyzer is a pure function of the event payload, so scoring
// is safe to run concurrently across events and trivially unit-testable.
package scoring

import (
	"strings"

	"callflow/internal/platform/models"
)

// RelevanceThreshold is the single cutoff shared by every analyzer, the
// dispatcher and the notification generator. An event is relevant iff its
// score is strictly above this value.
const RelevanceThreshold = 0.5

// actionItemThreshold is where the transcribed analyzer starts emitting
// follow-up action items.
const actionItemThreshold = 0.7

type Config struct {
	Keywords    []string
	Competitors []string
	BrandTerm   string
}

type Engine struct {
	keywords    []string
	competitors []string
	brandTerm   string
}

type analyzerFunc func(*Engine, *models.WebhookEvent) (*models.ProcessingResult, error)

// analyzers maps event types to their analyzer. Types not present here are
// stored but not scored.
var analyzers = map[models.EventType]analyzerFunc{
	models.EventCallRecorded:    (*Engine).analyzeRecorded,
	models.EventCallTranscribed: (*Engine).analyzeTranscribed,
	models.EventCallAnalyzed:    (*Engine).analyzeAnalyzed,
	models.EventCallShared:      (*Engine).analyzeShared,
	models.EventUserCreated:     (*Engine).analyzeUserCreated,
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		keywords:    cfg.Keywords,
		competitors: cfg.Competitors,
		brandTerm:   strings.ToLower(cfg.BrandTerm),
	}
	if len(e.keywords) == 0 {
		e.keywords = defaultKeywords
	}
	if len(e.competitors) == 0 {
		e.competitors = defaultCompetitors
	}
	if e.brandTerm == "" {
		e.brandTerm = defaultBrandTerm
	}
	return e
}

// Score dispatches the event to its analyzer. Unknown event types pass
// through with a zero score and no insights; the caller still marks them
// completed.
func (e *Engine) Score(event *models.WebhookEvent) (*models.ProcessingResult, error) {
	analyze, ok := analyzers[event.EventType]
	if !ok {
		return finish(&models.ProcessingResult{}), nil
	}

	result, err := analyze(e, event)
	if err != nil {
		return nil, err
	}
	return finish(result), nil
}

// finish clamps the score and derives the relevance flag from the shared
// threshold so no analyzer can drift from the contract.
func finish(r *models.ProcessingResult) *models.ProcessingResult {
	r.RelevanceScore = clamp01(r.RelevanceScore)
	r.Relevant = r.RelevanceScore > RelevanceThreshold
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
