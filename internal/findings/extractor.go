package findings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/mhoffmann/blackout/internal/alert"
	"github.com/mhoffmann/blackout/internal/providers"
)

// DefaultConfidenceThreshold is the minimum model confidence a finding
// needs to survive extraction.
const DefaultConfidenceThreshold = 0.8

// ExtractorConfig tunes the detection call and its retry policy.
type ExtractorConfig struct {
	Model               string
	Temperature         float64
	ConfidenceThreshold float64
	MaxAttempts         uint          // retry attempts for transient errors
	InitialWait         time.Duration // first backoff delay
	MaxWait             time.Duration // backoff ceiling
}

// Extractor asks the language model for sensitive spans in page text and
// filters its structured output.
type Extractor struct {
	llm      providers.LLMClient
	notifier alert.Notifier
	logger   *slog.Logger
	cfg      ExtractorConfig

	// The threshold is the one knob config hot reload adjusts on a
	// running extractor.
	mu        sync.RWMutex
	threshold float64
}

// NewExtractor creates an extractor. A nil notifier disables alerting.
func NewExtractor(llm providers.LLMClient, notifier alert.Notifier, logger *slog.Logger, cfg ExtractorConfig) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialWait == 0 {
		cfg.InitialWait = time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 10 * time.Second
	}
	return &Extractor{
		llm:       llm,
		notifier:  notifier,
		logger:    logger.With("component", "extractor"),
		cfg:       cfg,
		threshold: cfg.ConfidenceThreshold,
	}
}

// ConfidenceThreshold returns the current acceptance floor.
func (e *Extractor) ConfidenceThreshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.threshold
}

// SetConfidenceThreshold replaces the acceptance floor. Values outside
// 0-1 are ignored.
func (e *Extractor) SetConfidenceThreshold(v float64) {
	if v < 0 || v > 1 {
		return
	}
	e.mu.Lock()
	e.threshold = v
	e.mu.Unlock()
}

// Extract detects sensitive spans in pageText for the enabled categories.
// It never fails page processing: every error degrades to an empty result
// after logging (and alerting for exhausted retries). When no category is
// enabled the model is not called at all.
func (e *Extractor) Extract(ctx context.Context, pageText string, prefs Preferences) []Finding {
	enabled := prefs.Enabled()
	if len(enabled) == 0 {
		e.logger.Info("no anonymization categories enabled, skipping detection")
		return nil
	}

	found, err := e.extract(ctx, pageText, enabled)
	if err != nil {
		e.logger.Error("finding extraction failed", "error", err)
		return nil
	}
	return found
}

// extract performs the model call under the retry policy and parses the
// response.
func (e *Extractor) extract(ctx context.Context, pageText string, enabled []Category) ([]Finding, error) {
	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt(enabled)},
			{Role: "user", Content: UserPrompt(pageText)},
		},
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		JSONMode:    true,
	}

	var result *providers.ChatResult
	err := retry.Do(
		func() error {
			var callErr error
			result, callErr = e.llm.Chat(ctx, req)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(e.cfg.MaxAttempts),
		retry.Delay(e.cfg.InitialWait),
		retry.MaxDelay(e.cfg.MaxWait),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(providers.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			e.logger.Warn("model call failed, retrying", "attempt", attempt+1, "error", err)
		}),
	)
	if err != nil {
		if providers.IsTransient(err) {
			e.alertRetryExhausted(ctx, err)
		}
		return nil, fmt.Errorf("model call failed after %d attempts: %w", e.cfg.MaxAttempts, err)
	}

	// Malformed JSON is terminal for this call and yields an empty finding
	// list; it is never retried.
	resp, err := parseResponse(result.Content)
	if err != nil {
		e.logger.Error("discarding unparseable model response", "error", err)
		return nil, nil
	}

	enabledSet := make(map[Category]bool, len(enabled))
	for _, c := range enabled {
		enabledSet[c] = true
	}

	threshold := e.ConfidenceThreshold()
	var kept []Finding
	for _, f := range resp.Findings {
		if f.Confidence < threshold {
			continue
		}
		c := Category(f.Type)
		if !enabledSet[c] {
			e.logger.Warn("dropping finding with disallowed category", "category", f.Type)
			continue
		}
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		kept = append(kept, Finding{Text: text, Type: c})
	}

	e.logger.Info("extracted findings with sufficient confidence",
		"count", len(kept), "raw_count", len(resp.Findings), "document_type", resp.DocumentType)
	return kept, nil
}

func (e *Extractor) alertRetryExhausted(ctx context.Context, err error) {
	if e.notifier == nil {
		return
	}
	subject := "blackout: model retries exhausted"
	body := fmt.Sprintf("the detection model call failed after %d attempts: %v", e.cfg.MaxAttempts, err)
	if notifyErr := e.notifier.Notify(ctx, subject, body); notifyErr != nil {
		e.logger.Error("failed to deliver operator alert", "error", notifyErr)
	}
}
