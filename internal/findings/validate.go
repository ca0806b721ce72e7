package findings

import (
	"log/slog"

	"github.com/mhoffmann/blackout/internal/textmatch"
)

// Validate keeps only findings whose text fuzzily occurs in the page's
// extracted text. Everything else is a model hallucination and must never
// reach localization or redaction.
func Validate(consolidated []Finding, pageText string, logger *slog.Logger) []Finding {
	if logger == nil {
		logger = slog.Default()
	}
	normPage := textmatch.Normalize(pageText)

	var validated []Finding
	for _, f := range consolidated {
		norm := textmatch.Normalize(f.Text)
		if textmatch.ContainsFuzzy(normPage, norm) {
			validated = append(validated, f)
			logger.Debug("validated sensitive text", "category", f.Type, "text", f.Text)
			continue
		}
		logger.Warn("ignoring hallucinated finding not present on page", "category", f.Type)
	}

	logger.Info("validated findings against page text",
		"kept", len(validated), "dropped", len(consolidated)-len(validated))
	return validated
}
