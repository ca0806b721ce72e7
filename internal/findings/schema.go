package findings

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed response_schema.json
var responseSchemaJSON string

var responseSchema = jsonschema.MustCompileString("findings/response_schema.json", responseSchemaJSON)

// detectionResponse is the wire shape of the model's JSON answer.
type detectionResponse struct {
	DocumentType string       `json:"document_type"`
	Findings     []rawFinding `json:"findings"`
}

// rawFinding carries the full per-finding payload the model produces.
// Start index and reason are validated but not used downstream.
type rawFinding struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	StartIndex int     `json:"start_index"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// parseResponse validates raw model output against the response schema and
// decodes it. Schema or JSON failures are terminal for the call.
func parseResponse(raw string) (*detectionResponse, error) {
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	if err := responseSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("model response failed schema validation: %w", err)
	}

	var resp detectionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	return &resp, nil
}
