package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stance is the directional conclusion of an analysis run.
type Stance string

const (
	StanceBull    Stance = "BULL"
	StanceBear    Stance = "BEAR"
	StanceNeutral Stance = "NEUTRAL"
)

// AnalysisResult is the latest analysis output for a (symbol, analysis type)
// pair. CreatedAt is set on first insert and never changes; LastUpdatedAt
// advances on every upsert.
type AnalysisResult struct {
	Symbol        string          `json:"symbol"`
	AnalysisType  string          `json:"analysis_type"`
	ModelName     string          `json:"model_name"`
	Stance        Stance          `json:"stance"`
	Confidence    float64         `json:"confidence_score"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
	Payload       json.RawMessage `json:"result_payload"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
}

// NewAnalysisResult validates and constructs an AnalysisResult. The payload
// must be a JSON object and confidence must be within [0, 1].
func NewAnalysisResult(symbol, analysisType, modelName string, stance Stance, confidence float64, lastUpdatedAt time.Time, payload json.RawMessage) (AnalysisResult, error) {
	sym := NormalizeSymbol(symbol)
	if !ValidTicker(sym) && sym != MarketSymbol {
		return AnalysisResult{}, fmt.Errorf("invalid analysis symbol %q", symbol)
	}

	analysisType = strings.TrimSpace(analysisType)
	if analysisType == "" {
		return AnalysisResult{}, fmt.Errorf("analysis type cannot be empty (symbol=%s)", sym)
	}

	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return AnalysisResult{}, fmt.Errorf("model name cannot be empty (symbol=%s)", sym)
	}

	switch stance {
	case StanceBull, StanceBear, StanceNeutral:
	default:
		return AnalysisResult{}, fmt.Errorf("invalid stance %q (symbol=%s)", stance, sym)
	}

	if confidence < 0 || confidence > 1 {
		return AnalysisResult{}, fmt.Errorf("confidence must be within [0,1], got %v (symbol=%s)", confidence, sym)
	}

	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '{' {
		return AnalysisResult{}, fmt.Errorf("result payload must be a JSON object (symbol=%s)", sym)
	}

	if lastUpdatedAt.IsZero() {
		return AnalysisResult{}, fmt.Errorf("last updated timestamp cannot be zero (symbol=%s)", sym)
	}

	return AnalysisResult{
		Symbol:        sym,
		AnalysisType:  analysisType,
		ModelName:     modelName,
		Stance:        stance,
		Confidence:    confidence,
		LastUpdatedAt: NormalizeTime(lastUpdatedAt),
		Payload:       trimmed,
	}, nil
}
