// Package classify parses batch provider output lines into classification results.
package classify

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/sandeepmv/binsight/pkg/models"
)

// Default field values for well-formed responses with missing fields.
const (
	defaultItemName   = "Unknown Item"
	defaultCategory   = "general"
	defaultConfidence = 0.5
	defaultDisposal   = "Dispose according to local guidelines"
	defaultImpact     = "Environmental impact information not available"
)

// CorrelationID returns the correlation identifier embedded in a batch request
// for the given job, echoed back as custom_id in the provider's output line.
func CorrelationID(jobID uuid.UUID) string {
	return "job-" + jobID.String()
}

// FindLine scans newline-delimited provider output for the line whose
// custom_id matches correlationID. Returns false when no line matches.
func FindLine(output, correlationID string) (string, bool) {
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var probe struct {
			CustomID string `json:"custom_id"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue
		}
		if probe.CustomID == correlationID {
			return line, true
		}
	}
	return "", false
}

// envelope mirrors one line of the provider's batch output file.
type envelope struct {
	CustomID string `json:"custom_id"`
	Response struct {
		StatusCode int `json:"status_code"`
		Body       struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"body"`
	} `json:"response"`
}

// content is the model-generated classification payload inside the envelope.
// Pointer fields distinguish absent values from zero values.
type content struct {
	ItemName             *string  `json:"itemName"`
	Category             *string  `json:"category"`
	Confidence           *float64 `json:"confidence"`
	DisposalInstructions *string  `json:"disposalInstructions"`
	EnvironmentalImpact  *string  `json:"environmentalImpact"`
	Tips                 []string `json:"tips"`
}

// Parse maps one raw provider output line into a classification result.
// Parse is total: malformed input of any kind yields the fixed fallback
// record and never an error.
func Parse(rawLine string) models.ClassificationResult {
	var env envelope
	if err := json.Unmarshal([]byte(rawLine), &env); err != nil {
		return Fallback()
	}
	if len(env.Response.Body.Choices) == 0 {
		return Fallback()
	}

	inner := env.Response.Body.Choices[0].Message.Content
	if inner == "" {
		return Fallback()
	}

	var c content
	if err := json.Unmarshal([]byte(inner), &c); err != nil {
		return Fallback()
	}

	result := models.ClassificationResult{
		ItemName:             defaultItemName,
		Category:             defaultCategory,
		Confidence:           defaultConfidence,
		DisposalInstructions: defaultDisposal,
		EnvironmentalImpact:  defaultImpact,
		Tips:                 []string{},
		AnalysisMethod:       models.AnalysisMethodBatch,
	}
	if c.ItemName != nil {
		result.ItemName = *c.ItemName
	}
	if c.Category != nil {
		result.Category = *c.Category
	}
	if c.Confidence != nil {
		result.Confidence = *c.Confidence
	}
	if c.DisposalInstructions != nil {
		result.DisposalInstructions = *c.DisposalInstructions
	}
	if c.EnvironmentalImpact != nil {
		result.EnvironmentalImpact = *c.EnvironmentalImpact
	}
	if c.Tips != nil {
		result.Tips = c.Tips
	}

	return result
}

// Fallback returns the fixed degraded record used when a provider response
// cannot be parsed. Downstream consumers can detect it via AnalysisMethod.
func Fallback() models.ClassificationResult {
	return models.ClassificationResult{
		ItemName:             "Classification Error",
		Category:             defaultCategory,
		Confidence:           0.1,
		DisposalInstructions: "Unable to classify. Please consult local waste management guidelines.",
		EnvironmentalImpact:  "Classification failed",
		Tips: []string{
			"Try taking a clearer photo",
			"Ensure good lighting",
			"Contact support if issue persists",
		},
		AnalysisMethod: models.AnalysisMethodBatchFallback,
	}
}
