package classify_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sandeepmv/binsight/internal/classify"
	"github.com/sandeepmv/binsight/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outputLine builds a provider output line with the given correlation id and
// inner content payload.
func outputLine(t *testing.T, customID string, content any) string {
	t.Helper()
	inner, err := json.Marshal(content)
	require.NoError(t, err)
	line, err := json.Marshal(map[string]any{
		"custom_id": customID,
		"response": map[string]any{
			"status_code": 200,
			"body": map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": string(inner)}},
				},
			},
		},
	})
	require.NoError(t, err)
	return string(line)
}

func TestParse_WellFormed(t *testing.T) {
	line := outputLine(t, "job-1", map[string]any{
		"itemName":             "Plastic Bottle",
		"category":             "recyclable",
		"confidence":           0.9,
		"disposalInstructions": "Rinse and place in the recycling bin",
		"environmentalImpact":  "Recyclable plastic",
		"tips":                 []string{"Remove the cap"},
	})

	result := classify.Parse(line)

	assert.Equal(t, "Plastic Bottle", result.ItemName)
	assert.Equal(t, "recyclable", result.Category)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "Rinse and place in the recycling bin", result.DisposalInstructions)
	assert.Equal(t, []string{"Remove the cap"}, result.Tips)
	assert.Equal(t, models.AnalysisMethodBatch, result.AnalysisMethod)
}

func TestParse_MissingFieldsGetDefaults(t *testing.T) {
	line := outputLine(t, "job-1", map[string]any{
		"category": "recyclable",
	})

	result := classify.Parse(line)

	assert.Equal(t, "Unknown Item", result.ItemName)
	assert.Equal(t, "recyclable", result.Category)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, "Dispose according to local guidelines", result.DisposalInstructions)
	assert.Equal(t, "Environmental impact information not available", result.EnvironmentalImpact)
	assert.Equal(t, []string{}, result.Tips)
	assert.Equal(t, models.AnalysisMethodBatch, result.AnalysisMethod)
}

func TestParse_ZeroConfidenceIsPreserved(t *testing.T) {
	line := outputLine(t, "job-1", map[string]any{
		"itemName":   "Mystery Object",
		"confidence": 0.0,
	})

	result := classify.Parse(line)
	assert.Equal(t, 0.0, result.Confidence)
}

// Parse must be total: any malformed input resolves to the fallback record.
func TestParse_MalformedInputsYieldFallback(t *testing.T) {
	cases := map[string]string{
		"empty string":        "",
		"not json":            "this is not json",
		"empty object":        "{}",
		"no choices":          `{"custom_id":"job-1","response":{"body":{"choices":[]}}}`,
		"empty content":       `{"custom_id":"job-1","response":{"body":{"choices":[{"message":{"content":""}}]}}}`,
		"content not json":    `{"custom_id":"job-1","response":{"body":{"choices":[{"message":{"content":"oops"}}]}}}`,
		"truncated envelope":  `{"custom_id":"job-1","response":{"body":`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			result := classify.Parse(raw)

			assert.Equal(t, "Classification Error", result.ItemName)
			assert.Equal(t, "general", result.Category)
			assert.Equal(t, 0.1, result.Confidence)
			assert.Equal(t, models.AnalysisMethodBatchFallback, result.AnalysisMethod)
			assert.NotEmpty(t, result.Tips)
		})
	}
}

func TestCorrelationID(t *testing.T) {
	id := uuid.MustParse("0c2b1df0-9df2-4a7a-8a3e-111111111111")
	assert.Equal(t, "job-0c2b1df0-9df2-4a7a-8a3e-111111111111", classify.CorrelationID(id))
}

func TestFindLine_Match(t *testing.T) {
	target := outputLine(t, "job-2", map[string]any{"itemName": "Banana Peel"})
	output := fmt.Sprintf("%s\n%s\n%s\n",
		outputLine(t, "job-1", map[string]any{"itemName": "Glass Jar"}),
		target,
		outputLine(t, "job-3", map[string]any{"itemName": "Battery"}),
	)

	line, ok := classify.FindLine(output, "job-2")
	require.True(t, ok)
	assert.Equal(t, target, line)

	result := classify.Parse(line)
	assert.Equal(t, "Banana Peel", result.ItemName)
}

func TestFindLine_NoMatch(t *testing.T) {
	output := outputLine(t, "job-1", map[string]any{"itemName": "Glass Jar"})

	_, ok := classify.FindLine(output, "job-99")
	assert.False(t, ok)
}

func TestFindLine_SkipsBlankAndGarbageLines(t *testing.T) {
	target := outputLine(t, "job-5", map[string]any{"itemName": "Cardboard Box"})
	output := "\nnot json at all\n" + target + "\n\n"

	line, ok := classify.FindLine(output, "job-5")
	require.True(t, ok)
	assert.Equal(t, target, line)
}
