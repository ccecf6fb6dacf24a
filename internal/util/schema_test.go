package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	Rating   int     `json:"rating" description:"score"`
	Feedback string  `json:"feedback"`
	Note     *string `json:"note"`
	Extra    string  `json:"extra,omitempty"`
	Skipped  string  `json:"-"`
	hidden   string
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(&verdict{})

	assert.Equal(t, "object", schema["type"])
	props := schema["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, map[string]any{"type": "integer", "description": "score"}, props["rating"])
	assert.Equal(t, []string{"rating", "feedback"}, schema["required"])

}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema(42)
	assert.Equal(t, map[string]any{}, schema["properties"])

	schema = CreateSchema(nil)
	assert.Equal(t, "object", schema["type"])
}

func TestValidateObject(t *testing.T) {
	schema := CreateSchema(verdict{})

	tests := []struct {
		name  string
		obj   map[string]any
		field string
	}{
		{name: "valid", obj: map[string]any{"rating": float64(3), "feedback": "ok"}},
		{name: "missing required", obj: map[string]any{"rating": float64(3)}, field: "feedback"},
		{name: "fractional integer", obj: map[string]any{"rating": 2.5, "feedback": "ok"}, field: "rating"},
		{name: "wrong type", obj: map[string]any{"rating": "four", "feedback": "ok"}, field: "rating"},
		{name: "null allowed", obj: map[string]any{"rating": float64(1), "feedback": nil}},
		{name: "extra fields allowed", obj: map[string]any{"rating": float64(1), "feedback": "x", "more": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObject(tt.obj, schema)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateObject_DecodedRequired(t *testing.T) {
	schema := map[string]any{"required": []any{"a"}}
	assert.Error(t, ValidateObject(map[string]any{}, schema))
	assert.NoError(t, ValidateObject(map[string]any{"a": 1}, schema))
}

type criterion struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type report struct {
	Summary  string      `json:"summary"`
	Best     criterion   `json:"best"`
	Criteria []criterion `json:"criteria,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
}

func TestCreateSchema_Nested(t *testing.T) {
	schema := CreateSchema(report{})
	props := schema["properties"].(map[string]any)

	best := props["best"].(map[string]any)
	assert.Equal(t, "object", best["type"])
	assert.Equal(t, []string{"name", "score"}, best["required"])

	criteria := props["criteria"].(map[string]any)
	assert.Equal(t, "array", criteria["type"])
	assert.Equal(t, "object", criteria["items"].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, props["tags"])

	assert.Equal(t, []string{"summary", "best"}, schema["required"])
}

func TestValidateObject_Nested(t *testing.T) {
	schema := CreateSchema(report{})

	err := ValidateObject(map[string]any{
		"summary": "ok",
		"best":    map[string]any{"name": "clarity", "score": float64(4)},
	}, schema)
	assert.NoError(t, err)

	err = ValidateObject(map[string]any{
		"summary": "ok",
		"best":    map[string]any{"name": "clarity", "score": "high"},
	}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "best.score", verr.Field)

	err = ValidateObject(map[string]any{"summary": "ok", "best": map[string]any{"name": "x"}}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "best.score", verr.Field)
	assert.Equal(t, "required field is missing", verr.Message)
}
