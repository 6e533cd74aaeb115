package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// updateRequestSchema describes the POST /updateProgress body. Category set
// membership is checked by the service so it can report "Invalid category".
var updateRequestSchema = map[string]any{
	"type":     "object",
	"required": []any{"category", "value"},
	"properties": map[string]any{
		"category": map[string]any{"type": "string", "minLength": 1},
		"value":    map[string]any{"type": "number"},
	},
}

type updateRequest struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

type updateValidator struct {
	schema *gojsonschema.Schema
}

func newUpdateValidator() (*updateValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(updateRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("compile update schema: %w", err)
	}
	return &updateValidator{schema: schema}, nil
}

// Parse validates body against the schema and decodes it.
func (v *updateValidator) Parse(body []byte) (updateRequest, error) {
	if len(body) == 0 {
		return updateRequest{}, errors.New("empty body")
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return updateRequest{}, fmt.Errorf("decode body: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return updateRequest{}, fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
	}
	var req updateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return updateRequest{}, fmt.Errorf("decode body: %w", err)
	}
	return req, nil
}
