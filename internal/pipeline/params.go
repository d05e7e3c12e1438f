package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidParams indicates a user-selected parameter is outside the allowed set.
var ErrInvalidParams = errors.New("invalid parameters")

// SelectableMetrics are the metrics a user may pick for the category views.
var SelectableMetrics = []string{dataset.ColWeight, dataset.ColBMI}

const (
	DefaultBins = 10
	MinBins     = 2
	MaxBins     = 50
)

// Params are the user-facing inputs of a pipeline run.
type Params struct {
	Metric string `json:"metric"`
	Bins   int    `json:"bins,omitempty"`
}

// DefaultParams selects BMI with the default bin count.
func DefaultParams() Params {
	return Params{Metric: dataset.ColBMI, Bins: DefaultBins}
}

// Validate canonicalizes Metric and fills a zero Bins with the default.
func (p *Params) Validate() error {
	m, ok := canonicalMetric(p.Metric)
	if !ok {
		return fmt.Errorf("%w: metric %q (choose one of %s)", ErrInvalidParams, p.Metric, strings.Join(SelectableMetrics, ", "))
	}
	p.Metric = m
	if p.Bins == 0 {
		p.Bins = DefaultBins
	}
	if p.Bins < MinBins || p.Bins > MaxBins {
		return fmt.Errorf("%w: bins %d (use %d-%d)", ErrInvalidParams, p.Bins, MinBins, MaxBins)
	}
	return nil
}

func (p Params) key() string {
	return fmt.Sprintf("%s|%d", p.Metric, p.Bins)
}

func canonicalMetric(s string) (string, bool) {
	for _, m := range SelectableMetrics {
		if strings.EqualFold(strings.TrimSpace(s), m) {
			return m, true
		}
	}
	return "", false
}

// ParamsSchema is the JSON schema accepted by ParseParamsJSON.
func ParamsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"metric": map[string]any{
				"type":        "string",
				"description": "Metric averaged per category: Weight or BMI",
				"pattern":     "^(?i:weight|bmi)$",
			},
			"bins": map[string]any{
				"type":    "integer",
				"minimum": MinBins,
				"maximum": MaxBins,
			},
		},
		"required":             []string{"metric"},
		"additionalProperties": false,
	}
}

// ParseParamsJSON validates data against ParamsSchema and decodes it.
func ParseParamsJSON(data []byte) (Params, error) {
	schemaLoader := gojsonschema.NewGoLoader(ParamsSchema())
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return Params{}, fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(details, "; "))
	}
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
