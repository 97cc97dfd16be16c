package forecast

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelSession runs a loaded inference artifact over one feature vector
// and returns a scalar prediction.
type ModelSession interface {
	Run(features []float64) (float64, error)
	NumFeatures() int
}

// modelArtifact is the on-disk JSON format produced by the offline
// training pipeline: a linear layer exported as weights plus bias.
type modelArtifact struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// linearSession is a ModelSession backed by a linear-coefficient artifact.
type linearSession struct {
	weights []float64
	bias    float64
}

// LoadModel reads a model artifact from path. The returned session is
// safe for concurrent use.
func LoadModel(path string) (ModelSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(artifact.Weights) == 0 {
		return nil, fmt.Errorf("model artifact %s has no weights", path)
	}
	if len(artifact.FeatureNames) > 0 && len(artifact.FeatureNames) != len(artifact.Weights) {
		return nil, fmt.Errorf("model artifact %s: %d feature names but %d weights",
			path, len(artifact.FeatureNames), len(artifact.Weights))
	}

	return &linearSession{
		weights: artifact.Weights,
		bias:    artifact.Bias,
	}, nil
}

func (s *linearSession) Run(features []float64) (float64, error) {
	if len(features) != len(s.weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(s.weights), len(features))
	}
	out := s.bias
	for i, w := range s.weights {
		out += w * features[i]
	}
	return out, nil
}

func (s *linearSession) NumFeatures() int {
	return len(s.weights)
}
