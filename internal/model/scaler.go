package model

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
)

// StandardScaler is a fitted (x - mean) / scale transform exported from the
// training pipeline as JSON.
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

func LoadScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}

	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *StandardScaler) init() error {
	n := len(s.FeatureNames)
	if n == 0 {
		return fmt.Errorf("%w: scaler has no feature names", ErrInvalidArtifact)
	}
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("%w: scaler has %d names, %d means, %d scales",
			ErrInvalidArtifact, n, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return nil
}

// Width returns the number of features the scaler was fitted on.
func (s *StandardScaler) Width() int {
	return len(s.FeatureNames)
}

// Transform scales rows into a new matrix. Every row must have Width columns.
func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != s.Width() {
			return nil, fmt.Errorf("%w: row %d has %d features, scaler expects %d",
				ErrFeatureMismatch, i, len(row), s.Width())
		}
		scaled := make([]float64, len(row))
		floats.SubTo(scaled, row, s.Mean)
		floats.Div(scaled, s.Scale)
		out[i] = scaled
	}
	return out, nil
}
