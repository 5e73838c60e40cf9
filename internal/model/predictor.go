// Package model loads the fitted scaler and regression model and runs batch
// inference over encoded feature records.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OldStager01/demand-predictor/pkg/models"
)

var (
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrFeatureMismatch = errors.New("feature width mismatch")
	ErrNonFinite       = errors.New("model produced a non-finite prediction")
)

// FeatureColumns is the training column order of models.EncodedFeatures.
var FeatureColumns = []string{
	"location_cluster",
	"is_weekend",
	"time_window_sin",
	"time_window_cos",
	"day_of_week_sin",
	"day_of_week_cos",
	"start_time_hour_sin",
	"start_time_hour_cos",
}

type Config struct {
	ModelPath  string
	ScalerPath string
}

// Info describes the loaded artifacts.
type Info struct {
	ModelPath    string    `json:"model_path"`
	ScalerPath   string    `json:"scaler_path"`
	Objective    string    `json:"objective"`
	NumTrees     int       `json:"num_trees"`
	NumFeatures  int       `json:"num_features"`
	BaseScore    float64   `json:"base_score"`
	FeatureNames []string  `json:"feature_names"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Predictor is immutable after Load and safe for concurrent use.
type Predictor struct {
	scaler  *StandardScaler
	booster *Booster
	info    Info
}

func Load(cfg Config) (*Predictor, error) {
	scaler, err := LoadScaler(cfg.ScalerPath)
	if err != nil {
		return nil, err
	}
	booster, err := LoadBooster(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	p, err := New(scaler, booster)
	if err != nil {
		return nil, err
	}
	p.info.ModelPath = cfg.ModelPath
	p.info.ScalerPath = cfg.ScalerPath
	return p, nil
}

// New checks that scaler and booster agree with FeatureColumns.
func New(scaler *StandardScaler, booster *Booster) (*Predictor, error) {
	if len(scaler.FeatureNames) != len(FeatureColumns) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, encoder produces %d",
			ErrFeatureMismatch, len(scaler.FeatureNames), len(FeatureColumns))
	}
	for i, name := range scaler.FeatureNames {
		if name != FeatureColumns[i] {
			return nil, fmt.Errorf("%w: scaler column %d is %q, expected %q",
				ErrFeatureMismatch, i, name, FeatureColumns[i])
		}
	}
	if n := booster.NumFeature(); n > 0 && n != len(FeatureColumns) {
		return nil, fmt.Errorf("%w: model trained on %d features, encoder produces %d",
			ErrFeatureMismatch, n, len(FeatureColumns))
	}

	return &Predictor{
		scaler:  scaler,
		booster: booster,
		info: Info{
			Objective:    booster.Objective(),
			NumTrees:     booster.NumTrees(),
			NumFeatures:  len(FeatureColumns),
			BaseScore:    booster.BaseScore(),
			FeatureNames: append([]string(nil), scaler.FeatureNames...),
			LoadedAt:     time.Now().UTC(),
		},
	}, nil
}

// Predict scales the batch and returns one prediction per record. Any
// failure aborts the whole batch.
func (p *Predictor) Predict(ctx context.Context, batch []models.EncodedFeatures) ([]float64, error) {
	rows := make([][]float64, len(batch))
	for i, f := range batch {
		rows[i] = f.Vector()
	}

	scaled, err := p.scaler.Transform(rows)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}

	out := make([]float64, len(scaled))
	for i, row := range scaled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := p.booster.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("record %d: %w", i, ErrNonFinite)
		}
		out[i] = v
	}
	return out, nil
}

func (p *Predictor) Info() Info {
	info := p.info
	info.FeatureNames = append([]string(nil), p.info.FeatureNames...)
	return info
}
