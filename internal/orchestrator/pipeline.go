package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/demand-predictor/internal/features"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

// BatchPredictor runs the scaler and model over encoded records.
type BatchPredictor interface {
	Predict(ctx context.Context, batch []models.EncodedFeatures) ([]float64, error)
}

type PipelineConfig struct {
	Encoder   *features.Encoder
	Predictor BatchPredictor
}

// Pipeline turns validated request records into predictions. Any failure
// aborts the whole batch.
type Pipeline struct {
	config PipelineConfig
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{config: cfg}
}

func (p *Pipeline) Run(ctx context.Context, reqs []models.PredictionRequest) ([]models.PredictionResult, error) {
	results := make([]models.PredictionResult, 0, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	// Step 1: Encode features
	encoded, err := p.encode(ctx, reqs)
	if err != nil {
		return nil, err
	}

	// Step 2: Scale and predict
	predictions, err := p.predict(ctx, encoded)
	if err != nil {
		return nil, err
	}

	for i, f := range encoded {
		results = append(results, models.PredictionResult{
			InputTransformed: f,
			Prediction:       predictions[i],
		})
	}
	return results, nil
}

func (p *Pipeline) encode(ctx context.Context, reqs []models.PredictionRequest) ([]models.EncodedFeatures, error) {
	encoded, err := p.config.Encoder.EncodeBatch(ctx, reqs)
	if err != nil {
		if isCancelled(err) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("feature encoding failed", err)
	}
	return encoded, nil
}

func (p *Pipeline) predict(ctx context.Context, encoded []models.EncodedFeatures) ([]float64, error) {
	predictions, err := p.config.Predictor.Predict(ctx, encoded)
	if err != nil {
		if isCancelled(err) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("prediction failed", err)
	}
	if len(predictions) != len(encoded) {
		return nil, apperrors.NewInternalError("prediction failed",
			fmt.Errorf("model returned %d values for %d records", len(predictions), len(encoded)))
	}
	return predictions, nil
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
