package features

import (
	"context"
	"fmt"

	"github.com/OldStager01/demand-predictor/pkg/models"
)

// ClusterAssigner returns the location cluster closest to a coordinate.
type ClusterAssigner interface {
	Assign(lat, lng float64) (int, error)
}

type Encoder struct {
	clusters ClusterAssigner
}

func NewEncoder(clusters ClusterAssigner) *Encoder {
	return &Encoder{clusters: clusters}
}

// Encode converts a single request record.
func (e *Encoder) Encode(req models.PredictionRequest) (models.EncodedFeatures, error) {
	cluster, err := e.clusters.Assign(req.Latitude, req.Longitude)
	if err != nil {
		return models.EncodedFeatures{}, fmt.Errorf("assign location cluster: %w", err)
	}

	daySin, dayCos := EncodeCyclic(float64(req.DayOfWeek), DaysPerWeek)
	hourSin, hourCos := EncodeCyclic(float64(req.Hour), HoursPerDay)
	windowSin, windowCos := EncodeCyclic(float64(MinuteWindowOf(req.Minutes)), MinutesPerHour)

	weekend := 0
	if req.IsWeekend {
		weekend = 1
	}

	return models.EncodedFeatures{
		LocationCluster:  cluster,
		IsWeekend:        weekend,
		TimeWindowSin:    windowSin,
		TimeWindowCos:    windowCos,
		DayOfWeekSin:     daySin,
		DayOfWeekCos:     dayCos,
		StartTimeHourSin: hourSin,
		StartTimeHourCos: hourCos,
	}, nil
}

// EncodeBatch encodes every record or fails on the first bad one.
func (e *Encoder) EncodeBatch(ctx context.Context, reqs []models.PredictionRequest) ([]models.EncodedFeatures, error) {
	out := make([]models.EncodedFeatures, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := e.Encode(req)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
