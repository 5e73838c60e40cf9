package models

import "time"

// PredictionRequest is one raw record posted to /predict.
type PredictionRequest struct {
	Latitude  float64 `json:"latitude" example:"37.7"`
	Longitude float64 `json:"longitude" example:"-122.4"`
	DayOfWeek int     `json:"day_of_week" example:"2"`
	IsWeekend bool    `json:"is_weekend" example:"false"`
	Hour      int     `json:"hour" example:"14"`
	Minutes   int     `json:"minutes" example:"47"`
}

// EncodedFeatures is the fixed feature schema the scaler and model were trained on.
type EncodedFeatures struct {
	LocationCluster  int     `json:"location_cluster"`
	IsWeekend        int     `json:"is_weekend"`
	TimeWindowSin    float64 `json:"time_window_sin"`
	TimeWindowCos    float64 `json:"time_window_cos"`
	DayOfWeekSin     float64 `json:"day_of_week_sin"`
	DayOfWeekCos     float64 `json:"day_of_week_cos"`
	StartTimeHourSin float64 `json:"start_time_hour_sin"`
	StartTimeHourCos float64 `json:"start_time_hour_cos"`
}

// Vector returns the features in training column order.
func (f EncodedFeatures) Vector() []float64 {
	return []float64{
		float64(f.LocationCluster),
		float64(f.IsWeekend),
		f.TimeWindowSin,
		f.TimeWindowCos,
		f.DayOfWeekSin,
		f.DayOfWeekCos,
		f.StartTimeHourSin,
		f.StartTimeHourCos,
	}
}

// PredictionResult pairs the encoded input with the model output.
type PredictionResult struct {
	InputTransformed EncodedFeatures `json:"input_transformed"`
	Prediction       float64         `json:"prediction" example:"12.5"`
}

// PredictionRecord is a persisted audit row for a single served prediction.
type PredictionRecord struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	TraceID         string    `json:"trace_id,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	LocationCluster int       `json:"location_cluster"`
	DayOfWeek       int       `json:"day_of_week"`
	Hour            int       `json:"hour"`
	MinuteWindow    int       `json:"minute_window"`
	IsWeekend       bool      `json:"is_weekend"`
	Prediction      float64   `json:"prediction"`
}

// PredictionBatch is the payload carried by prediction events.
type PredictionBatch struct {
	TraceID  string              `json:"trace_id,omitempty"`
	Requests []PredictionRequest `json:"requests"`
	Results  []PredictionResult  `json:"results"`
}

// Records flattens the batch into audit rows.
func (b *PredictionBatch) Records(minuteWindow func(int) int) []PredictionRecord {
	now := time.Now().UTC()
	records := make([]PredictionRecord, 0, len(b.Results))
	for i, res := range b.Results {
		if i >= len(b.Requests) {
			break
		}
		req := b.Requests[i]
		records = append(records, PredictionRecord{
			CreatedAt:       now,
			TraceID:         b.TraceID,
			Latitude:        req.Latitude,
			Longitude:       req.Longitude,
			LocationCluster: res.InputTransformed.LocationCluster,
			DayOfWeek:       req.DayOfWeek,
			Hour:            req.Hour,
			MinuteWindow:    minuteWindow(req.Minutes),
			IsWeekend:       req.IsWeekend,
			Prediction:      res.Prediction,
		})
	}
	return records
}
