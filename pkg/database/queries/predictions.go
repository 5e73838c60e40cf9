package queries

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/OldStager01/demand-predictor/pkg/database"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

// DefaultRecentLimit applies when Recent is called without a positive limit.
// Callers own any upper bound.
const DefaultRecentLimit = 50

type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// InsertBatch writes all records in one transaction.
func (r *PredictionRepository) InsertBatch(ctx context.Context, records []models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO predictions
			(created_at, trace_id, latitude, longitude, location_cluster, day_of_week, hour, minute_window, is_weekend, prediction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			var traceID *string
			if rec.TraceID != "" {
				traceID = &rec.TraceID
			}
			_, err := stmt.ExecContext(ctx,
				rec.CreatedAt,
				traceID,
				rec.Latitude,
				rec.Longitude,
				rec.LocationCluster,
				rec.DayOfWeek,
				rec.Hour,
				rec.MinuteWindow,
				rec.IsWeekend,
				rec.Prediction,
			)
			if err != nil {
				return fmt.Errorf("failed to insert prediction: %w", err)
			}
		}
		return nil
	})
}

// Recent returns the newest records first.
func (r *PredictionRepository) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `
		SELECT id, created_at, trace_id, latitude, longitude, location_cluster,
		       day_of_week, hour, minute_window, is_weekend, prediction
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.PredictionRecord, 0, min(limit, DefaultRecentLimit))
	for rows.Next() {
		var (
			rec     models.PredictionRecord
			traceID sql.NullString
		)
		err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &traceID, &rec.Latitude, &rec.Longitude, &rec.LocationCluster,
			&rec.DayOfWeek, &rec.Hour, &rec.MinuteWindow, &rec.IsWeekend, &rec.Prediction,
		)
		if err != nil {
			return nil, err
		}
		rec.TraceID = traceID.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
