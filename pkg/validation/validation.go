package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

// ErrNotAList is returned verbatim to clients posting a non-array to /predict.
const ErrNotAList = "Input should be a list of records"

var (
	ErrMissing    = errors.New("missing required field")
	ErrWrongType  = errors.New("wrong type")
	ErrOutOfRange = errors.New("out of range")
)

// Record field names accepted by /predict.
const (
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldDayOfWeek = "day_of_week"
	FieldIsWeekend = "is_weekend"
	FieldHour      = "hour"
	FieldMinutes   = "minutes"
)

type bounds struct {
	min, max float64
}

var fieldBounds = map[string]bounds{
	FieldLatitude:  {-90, 90},
	FieldLongitude: {-180, 180},
	FieldDayOfWeek: {0, 6},
	FieldHour:      {0, 23},
	FieldMinutes:   {0, 59},
}

// ParsePredictionRecords converts a decoded /predict body into requests.
// The first bad record aborts the whole batch.
func ParsePredictionRecords(body interface{}) ([]models.PredictionRequest, error) {
	list, ok := body.([]interface{})
	if !ok {
		return nil, apperrors.NewValidationError(ErrNotAList)
	}

	reqs := make([]models.PredictionRequest, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, apperrors.Validationf("record %d: must be an object", i)
		}
		req, err := parseRecord(rec)
		if err != nil {
			return nil, apperrors.Validationf("record %d: %v", i, err)
		}
		reqs[i] = req
	}
	return reqs, nil
}

func parseRecord(rec map[string]interface{}) (models.PredictionRequest, error) {
	var (
		req models.PredictionRequest
		err error
	)
	if req.Latitude, err = Float(rec, FieldLatitude); err != nil {
		return req, err
	}
	if req.Longitude, err = Float(rec, FieldLongitude); err != nil {
		return req, err
	}
	if req.DayOfWeek, err = Int(rec, FieldDayOfWeek); err != nil {
		return req, err
	}
	if req.IsWeekend, err = Bool(rec, FieldIsWeekend); err != nil {
		return req, err
	}
	if req.Hour, err = Int(rec, FieldHour); err != nil {
		return req, err
	}
	if req.Minutes, err = Int(rec, FieldMinutes); err != nil {
		return req, err
	}
	return req, nil
}

// Float reads a finite number, checking bounds when the key has any.
func Float(rec map[string]interface{}, key string) (float64, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return 0, fieldError(key, ErrMissing, "")
	}
	v, err := Number(raw)
	if err != nil {
		return 0, fieldError(key, ErrWrongType, "expected a number")
	}
	if err := checkBounds(key, v); err != nil {
		return 0, err
	}
	return v, nil
}

// Int reads an integral number.
func Int(rec map[string]interface{}, key string) (int, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return 0, fieldError(key, ErrMissing, "")
	}
	v, err := Number(raw)
	if err != nil || v != math.Trunc(v) {
		return 0, fieldError(key, ErrWrongType, "expected an integer")
	}
	if err := checkBounds(key, v); err != nil {
		return 0, err
	}
	return int(v), nil
}

// Bool accepts JSON booleans and the integers 0 and 1.
func Bool(rec map[string]interface{}, key string) (bool, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return false, fieldError(key, ErrMissing, "")
	}
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	v, err := Number(raw)
	if err != nil {
		return false, fieldError(key, ErrWrongType, "expected a boolean or 0/1")
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fieldError(key, ErrOutOfRange, "must be 0 or 1")
}

// Number converts a decoded JSON number. Strings, booleans and non-finite
// values are rejected.
func Number(raw interface{}) (float64, error) {
	var v float64
	switch n := raw.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, ErrWrongType
		}
		v = f
	case float64:
		v = n
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return 0, ErrWrongType
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrWrongType
	}
	return v, nil
}

// Coordinate reads a latitude or longitude that may also arrive as a
// numeric string. A nil or absent value reports present=false.
func Coordinate(rec map[string]interface{}, key string) (value float64, present bool, err error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	if s, ok := raw.(string); ok {
		raw = json.Number(strings.TrimSpace(s))
	}
	v, err := Number(raw)
	if err != nil {
		return 0, true, fieldError(key, ErrWrongType, "expected a number")
	}
	return v, true, nil
}

func checkBounds(key string, v float64) error {
	b, ok := fieldBounds[key]
	if !ok {
		return nil
	}
	if v < b.min || v > b.max {
		return fieldError(key, ErrOutOfRange, fmt.Sprintf("must be between %g and %g", b.min, b.max))
	}
	return nil
}

// FieldError names the offending key.
type FieldError struct {
	Key    string
	Err    error
	Detail string
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%s '%s'", e.Err, e.Key)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(key string, err error, detail string) error {
	return &FieldError{Key: key, Err: err, Detail: detail}
}
