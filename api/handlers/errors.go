package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"Input should be a list of records"`
}

// respondError logs err with the trace id and writes {"error": ...} with the
// status for its kind.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusOf(err)

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		status = http.StatusRequestEntityTooLarge
	}

	entry := logger.FromContext(c.Request.Context()).
		WithField("path", c.Request.URL.Path).
		WithField("kind", apperrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Warnf("Request rejected: %v", err)
	}

	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: message(err)})
}

func message(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind == apperrors.KindValidation {
		return appErr.Message
	}
	return err.Error()
}

// decodeJSON reads exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(c *gin.Context) (interface{}, error) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var body interface{}
	if err := dec.Decode(&body); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, &apperrors.AppError{
				Kind:    apperrors.KindValidation,
				Message: fmt.Sprintf("request body too large, maximum %d bytes allowed", maxBytesErr.Limit),
				Err:     err,
			}
		}
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewValidationError("request body is empty")
		}
		return nil, apperrors.Validationf("invalid JSON body: %v", err)
	}

	if dec.More() {
		return nil, apperrors.NewValidationError("invalid JSON body: unexpected data after top-level value")
	}

	return body, nil
}
