package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/models"
)

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var (
		xe *models.ExtractionError
		ee *models.EmbeddingError
		ge *models.GenerationError
	)
	switch {
	case errors.As(err, &xe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEmptyIndex):
		return http.StatusConflict
	case errors.Is(err, models.ErrCorpusNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmptyQuery), errors.Is(err, models.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.As(err, &ee), errors.As(err, &ge):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure logs err and writes it with its mapped status.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err), zap.Int("status", status))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err), zap.Int("status", status))
	}
	s.respondError(w, status, err.Error())
}
