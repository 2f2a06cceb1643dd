package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/upb/chatrooms/services"
	"github.com/upb/chatrooms/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to {statusCode, message} responses.
// Store failures are logged at error level and reported to Sentry; the
// other kinds are expected outcomes.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		sentry.CaptureException(err)
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	status := domainErr.StatusCode()
	message := domainErr.Message
	var details map[string]interface{}

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		logger.Error("internal server error",
			zap.String("type", string(domainErr.Type)),
			zap.Error(err))
		sentry.CaptureException(err)
		message = services.MsgStoreError
	case status == http.StatusBadGateway:
		logger.Warn("identity provider failure", zap.Error(err))
	case services.IsActionDeniedError(err):
		logger.Info("action denied", zap.String("message", message))
	default:
		if len(domainErr.Details) > 0 {
			details = domainErr.Details
		}
		logger.Debug("handled service error",
			zap.String("type", string(domainErr.Type)),
			zap.String("message", domainErr.Message),
			zap.Any("details", domainErr.Details))
	}

	if err := utils.WriteError(w, status, message, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	message := err.Error()
	var details map[string]interface{}
	if utils.IsValidationError(err) {
		message = "Validation failed"
		details = utils.FieldsToDetails(utils.GetValidationFields(err))
	}

	if err := utils.WriteBadRequest(w, message, details); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
