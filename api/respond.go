package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/rpupo63/round/errs"
	"github.com/rs/zerolog"
)

const maxBodySize = 1 << 20

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteJSONStatus(w, http.StatusOK, data)
}

func (r Responder) WriteJSONStatus(w http.ResponseWriter, status int, data any) {
	jsonData, err := sonic.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr

	// For unexpected errors, log and return generic internal error
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		r.WriteJSONStatus(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal Server Error",
			Status:  "error",
			Details: "An unexpected error occurred",
		})
		return
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Msg("request failed")
	}

	response := ErrorResponse{
		Error:   apiErr.Error(),
		Status:  "error",
		Field:   apiErr.Field,
		Details: apiErr.Details,
	}
	if apiErr.Cause != nil && apiErr.StatusCode < http.StatusInternalServerError {
		response.Cause = apiErr.GetFullError()
	}
	r.WriteJSONStatus(w, apiErr.StatusCode, response)
}

// WriteResult writes the {success, error} envelope used by issue field
// updates.
func (r Responder) WriteResult(w http.ResponseWriter, err error) {
	if err == nil {
		r.WriteJSON(w, Result{Success: true})
		return
	}

	status := errs.StatusOf(err)
	message := "Internal Server Error"
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		message = apiErr.Message()
		if apiErr.StatusCode == http.StatusBadRequest {
			message = apiErr.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		r.logger.Error().Err(err).Msg("field update failed")
	}
	r.WriteJSONStatus(w, status, Result{Success: false, Error: message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, req *http.Request, payloadName string, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewMaxBodySizeExceededError(maxBodySize)
		}
		return errs.NewBadRequestError("failed to read request body")
	}
	if len(body) == 0 {
		return errs.NewMalformedPayloadError(payloadName, errors.New("empty body"))
	}
	if err := sonic.Unmarshal(body, dst); err != nil {
		return errs.NewMalformedPayloadError(payloadName, err)
	}
	return nil
}
