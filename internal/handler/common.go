package handler

import (
	"encoding/json"
	"net/http"

	"wallet-transfers/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Meta  interface{} `json:"meta,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Required  string `json:"required,omitempty"`
	Available string `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	writeResponse(w, statusCode, Response{Data: data})
}

func writeResponse(w http.ResponseWriter, statusCode int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	if appErr.Code == errors.InsufficientBalance {
		errResponse.Required = appErr.Required.StringFixed(2)
		errResponse.Available = appErr.Available.StringFixed(2)
	}

	writeResponse(w, appErr.HTTPStatus(), Response{Error: &errResponse})
}

// writeServiceError renders err, hiding the details of anything that is not an AppError.
func writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		if appErr.Code == errors.InternalError {
			appErr = appErr.WithDetails("")
		}
		writeError(w, appErr)
		return
	}
	writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
}
