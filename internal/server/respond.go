package server

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code     errs.Code `json:"code"`
	Message  string    `json:"message"`
	Index    *int      `json:"index,omitempty"`
	SubIndex *int      `json:"sub_index,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= 500 {
		s.deps.Logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err, "request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, body)
}

func errorResponse(err error) (int, errorBody) {
	var ve *flow.ValidationError
	if errors.As(err, &ve) {
		body := errorBody{Code: ve.Code(), Message: ve.Error()}
		if ve.Index >= 0 {
			body.Index = &ve.Index
		}
		if ve.SubIndex >= 0 {
			body.SubIndex = &ve.SubIndex
		}
		return http.StatusUnprocessableEntity, body
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, errorBody{Code: errs.ErrCodeInvalidInput, Message: "request body too large"}
	}

	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	return statusFor(code), errorBody{Code: code, Message: errs.UserMessage(err)}
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeEmptyInput, errs.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeSessionNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeBusy:
		return http.StatusConflict
	case errs.ErrCodeNetwork:
		return http.StatusBadGateway
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
