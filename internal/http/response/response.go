package response

import (
	"encoding/json"
	"net/http"

	"github.com/Dest1on/jobboard/internal/common"
)

type errorBody struct {
	Error  string            `json:"error"`
	Code   common.Code       `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errorRecorder is implemented by the middleware response writer so the
// logging and metrics layers see the error behind a response.
type errorRecorder interface {
	RecordError(err error)
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error renders err as the JSON error envelope. Internal errors never leak
// their message.
func Error(w http.ResponseWriter, err error) {
	if rec, ok := w.(errorRecorder); ok {
		rec.RecordError(err)
	}
	status := common.HTTPStatus(err)
	body := errorBody{Error: "internal server error", Code: common.CodeInternal}
	if appErr, ok := common.As(err); ok && status < http.StatusInternalServerError {
		body = errorBody{Error: appErr.Message, Code: appErr.Code, Fields: appErr.Fields}
	} else if ok && appErr.Code == common.CodeUploadFailed {
		body = errorBody{Error: appErr.Message, Code: appErr.Code}
	}
	JSON(w, status, body)
}
