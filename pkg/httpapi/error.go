package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iota-uz/orgchart/pkg/composables"
)

const contentTypeJSON = "application/json"

// ErrorEnvelope is the body of every non-2xx API response.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// WriteJSON encodes payload before touching w, so an encoding failure leaves
// the response unwritten and is returned to the caller.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	if payload == nil {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(status)
		return nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteRequestError is WriteError with the request id of r, when known,
// placed in meta.request_id.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, code, message string) error {
	var meta map[string]string
	if requestID, ok := composables.UseRequestID(r.Context()); ok {
		meta = map[string]string{"request_id": requestID}
	}
	return WriteError(w, status, code, message, meta)
}
