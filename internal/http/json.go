package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
// Detail is the client-facing message.
type ErrorParams struct {
	Code    int
	ErrCode string
	Detail  string
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, ErrorResponse{Error: p.ErrCode, Detail: p.Detail})
}

// writeUnauthenticated writes the 401 challenge shared by every bearer-protected route.
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: ErrCodeUnauthenticated,
		Detail:  DetailUnauthenticated,
	})
}

func writeInternal(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: ErrCodeInternal,
		Detail:  DetailInternal,
	})
}
