package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

const maxBody = 1 << 20

type APIError struct {
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope. err is exposed only for 5xx responses.
func WriteError(w http.ResponseWriter, status int, msg string, err error, details interface{}) {
	e := APIError{Message: msg, Details: details}
	if err != nil && status >= http.StatusInternalServerError {
		e.Error = err.Error()
	}
	WriteJSON(w, status, e)
}

// DecodeJSON reads a JSON body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
