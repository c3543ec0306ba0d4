// Package httpx provides the JSON envelope used by every API response.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/stockroom/stockroom/internal/shared"
)

// Envelope is the response shape shared by all JSON endpoints.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	ID      *int64 `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes {success:true, data}.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes {success:true, id} with 201.
func Created(w http.ResponseWriter, id int64) {
	JSON(w, http.StatusCreated, Envelope{Success: true, ID: &id})
}

// Done writes {success:true} with an optional message.
func Done(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message})
}

// Fail writes {success:false, error}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: message})
}

// maxBodyBytes bounds request bodies accepted by DecodeJSON.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes a JSON request body into target. Trailing data and
// malformed input are reported as ErrInvalidArgument. Unknown fields are
// ignored because the legacy script posts whole records back.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty: %w", shared.ErrInvalidArgument)
		}
		if errors.Is(err, shared.ErrInvalidArgument) {
			return err
		}
		return fmt.Errorf("malformed request body: %w", shared.ErrInvalidArgument)
	}
	if dec.More() {
		return fmt.Errorf("request body must hold a single object: %w", shared.ErrInvalidArgument)
	}
	return nil
}
