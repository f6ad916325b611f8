package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// envelope wraps every API response.
type envelope struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Data      any      `json:"data"`
	Errors    []string `json:"errors,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// writeJSON sends a JSON response with the given status code and data.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error(r.Context(), "write JSON response", "error", err)
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	s.writeJSON(w, r, status, envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: s.timestamp(),
	})
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, status int, message string, errs []string) {
	s.writeJSON(w, r, status, envelope{
		Success:   false,
		Message:   message,
		Errors:    errs,
		Timestamp: s.timestamp(),
	})
}

// errBadBody marks request bodies that are not valid JSON.
var errBadBody = errors.New("invalid JSON body")

// errBodyTooLarge marks request bodies over the size limit.
var errBodyTooLarge = errors.New("request body too large")

// readJSON decodes the request body into dst. An empty body decodes to the
// zero value so that field validation reports what is missing.
func readJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
}

// resetSeconds rounds d up to whole seconds for RateLimit-Reset.
func resetSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
