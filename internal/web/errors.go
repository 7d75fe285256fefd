package web

// errors.go turns failed pipeline runs into responses.
//
// Clients always get one of two fixed bodies, chosen by the stage that
// failed. The support code from core.MapError goes in the X-Error-Code
// header; the technical error stays in the log.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/nemfeed/internal/core"
	"github.com/JonMunkholm/nemfeed/internal/logging"
)

const (
	msgNoArchives   = "No zip files found or failed to retrieve them"
	msgFetchArchive = "Failed to download or extract CSV data"
)

// ErrorResponse is the JSON body of every /api/data failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondPipelineError writes the failure response for a pipeline error.
// Every failure answers 500; the kind travels in X-Error-Code.
func (s *Server) respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)

	body := msgFetchArchive
	ctx := r.Context()
	var fe *core.FetchError
	if errors.As(err, &fe) {
		if fe.Stage == core.StageListing {
			body = msgNoArchives
		}
		ctx = logging.WithFetchID(ctx, fe.FetchID)
		w.Header().Set(headerFetchID, fe.FetchID)
	}

	status := http.StatusInternalServerError

	logging.FromContext(ctx).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"detail", core.FormatUserError(err),
	)

	w.Header().Set(headerErrorCode, userMsg.Code)
	writeJSONStatus(w, status, ErrorResponse{Error: body})
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with status.
// Logs encoding errors since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
