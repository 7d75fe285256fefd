package web

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/nemfeed/internal/logging"
)

const (
	ndjsonContentType = "application/x-ndjson"
	textContentType   = "text/plain; charset=utf-8"

	headerSourceArchive = "X-Source-Archive"
	headerFetchID       = "X-Fetch-ID"
	headerListed        = "X-Archives-Listed"
	headerErrorCode     = "X-Error-Code"
)

// handleRoot serves the fixed greeting.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textContentType)
	fmt.Fprint(w, s.cfg.Greeting.Root)
}

// handleGreet echoes the path segment back as "Hi <name>".
func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	s.greet(w, name)
}

func (s *Server) greet(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", textContentType)
	fmt.Fprintf(w, "Hi %s", name)
}

// handleData runs the pipeline and streams the table as NDJSON, one object
// per row in file order.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Latest(r.Context())
	if err != nil {
		s.respondPipelineError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", ndjsonContentType)
	w.Header().Set(headerSourceArchive, res.Archive)
	w.Header().Set(headerFetchID, res.FetchID)
	w.Header().Set(headerListed, strconv.Itoa(res.Listed))
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, rec := range res.Table.Rows {
		if err := enc.Encode(rec); err != nil {
			// Headers are gone; all that is left is to stop and log.
			logging.FromContext(logging.WithFetchID(r.Context(), res.FetchID)).
				Error("encode row failed", "row", i, "error", err)
			return
		}
	}
	if err := bw.Flush(); err != nil {
		logging.FromContext(r.Context()).Debug("client went away mid-stream", "error", err)
	}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	ListingURL string    `json:"listing_url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC(),
		ListingURL: s.service.Upstream().ListingURL,
	})
}

