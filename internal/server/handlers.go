package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/track"
)

const (
	maxBodyBytes = 64 << 10

	// maxLatencyMs bounds client-reported latency so it converts to a
	// time.Duration without overflowing
	maxLatencyMs = int64(24 * time.Hour / time.Millisecond)
)

// pixel is a 1x1 transparent GIF
var pixel, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

const permissiveRobots = "User-agent: *\nDisallow:\n"

type eventRequest struct {
	IssueID      string          `json:"issueId"`
	SubscriberID string          `json:"subscriberId"`
	EventType    model.EventType `json:"eventType"`
	ScrollDepth  *int            `json:"scrollDepth,omitempty"`
	LatencyMs    *int64          `json:"latencyMs,omitempty"` // Page render to event, measured client-side
	PointerMoved *bool           `json:"pointerMoved,omitempty"`
}

type queryRequest struct {
	IssueID      string `json:"issueId"`
	SubscriberID string `json:"subscriberId"`
	Agent        string `json:"agent,omitempty"`
	Query        string `json:"query,omitempty"`
}

type eventResponse struct {
	OK    bool   `json:"ok"`
	IsBot bool   `json:"isBot"`
	Error string `json:"error,omitempty"`
}

type queryResponse struct {
	OK        bool            `json:"ok"`
	EventType model.EventType `json:"eventType"`
	Error     string          `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	body := permissiveRobots
	if s.robots != nil {
		body = s.robots.Body()
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// handleOpen records an email open. The pixel is served whatever the outcome.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, err := s.recorder.Record(r.Context(), s.input(r, q.Get("i"), q.Get("s"), model.EventOpen))
	if err != nil {
		s.logger.Warn("open not recorded", "error", err)
	}

	h := w.Header()
	h.Set("Content-Type", "image/gif")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	_, _ = w.Write(pixel)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, eventResponse{Error: err.Error()})
		return
	}

	// attributed events skip classification; only the query endpoints may record them
	if track.IsAttributed(req.EventType) {
		writeJSON(w, http.StatusBadRequest, eventResponse{
			Error: fmt.Sprintf("event type %q is recorded through its query endpoint", req.EventType),
		})
		return
	}

	in := s.input(r, req.IssueID, req.SubscriberID, req.EventType)
	in.ScrollDepth = req.ScrollDepth
	in.PointerMoved = req.PointerMoved
	if req.LatencyMs != nil {
		if *req.LatencyMs < 0 || *req.LatencyMs > maxLatencyMs {
			writeJSON(w, http.StatusBadRequest, eventResponse{
				Error: fmt.Sprintf("latencyMs %d outside 0..%d", *req.LatencyMs, maxLatencyMs),
			})
			return
		}
		d := time.Duration(*req.LatencyMs) * time.Millisecond
		in.Latency = &d
	}

	result, err := s.recorder.Record(r.Context(), in)
	if err != nil {
		status := s.errorStatus(err)
		writeJSON(w, status, eventResponse{IsBot: result.IsBot, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{OK: true, IsBot: result.IsBot})
}

func (s *Server) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	s.handleQuery(w, r, model.EventAgentQuery)
}

func (s *Server) handleMCPQuery(w http.ResponseWriter, r *http.Request) {
	s.handleQuery(w, r, model.EventMCPQuery)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request, eventType model.EventType) {
	var req queryRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, queryResponse{EventType: eventType, Error: err.Error()})
		return
	}

	in := s.input(r, req.IssueID, req.SubscriberID, eventType)
	if req.Agent != "" || req.Query != "" {
		in.Metadata = map[string]any{}
		if req.Agent != "" {
			in.Metadata["agent"] = req.Agent
		}
		if req.Query != "" {
			in.Metadata["query"] = req.Query
		}
	}

	record := s.recorder.RecordAgentQuery
	if eventType == model.EventMCPQuery {
		record = s.recorder.RecordMCPQuery
	}
	if _, err := record(r.Context(), in); err != nil {
		writeJSON(w, s.errorStatus(err), queryResponse{EventType: eventType, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{OK: true, EventType: eventType})
}

func (s *Server) input(r *http.Request, issueID, subscriberID string, eventType model.EventType) track.EventInput {
	return track.EventInput{
		IssueID:       issueID,
		SubscriberID:  subscriberID,
		EventType:     eventType,
		UserAgent:     r.UserAgent(),
		SourceAddress: ExtractIP(r, s.cfg.TrustForwarded),
		Path:          r.URL.Path,
	}
}

func (s *Server) errorStatus(err error) int {
	if errors.Is(err, track.ErrInvalidEvent) {
		return http.StatusBadRequest
	}
	s.logger.Error("event not recorded", "error", err)
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
