package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type ordersRequest struct {
	DeliveryNotes []string `json:"delivery_notes"`
}

type cleanupRequest struct {
	SnapshotDays int `json:"snapshot_days"`
	EventDays    int `json:"event_days"`
}

type cleanupResponse struct {
	SnapshotsDeleted int64 `json:"snapshots_deleted"`
	EventsDeleted    int64 `json:"events_deleted"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shipper.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shipper.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, shipper.ErrAPI), errors.Is(err, shipper.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(shipper.KindOf(err))})
}

func (s *Server) notWired(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: what + " not wired"})
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return shipper.NewValidationError("Invalid JSON: " + err.Error())
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shipper.NewValidationError("invalid " + key + ": " + raw)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Poller == nil {
		s.notWired(w, "poller")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Poller.Stats())
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.deps.Poller == nil {
		s.notWired(w, "poller")
		return
	}
	s.deps.Poller.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Booker == nil {
		s.notWired(w, "booking")
		return
	}
	res, err := s.deps.Booker.Book(r.Context(), chi.URLParam(r, "order"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBulkBook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bulk == nil {
		s.notWired(w, "bulk booking")
		return
	}
	var req ordersRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Bulk.Enqueue(r.Context(), req.DeliveryNotes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleSlipLink(w http.ResponseWriter, r *http.Request) {
	if s.deps.Slips == nil {
		s.notWired(w, "slips")
		return
	}
	link, err := s.deps.Slips.SlipLink(r.Context(), chi.URLParam(r, "order"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"slip_link": link})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if s.deps.Slips == nil {
		s.notWired(w, "slips")
		return
	}
	var req ordersRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Slips.BulkLabels(r.Context(), req.DeliveryNotes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePackingSlip(w http.ResponseWriter, r *http.Request) {
	if s.deps.Slips == nil {
		s.notWired(w, "slips")
		return
	}
	res, err := s.deps.Slips.GeneratePackingSlip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCitySync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cities == nil {
		s.notWired(w, "city sync")
		return
	}
	res, err := s.deps.Cities.Sync(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTrackingSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Poller == nil {
		s.notWired(w, "poller")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Poller.SyncOnce(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if s.deps.Backfiller == nil {
		s.notWired(w, "backfill")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Backfiller.Backfill(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cleaner == nil {
		s.notWired(w, "retention")
		return
	}
	var req cleanupRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var res cleanupResponse
	var err error
	if res.SnapshotsDeleted, err = s.deps.Cleaner.CleanSnapshots(r.Context(), req.SnapshotDays); err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.EventsDeleted, err = s.deps.Cleaner.CleanEvents(r.Context(), req.EventDays); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
