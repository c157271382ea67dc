package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campaign-scheduler/internal/campaign"
	"campaign-scheduler/internal/customer"
	"campaign-scheduler/internal/facility"
	"campaign-scheduler/internal/storage"
)

type PassRunner interface {
	LoadAndScheduleCampaigns(ctx context.Context) (campaign.Report, error)
}

type JobLister interface {
	Pending() []facility.Record
}

type Handler struct {
	Passes PassRunner
	Jobs   JobLister
	Store  storage.Getter // optional
}

func NewHandler(p PassRunner, j JobLister, g storage.Getter) *Handler {
	return &Handler{Passes: p, Jobs: j, Store: g}
}

type passResponse struct {
	campaign.Report
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RunPass triggers a scheduling pass and reports what was registered.
func (h *Handler) RunPass(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Passes.LoadAndScheduleCampaigns(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, passResponse{Report: rep})
		return
	}

	var fe *customer.FormatError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &fe):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, customer.ErrNotFound):
		status = http.StatusNotFound
	case rep.Scheduled > 0 || rep.Failed > 0:
		status = http.StatusMultiStatus // some registrations failed
	}
	writeJSON(w, status, passResponse{Report: rep, Error: err.Error()})
}

func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Jobs.Pending())
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	rec, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
