package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/observability"
)

func (h *Handler) registerReports(r *mux.Router) {
	r.Handle("/reports", h.authed(h.createReport)).Methods(http.MethodPost)
	r.Handle("/reports", h.admin(h.listReports)).Methods(http.MethodGet)
	r.Handle("/reports/statistics", h.admin(h.reportStatistics)).Methods(http.MethodGet)
	r.Handle("/reports/{id}", h.admin(h.getReport)).Methods(http.MethodGet)
	r.Handle("/reports/{id}/status", h.admin(h.updateReportStatus)).Methods(http.MethodPut)
	r.Handle("/reports/{id}", h.admin(h.deleteReport)).Methods(http.MethodDelete)
}

// ReportRequest is the payload for POST /api/reports.
type ReportRequest struct {
	TargetType  string `json:"target_type" validate:"required,oneof=resource info_resource comment"`
	TargetID    string `json:"target_id" validate:"required,max=64"`
	Reason      string `json:"reason" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// ReportStatusRequest is the payload for PUT /api/reports/{id}/status.
type ReportStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending reviewed resolved dismissed"`
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.svc.Reports.Create(r.Context(), actor(r), domain.ReportInput{
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	observability.RecordReportCreated()
	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, err := h.svc.Reports.List(r.Context(), values.Get("status"), values.Get("target_type"), query(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) reportStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Reports.Statistics(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reports.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) updateReportStatus(w http.ResponseWriter, r *http.Request) {
	var req ReportStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.svc.Reports.UpdateStatus(r.Context(), actor(r), pathVar(r, "id"), req.Status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Reports.Delete(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
