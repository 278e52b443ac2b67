package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) registerBreathing(r *mux.Router) {
	r.HandleFunc("/breathing/exercises", h.listExercises).Methods(http.MethodGet)
	r.HandleFunc("/breathing/exercises/{id}", h.getExercise).Methods(http.MethodGet)
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Breathing.List(r.Context(), query(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getExercise(w http.ResponseWriter, r *http.Request) {
	exercise, err := h.svc.Breathing.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercise)
}
