package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/observability"
	"example.com/cesizen/internal/persistence"
)

func (h *Handler) registerDiagnostic(r *mux.Router) {
	r.HandleFunc("/diagnostic-categories", h.listDiagnosticCategories).Methods(http.MethodGet)
	r.HandleFunc("/diagnostic-categories/with-count", h.listDiagnosticCategoriesWithCount).Methods(http.MethodGet)
	r.HandleFunc("/diagnostic-categories/{id}", h.getDiagnosticCategory).Methods(http.MethodGet)
	r.Handle("/diagnostic-categories", h.admin(h.createDiagnosticCategory)).Methods(http.MethodPost)
	r.Handle("/diagnostic-categories/{id}", h.admin(h.updateDiagnosticCategory)).Methods(http.MethodPut)
	r.Handle("/diagnostic-categories/{id}", h.admin(h.deleteDiagnosticCategory)).Methods(http.MethodDelete)

	r.HandleFunc("/diagnostic/questions", h.listQuestions).Methods(http.MethodGet)
	r.HandleFunc("/diagnostic/questions/{id}", h.getQuestion).Methods(http.MethodGet)
	r.Handle("/diagnostic/questions", h.admin(h.createQuestion)).Methods(http.MethodPost)
	r.Handle("/diagnostic/questions/{id}", h.admin(h.updateQuestion)).Methods(http.MethodPut)
	r.Handle("/diagnostic/questions/{id}", h.admin(h.deleteQuestion)).Methods(http.MethodDelete)
	r.Handle("/diagnostic/configure", h.admin(h.configure)).Methods(http.MethodPost)

	r.HandleFunc("/diagnostic/submit", h.submitDiagnostic).Methods(http.MethodPost)
	r.Handle("/diagnostic/history", h.authed(h.history)).Methods(http.MethodGet)
	r.Handle("/diagnostic/history/{id}", h.authed(h.deleteHistory)).Methods(http.MethodDelete)
}

// DiagnosticCategoryRequest is the payload for POST and PUT /api/diagnostic-categories.
type DiagnosticCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Position    int    `json:"position" validate:"min=0,max=1000"`
}

func (req DiagnosticCategoryRequest) input() domain.DiagnosticCategoryInput {
	return domain.DiagnosticCategoryInput{Name: req.Name, Description: req.Description, Position: req.Position}
}

// QuestionRequest describes one life event.
type QuestionRequest struct {
	ID         string `json:"id" validate:"max=64"`
	Title      string `json:"title" validate:"required,min=3,max=200"`
	Points     int    `json:"points" validate:"required,min=1,max=100"`
	CategoryID string `json:"category_id" validate:"required,max=64"`
}

func (req QuestionRequest) input() domain.QuestionInput {
	return domain.QuestionInput{ID: req.ID, Title: req.Title, Points: req.Points, CategoryID: req.CategoryID}
}

// ConfigureRequest is the payload for POST /api/diagnostic/configure.
type ConfigureRequest struct {
	Events []QuestionRequest `json:"events" validate:"required,min=1,max=500,dive"`
}

// SubmitRequest is the payload for POST /api/diagnostic/submit.
type SubmitRequest struct {
	EventIDs []string `json:"event_ids" validate:"max=500,dive,required,max=64"`
}

// HistoryResponse packages a page of stored results.
type HistoryResponse struct {
	Items      []domain.DiagnosticResult `json:"items"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

func (h *Handler) listDiagnosticCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Diagnostic.ListCategories(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": categories, "total": len(categories)})
}

func (h *Handler) listDiagnosticCategoriesWithCount(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Diagnostic.ListCategoriesWithCount(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": categories, "total": len(categories)})
}

func (h *Handler) getDiagnosticCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.svc.Diagnostic.GetCategory(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) createDiagnosticCategory(w http.ResponseWriter, r *http.Request) {
	var req DiagnosticCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.svc.Diagnostic.CreateCategory(r.Context(), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) updateDiagnosticCategory(w http.ResponseWriter, r *http.Request) {
	var req DiagnosticCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.svc.Diagnostic.UpdateCategory(r.Context(), pathVar(r, "id"), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) deleteDiagnosticCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Diagnostic.DeleteCategory(r.Context(), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listQuestions returns the whole questionnaire; grouped=true buckets it by category.
func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		groups, err := h.svc.Diagnostic.GroupedQuestions(r.Context())
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
		return
	}
	questions, err := h.svc.Diagnostic.ListQuestions(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": questions, "total": len(questions)})
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.svc.Diagnostic.GetQuestion(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !h.decode(w, r, &req) {
		return
	}
	question, err := h.svc.Diagnostic.CreateQuestion(r.Context(), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !h.decode(w, r, &req) {
		return
	}
	question, err := h.svc.Diagnostic.UpdateQuestion(r.Context(), pathVar(r, "id"), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Diagnostic.DeleteQuestion(r.Context(), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) configure(w http.ResponseWriter, r *http.Request) {
	var req ConfigureRequest
	if !h.decode(w, r, &req) {
		return
	}
	inputs := make([]domain.QuestionInput, 0, len(req.Events))
	for _, e := range req.Events {
		inputs = append(inputs, e.input())
	}
	questions, err := h.svc.Diagnostic.Configure(r.Context(), inputs)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": questions, "total": len(questions)})
}

func (h *Handler) submitDiagnostic(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Diagnostic.Submit(r.Context(), actor(r), req.EventIDs)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	observability.RecordDiagnostic(string(result.Level))
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	results, next, err := h.svc.Diagnostic.History(r.Context(), actor(r), cursor, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []domain.DiagnosticResult{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: results, NextCursor: persistence.EncodeCursor(next)})
}

func (h *Handler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Diagnostic.DeleteResult(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
