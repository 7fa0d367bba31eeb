package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"budgetwise/internal/core"
	"budgetwise/internal/services"
)

// userIDHeader carries the authenticated user, set by the gateway in front of
// this service.
const userIDHeader = "X-User-ID"

type createRequest struct {
	Type                     core.TransactionType `json:"type"`
	Amount                   json.Number          `json:"amount"`
	Category                 core.Category        `json:"category"`
	Note                     string               `json:"note"`
	Tags                     []string             `json:"tags"`
	Frequency                core.Frequency       `json:"frequency"`
	StartDate                time.Time            `json:"startDate"`
	EndDate                  *time.Time           `json:"endDate"`
	OriginatingTransactionID *int64               `json:"originatingTransactionId"`
}

type definitionResponse struct {
	ID             int64                `json:"id"`
	Type           core.TransactionType `json:"type"`
	AmountCents    int64                `json:"amountCents"`
	Category       core.Category        `json:"category"`
	Note           string               `json:"note,omitempty"`
	Tags           []string             `json:"tags,omitempty"`
	Frequency      core.Frequency       `json:"frequency"`
	StartDate      time.Time            `json:"startDate"`
	EndDate        *time.Time           `json:"endDate,omitempty"`
	Status         core.ScheduleStatus  `json:"status"`
	NextOccurrence *time.Time           `json:"nextOccurrence,omitempty"`
	LastOccurrence *time.Time           `json:"lastOccurrence,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func toDefinitionResponse(def *core.RecurringDefinition) definitionResponse {
	return definitionResponse{
		ID:             def.ID,
		Type:           def.Type,
		AmountCents:    def.Amount.Cents,
		Category:       def.Category,
		Note:           def.Note,
		Tags:           def.Tags,
		Frequency:      def.Frequency,
		StartDate:      def.StartDate,
		EndDate:        def.EndDate,
		Status:         def.State().Status,
		NextOccurrence: def.NextOccurrence,
		LastOccurrence: def.LastOccurrence,
		CreatedAt:      def.CreatedAt,
		UpdatedAt:      def.UpdatedAt,
	}
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreate(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	def, err := s.lifecycle.Create(r.Context(), userID, services.CreateDefinitionInput{
		Type:                     req.Type,
		AmountCents:              cents,
		Category:                 req.Category,
		Note:                     req.Note,
		Tags:                     req.Tags,
		Frequency:                req.Frequency,
		StartDate:                req.StartDate,
		EndDate:                  req.EndDate,
		OriginatingTransactionID: req.OriginatingTransactionID,
	}, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDefinitionResponse(def))
}

type listResponse struct {
	Items      []definitionResponse `json:"items"`
	Pagination services.Pagination  `json:"pagination"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	result, err := s.lifecycle.List(r.Context(), userID, page, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := listResponse{Items: []definitionResponse{}, Pagination: result.Pagination}
	for i := range result.Items {
		resp.Items = append(resp.Items, toDefinitionResponse(&result.Items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.lifecycle.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.lifecycle.Resume)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request,
	transition func(ctx context.Context, id int64, userID string, now time.Time) (*core.RecurringDefinition, error)) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid definition id")
		return
	}

	def, err := transition(r.Context(), id, userID, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionResponse(def))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}

	summary, err := s.catchup.Run(r.Context(), s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "recurring definition not found")
	case core.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
