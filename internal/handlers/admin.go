package handlers

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/services"
)

// AdminHandler exposes the human decision links and read-only batch/outbox views.
// Every route requires the shared approval token.
type AdminHandler struct {
	service services.AdminService
	token   string
	logger  *zap.Logger
}

func NewAdminHandler(service services.AdminService, token string, log *zap.Logger) *AdminHandler {
	return &AdminHandler{service: service, token: token, logger: logger.OrNop(log)}
}

type messageResponse struct {
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

func (h *AdminHandler) HandleApproveBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := h.batchParam(w, r)
	if !ok {
		return
	}
	res, err := h.service.ApproveBatch(r.Context(), batchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "✅ Approved " + batchID + ". Queued replies (slow schedule).",
		Result:  res,
	})
}

func (h *AdminHandler) HandleRejectBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := h.batchParam(w, r)
	if !ok {
		return
	}
	res, err := h.service.RejectBatch(r.Context(), batchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "❌ Rejected " + batchID + ". Nothing will be sent.",
		Result:  res,
	})
}

func (h *AdminHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	q := r.URL.Query()
	batchID := strings.TrimSpace(q.Get("batch_id"))
	itemID, err := strconv.ParseInt(strings.TrimSpace(q.Get("item_id")), 10, 64)
	if batchID == "" || err != nil || itemID <= 0 {
		http.Error(w, "Missing params", http.StatusBadRequest)
		return
	}
	if err := h.service.RemoveItem(r.Context(), batchID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "🗑️ Removed item #" + strconv.FormatInt(itemID, 10) + " from " + batchID,
	})
}

func (h *AdminHandler) HandleCancelBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := h.batchParam(w, r)
	if !ok {
		return
	}
	n, err := h.service.CancelBatch(r.Context(), batchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Canceled " + strconv.FormatInt(n, 10) + " queued replies of " + batchID,
		Result:  map[string]int64{"canceled": n},
	})
}

func (h *AdminHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	detail, err := h.service.GetBatchDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AdminHandler) HandleListOutbox(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	q := r.URL.Query()
	filter := &models.OutboxFilter{
		BatchID: q.Get("batch_id"),
		Status:  models.OutboxStatus(strings.ToUpper(q.Get("status"))),
		Limit:   100,
	}
	if st := filter.Status; st != "" && st != models.OutboxStatusQueued && !st.IsTerminal() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = n
	}
	entries, err := h.service.ListOutbox(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.OutboxEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AdminHandler) batchParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !h.authorized(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return "", false
	}
	batchID := strings.TrimSpace(r.URL.Query().Get("batch_id"))
	if batchID == "" {
		http.Error(w, "Missing batch_id", http.StatusBadRequest)
		return "", false
	}
	return batchID, true
}

// authorized compares the token in constant time. An unset server token rejects everything.
func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = r.Header.Get("X-Admin-Token")
	}
	return hmac.Equal([]byte(got), []byte(h.token))
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	var verr *apperrors.ErrValidation
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrAlreadyDecided):
		http.Error(w, "Batch already decided", http.StatusConflict)
	default:
		h.logger.Error("admin request failed", zap.Error(err))
		http.Error(w, "Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
