package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/almoud/foodcost/pkg/httputil"
)

// Handlers exposes the audit log to operators.
type Handlers struct {
	store *DBStore
}

// NewHandlers creates audit log handlers.
func NewHandlers(store *DBStore) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers the audit routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/events", h.ListEvents).Methods("GET")
}

// ListEvents returns audit events filtered by query parameters.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := SearchFilter{
		ActorID:  q.Get("actorId"),
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
	}

	if v := q.Get("tenantId"); v != "" {
		filter.TenantID = &v
	}
	if v := q.Get("denied"); v == "true" {
		filter.OnlyDenied = true
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be RFC3339")
			return
		}
		filter.StartTime = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteBadRequest(w, "until must be RFC3339")
			return
		}
		filter.EndTime = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.WriteBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if events == nil {
		events = []*Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
