package handler

import (
	"net/http"
	"strconv"

	mw "github.com/sandeepmv/binsight/internal/api/middleware"
	"github.com/sandeepmv/binsight/internal/api/response"
	"github.com/sandeepmv/binsight/internal/store"
)

// listFilter builds a per-user pagination filter from query parameters.
func listFilter(r *http.Request) (store.ListFilter, bool) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		return store.ListFilter{}, false
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return store.ListFilter{UserID: userID, Page: page, Limit: limit}, true
}

// NewHistoryHandler returns the handler for GET /api/v1/history.
func NewHistoryHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := listFilter(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		entries, total, err := s.ListHistory(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list history", nil)
			return
		}

		response.Collection(w, entries, paginationMeta(filter, total))
	}
}

// NewNotificationsHandler returns the handler for GET /api/v1/notifications.
func NewNotificationsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := listFilter(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		notifications, total, err := s.ListNotifications(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list notifications", nil)
			return
		}

		response.Collection(w, notifications, paginationMeta(filter, total))
	}
}

func paginationMeta(filter store.ListFilter, total int) response.PaginationMeta {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	return response.PaginationMeta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: total > page*limit,
	}
}
