package api

import "net/http"

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := page(r, 50, 100)
	list, err := a.store.ListNotifications(r.Context(), currentUser(r.Context()).ID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.store.UnreadNotificationCount(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	n, err := a.store.MarkNotificationRead(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.store.MarkAllNotificationsRead(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := a.store.DeleteNotification(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
