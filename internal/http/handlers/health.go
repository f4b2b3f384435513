package handlers

import (
	"net/http"
	"time"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if !a.StartedAt.IsZero() {
		body["uptime_seconds"] = int(time.Since(a.StartedAt).Seconds())
	}
	if a.Sessions != nil {
		body["sessions"] = a.Sessions.Len()
	}
	if a.Library != nil {
		body["assets"] = a.Library.Counts()
	}
	a.json(w, http.StatusOK, body)
}
