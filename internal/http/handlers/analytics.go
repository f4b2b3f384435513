package handlers

import (
	"net/http"
	"strconv"
)

// Analytics reports recent composer activity next to the platform series.
func (a *App) Analytics(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 30 {
			a.error(w, http.StatusBadRequest, "bad_request", "days must be between 1 and 30")
			return
		}
		days = n
	}
	a.json(w, http.StatusOK, a.Activity.BuildReport(days))
}
