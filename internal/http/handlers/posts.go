package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"omniscore/internal/posts"
)

func (a *App) ListPosts(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.Posts.List()})
}

func (a *App) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := a.Posts.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, post)
}

func (a *App) Dashboard(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, posts.BuildDashboard(a.Posts.List()))
}

func (a *App) Leaderboard(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": posts.Leaderboard(a.Posts.List())})
}

func (a *App) ListTrends(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Trends.Snapshot())
}
