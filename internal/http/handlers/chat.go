package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type chatMessageRequest struct {
	Text string `json:"text"`
}

func (a *App) StartChat(w http.ResponseWriter, r *http.Request) {
	transcript, err := a.Chat.Start(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, transcript)
}

func (a *App) GetChat(w http.ResponseWriter, r *http.Request) {
	transcript, err := a.Chat.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, transcript)
}

// SendChat posts a user message and returns the assistant reply. Model
// failures come back as a canned reply, not an error.
func (a *App) SendChat(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	reply, err := a.Chat.Send(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}
