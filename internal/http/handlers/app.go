package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"omniscore/internal/analytics"
	"omniscore/internal/domain"
	"omniscore/internal/library"
	"omniscore/internal/pipeline"
	"omniscore/internal/posts"
	"omniscore/internal/providers/chat"
	"omniscore/internal/storage"
	"omniscore/internal/trends"
)

const maxJSONBody = 25 << 20

// App holds the services the HTTP handlers serve.
type App struct {
	Sessions *pipeline.Manager
	Library  *library.Library
	Posts    *posts.Store
	Trends   *trends.Service
	Chat     *chat.Service
	Activity *analytics.Tracker
	Blobs    *storage.FileStore
	// HTTPClient fetches remote assets for archives.
	HTTPClient *http.Client
	StartedAt  time.Time
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, errorBody{Error: errorDetail{Code: errCode, Message: msg}})
}

// fail maps a service error onto the error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrStageBusy):
		a.error(w, http.StatusConflict, "stage_busy", err.Error())
	case errors.Is(err, domain.ErrMissingInput):
		a.error(w, http.StatusUnprocessableEntity, "missing_input", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "provider_failure", err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (a *App) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func (a *App) session(w http.ResponseWriter, r *http.Request, id string) (*pipeline.Session, bool) {
	s, err := a.Sessions.Get(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return s, true
}
