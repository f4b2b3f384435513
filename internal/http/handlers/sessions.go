package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"omniscore/internal/domain"
	"omniscore/internal/pipeline"
	"omniscore/internal/providers/genai"
	"omniscore/internal/providers/speech"
)

const maxUploadBytes = 20 << 20

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var patch pipeline.DraftPatch
	if err := a.decode(r, &patch); err != nil {
		a.fail(w, r, err)
		return
	}
	s := a.Sessions.Create()
	if patch != (pipeline.DraftPatch{}) {
		if _, err := s.UpdateDraft(patch); err != nil {
			a.Sessions.Delete(s.ID())
			a.fail(w, r, err)
			return
		}
	}
	a.json(w, http.StatusCreated, s.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !a.Sessions.Delete(chi.URLParam(r, "id")) {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var patch pipeline.DraftPatch
	if err := a.decode(r, &patch); err != nil {
		a.fail(w, r, err)
		return
	}
	draft, err := s.UpdateDraft(patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, draft)
}

type opAccepted struct {
	SessionID string             `json:"session_id"`
	Op        pipeline.Op        `json:"op"`
	Stage     pipeline.Stage     `json:"stage"`
	Status    domain.StageStatus `json:"status"`
}

// SubmitOp starts an operation in the background and answers 202. With
// ?wait=true the call blocks and returns the result instead. An optional
// draft patch in the body is committed together with the operation.
func (a *App) SubmitOp(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	op, known := pipeline.ParseOp(chi.URLParam(r, "op"))
	if !known {
		a.error(w, http.StatusNotFound, "unknown_op", fmt.Sprintf("unknown operation %q", chi.URLParam(r, "op")))
		return
	}
	patch, ok := a.decodePatch(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		res, err := s.RunWithDraft(r.Context(), op, patch)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusOK, res)
		return
	}

	if err := s.SubmitWithDraft(a.Sessions.Context(), op, patch); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, opAccepted{
		SessionID: s.ID(),
		Op:        op,
		Stage:     op.Stage(),
		Status:    domain.StageStatusRunning,
	})
}

// Speech reads the draft content aloud and returns a WAV file.
func (a *App) Speech(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	patch, ok := a.decodePatch(w, r)
	if !ok {
		return
	}
	res, err := s.RunWithDraft(r.Context(), pipeline.OpSpeech, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	wav := speech.EncodeWAV(res.Audio, speech.SampleRate)
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprint(len(wav)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func (a *App) Publish(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	patch, ok := a.decodePatch(w, r)
	if !ok {
		return
	}
	res, err := s.RunWithDraft(r.Context(), pipeline.OpPublish, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, res.Post)
}

func (a *App) SelectAsset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	asset, found := a.Library.Get(chi.URLParam(r, "assetID"))
	if !found {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}
	working, err := s.Select(asset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, working)
}

func (a *App) ClearWorking(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Clear())
}

type uploadRequest struct {
	Image string `json:"image"`
}

// Upload stages a picture as the working image. It accepts either a JSON
// body carrying a data URI or a raw image body.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var dataURI string
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
			return
		}
		if len(data) > maxUploadBytes {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds 20 MB")
			return
		}
		mime := strings.TrimSpace(strings.Split(contentType, ";")[0])
		dataURI = (&genai.InlineData{MimeType: mime, Data: data}).DataURI()
	} else {
		var req uploadRequest
		if err := a.decode(r, &req); err != nil {
			a.fail(w, r, err)
			return
		}
		if _, err := genai.ParseDataURI(req.Image); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "image must be a base64 data URI")
			return
		}
		dataURI = req.Image
	}

	working, err := s.Upload(dataURI)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, working)
}

// decodePatch reads the optional draft patch of an operation request. The
// session commits it only if the operation is accepted.
func (a *App) decodePatch(w http.ResponseWriter, r *http.Request) (pipeline.DraftPatch, bool) {
	var patch pipeline.DraftPatch
	if err := a.decode(r, &patch); err != nil {
		a.fail(w, r, err)
		return pipeline.DraftPatch{}, false
	}
	return patch, true
}
