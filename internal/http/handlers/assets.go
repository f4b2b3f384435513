package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"omniscore/internal/domain"
	"omniscore/internal/library"
	"omniscore/internal/providers/genai"
	"omniscore/pkg/zip"
)

const maxArchiveAssetBytes = 100 << 20

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := q.Get("kind")
	switch kind {
	case "", "all", string(domain.AssetKindImage), string(domain.AssetKindVideo):
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be all, image or video")
		return
	}
	items := a.Library.List(library.Filter{Kind: kind, Query: q.Get("q")})
	a.json(w, http.StatusOK, map[string]any{
		"items":  items,
		"counts": a.Library.Counts(),
	})
}

func (a *App) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := a.Library.Get(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}
	a.json(w, http.StatusOK, asset)
}

// DeleteAsset removes a library entry. Bytes cached by this service are
// deleted too, unless a session still works on the same locator.
func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, ok := a.Library.Get(id)
	if !ok || !a.Library.Remove(r.Context(), id) {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}
	if a.Blobs != nil && !a.Sessions.UsesLocator(asset.URL) {
		if key, local := a.Blobs.KeyFromURL(asset.URL); local {
			if err := a.Blobs.Delete(r.Context(), key); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("failed to delete asset blob")
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveAssets downloads the filtered library as a zip file. Assets whose
// bytes cannot be loaded are skipped.
func (a *App) ArchiveAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := a.Library.List(library.Filter{Kind: q.Get("kind"), Query: q.Get("q")})
	log := zerolog.Ctx(r.Context())

	files := make([]zip.Asset, 0, len(items))
	for _, asset := range items {
		data, mime, err := a.loadAssetBytes(r.Context(), asset.URL)
		if err != nil {
			log.Warn().Err(err).Str("asset_id", asset.ID).Msg("skipping asset in archive")
			continue
		}
		files = append(files, zip.Asset{
			Filename: archiveName(asset, mime),
			MIME:     mime,
			Data:     data,
			Modified: asset.CreatedAt,
		})
	}

	var buf bytes.Buffer
	if err := zip.ArchiveAssets(&buf, files); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="omniscore-assets-%s.zip"`, time.Now().UTC().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *App) loadAssetBytes(ctx context.Context, locator string) ([]byte, string, error) {
	if strings.HasPrefix(locator, "data:") {
		in, err := genai.ParseDataURI(locator)
		if err != nil {
			return nil, "", err
		}
		return in.Data, in.MimeType, nil
	}
	if a.Blobs != nil {
		if key, ok := a.Blobs.KeyFromURL(locator); ok {
			data, err := a.Blobs.Read(ctx, key)
			if err != nil {
				return nil, "", err
			}
			return data, http.DetectContentType(data), nil
		}
	}

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("fetch %s: status %d", locator, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveAssetBytes))
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

func archiveName(asset domain.MediaAsset, mime string) string {
	name := strings.TrimSpace(asset.Name)
	if name == "" {
		name = asset.ID
	}
	if path.Ext(name) == "" {
		switch {
		case strings.HasPrefix(mime, "video/"):
			name += ".mp4"
		case strings.HasPrefix(mime, "image/jpeg"):
			name += ".jpg"
		case strings.HasPrefix(mime, "image/"):
			name += ".png"
		}
	}
	return name
}
