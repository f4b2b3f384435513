package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
)

//go:embed openapi.json
var openAPISpec []byte

const (
	DefaultSpecPath = "/v1/openapi.json"
	DefaultDocsPath = "/v1/docs"
)

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { margin: 0; padding: 0; }
      redoc { display: block; height: 100vh; }
    </style>
  </head>
  <body>
    <redoc spec-url="{{.SpecPath}}"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

// DocsOptions places the API document and its viewer.
type DocsOptions struct {
	SpecPath string
	DocsPath string
	Title    string
	// ServerURL, when set, replaces the document's servers list.
	ServerURL string
}

// Docs serves the embedded OpenAPI document and a Redoc page that loads it.
type Docs struct {
	SpecPath string
	DocsPath string
	spec     []byte
	page     []byte
}

func NewDocs(opts DocsOptions) *Docs {
	if opts.SpecPath == "" {
		opts.SpecPath = DefaultSpecPath
	}
	if opts.DocsPath == "" {
		opts.DocsPath = DefaultDocsPath
	}
	if opts.Title == "" {
		opts.Title = "Omniscore API Docs"
	}

	var page bytes.Buffer
	_ = docsPage.Execute(&page, opts)
	return &Docs{
		SpecPath: opts.SpecPath,
		DocsPath: opts.DocsPath,
		spec:     withServer(openAPISpec, opts.ServerURL),
		page:     page.Bytes(),
	}
}

// withServer rewrites the servers entry. The document is returned as is
// when it cannot be decoded.
func withServer(spec []byte, url string) []byte {
	if url == "" {
		return spec
	}
	var doc map[string]any
	if err := json.Unmarshal(spec, &doc); err != nil {
		return spec
	}
	doc["servers"] = []map[string]string{{"url": url}}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return spec
	}
	return out
}

func (d *Docs) ServeSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.spec)
}

func (d *Docs) ServePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.page)
}
