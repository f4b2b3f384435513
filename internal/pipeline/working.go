package pipeline

import "encoding/json"

// WorkingKind tags the active variant of a WorkingAsset.
type WorkingKind string

const (
	WorkingNone  WorkingKind = "none"
	WorkingImage WorkingKind = "image"
	WorkingVideo WorkingKind = "video"
)

// WorkingAsset is the single asset staged as input to the next operation:
// None, Image(data) or Video(locator, token, still). Only one track can be
// current at a time. Still is the frame a clip was animated from, so the
// working visual survives an animate. A video selected from the library has
// no token and cannot be extended, edited or trimmed.
type WorkingAsset struct {
	kind    WorkingKind
	image   string
	locator string
	token   string
	still   string
}

// NoAsset is the empty working slot.
func NoAsset() WorkingAsset {
	return WorkingAsset{kind: WorkingNone}
}

// ImageAsset stages a picture, as a data URI or URL.
func ImageAsset(data string) WorkingAsset {
	return WorkingAsset{kind: WorkingImage, image: data}
}

// VideoAsset stages a clip. Token is the opaque continuation handle and is
// passed back verbatim; it may be empty.
func VideoAsset(locator, token, still string) WorkingAsset {
	return WorkingAsset{kind: WorkingVideo, locator: locator, token: token, still: still}
}

// Kind returns the active variant.
func (w WorkingAsset) Kind() WorkingKind {
	if w.kind == "" {
		return WorkingNone
	}
	return w.kind
}

// Visual is the picture the image stages operate on: the image itself or
// the still of a video. Empty when there is none.
func (w WorkingAsset) Visual() string {
	switch w.kind {
	case WorkingImage:
		return w.image
	case WorkingVideo:
		return w.still
	}
	return ""
}

// VideoLocator returns the playable URL of a working video.
func (w WorkingAsset) VideoLocator() string {
	if w.kind != WorkingVideo {
		return ""
	}
	return w.locator
}

// Token returns the continuation token of a working video.
func (w WorkingAsset) Token() string {
	if w.kind != WorkingVideo {
		return ""
	}
	return w.token
}

// withVisual replaces the visual in place, keeping the video track.
func (w WorkingAsset) withVisual(data string) WorkingAsset {
	if w.kind == WorkingVideo {
		return VideoAsset(w.locator, w.token, data)
	}
	return ImageAsset(data)
}

type workingJSON struct {
	Kind     WorkingKind `json:"kind"`
	Image    string      `json:"image,omitempty"`
	Video    string      `json:"video,omitempty"`
	Still    string      `json:"still,omitempty"`
	HasToken bool        `json:"has_token"`
}

// MarshalJSON exposes the variant without leaking the raw token.
func (w WorkingAsset) MarshalJSON() ([]byte, error) {
	return json.Marshal(workingJSON{
		Kind:     w.Kind(),
		Image:    w.image,
		Video:    w.locator,
		Still:    w.still,
		HasToken: w.Token() != "",
	})
}
