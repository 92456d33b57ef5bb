package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// VideoQuery is the body of POST /get-video-info.
type VideoQuery struct {
	URL string `json:"url"`
}

// VideoMetadata is what the describe endpoint returns for one URL. A new
// query replaces it wholesale.
type VideoMetadata struct {
	Title    string         `json:"title"`
	Duration DurationText   `json:"duration"`
	Formats  []FormatOption `json:"formats"`
}

// FormatOption is one selectable quality/container variant.
type FormatOption struct {
	FormatID   string   `json:"format_id"`
	Quality    string   `json:"quality,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
	Ext        string   `json:"ext"`
	FPS        *float64 `json:"fps,omitempty"`
	Bitrate    string   `json:"tbr,omitempty"`
	Filesize   string   `json:"filesize,omitempty"`
	FormatNote string   `json:"format_note,omitempty"`
	VCodec     string   `json:"vcodec,omitempty"`
	ACodec     string   `json:"acodec,omitempty"`
}

// Label is the row text, e.g. "360p (mp4)".
func (f FormatOption) Label() string {
	q := strings.TrimSpace(f.Quality)
	if q == "" { q = strings.TrimSpace(f.Resolution) }
	if q == "" { q = strings.TrimSpace(f.FormatNote) }
	if q == "" { q = "unknown" }
	ext := strings.TrimSpace(f.Ext)
	if ext == "" { return q }
	return fmt.Sprintf("%s (%s)", q, ext)
}

// Details joins the optional attributes that are present: fps, bitrate, size.
func (f FormatOption) Details() string {
	var parts []string
	if f.FPS != nil && *f.FPS > 0 {
		parts = append(parts, strconv.FormatFloat(*f.FPS, 'f', -1, 64)+"fps")
	}
	if s := strings.TrimSpace(f.Bitrate); s != "" { parts = append(parts, s) }
	if s := strings.TrimSpace(f.Filesize); s != "" { parts = append(parts, s) }
	return strings.Join(parts, " • ")
}

// DurationText accepts either the "m:ss" string the service sends or a plain
// number of seconds, and always holds the display string.
type DurationText string

func (d *DurationText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil { return err }
		*d = DurationText(s)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = DurationText(FormatSeconds(int64(secs)))
	return nil
}

func (d DurationText) String() string { return string(d) }

// FormatSeconds renders whole seconds as m:ss (minutes are not wrapped into hours).
func FormatSeconds(secs int64) string {
	if secs < 0 { secs = 0 }
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// DownloadRequest is the body of POST /download. FormatID travels unmodified
// from the FormatOption the user picked.
type DownloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

// Redirect is the JSON shape of a /download answer that points at the media.
type Redirect struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Ext   string `json:"ext,omitempty"`

	// FormatID is the format that was requested; it is not on the wire.
	FormatID string `json:"-"`
}

// DownloadResult holds exactly one of Redirect or Body. When Body is set the
// caller owns it and must close it.
type DownloadResult struct {
	Redirect    *Redirect
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64 // -1 when the server did not send Content-Length
}

func (r *DownloadResult) IsRedirect() bool { return r != nil && r.Redirect != nil }

// Close releases the body of a stream result. It is safe on redirect results.
func (r *DownloadResult) Close() error {
	if r == nil || r.Body == nil { return nil }
	return r.Body.Close()
}

type errorBody struct {
	Error string `json:"error"`
}
