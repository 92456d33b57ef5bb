package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vidfetch/internal/config"
	clierr "vidfetch/internal/errors"
	"vidfetch/internal/logging"
)

const (
	InfoPath     = "/get-video-info"
	DownloadPath = "/download"

	requestIDHeader = "X-Request-ID"

	// maxJSONBody caps JSON answers; format lists are small.
	maxJSONBody = 8 << 20
)

// Messages surfaced when the server gives no error text of its own.
const (
	MsgEmptyURL        = "Please enter a video URL"
	MsgMissingDownload = "URL and format_id are required"
	MsgInfoFailed      = "Failed to get video info"
	MsgDownloadFailed  = "Download failed"
)

// Client talks to the two endpoints of the video service. It keeps no state
// between calls; concurrent calls are independent.
type Client struct {
	http        *http.Client
	log         *logging.Logger
	ua          string
	infoURL     string
	downloadURL string
}

func New(cfg *config.Config, log *logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	infoURL, err := cfg.Endpoint(InfoPath)
	if err != nil {
		return nil, err
	}
	downloadURL, err := cfg.Endpoint(DownloadPath)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewWriter("error", false, io.Discard)
	}
	return &Client{
		http:        newHTTPClient(cfg),
		log:         log,
		ua:          UserAgent(cfg),
		infoURL:     infoURL,
		downloadURL: downloadURL,
	}, nil
}

// FetchVideoInfo asks the service to describe rawURL. A blank URL is rejected
// without touching the network.
func (c *Client) FetchVideoInfo(ctx context.Context, rawURL string) (*VideoMetadata, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return nil, clierr.UserInput(MsgEmptyURL)
	}
	resp, log, err := c.post(ctx, c.infoURL, VideoQuery{URL: u})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		log.Warnf("info: read body: %v", err)
		return nil, clierr.Network(err)
	}
	if !ok(resp.StatusCode) {
		msg := serverMessage(body)
		log.Warnf("info: %s: %s", resp.Status, msg)
		return nil, clierr.Server(resp.StatusCode, msg, MsgInfoFailed)
	}
	var md VideoMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		log.Warnf("info: decode: %v", err)
		return nil, clierr.Parse(err)
	}
	if err := checkFormats(md.Formats); err != nil {
		log.Warnf("info: %v", err)
		return nil, clierr.Parse(err)
	}
	if md.Formats == nil {
		md.Formats = []FormatOption{}
	}
	log.Infof("info: %q %s formats=%d", md.Title, md.Duration, len(md.Formats))
	return &md, nil
}

// Download resolves one format. The answer is either a media stream or a
// JSON redirect, told apart by Content-Type.
func (c *Client) Download(ctx context.Context, dr DownloadRequest) (*DownloadResult, error) {
	if strings.TrimSpace(dr.URL) == "" || dr.FormatID == "" {
		return nil, clierr.UserInput(MsgMissingDownload)
	}
	resp, log, err := c.post(ctx, c.downloadURL, dr)
	if err != nil {
		return nil, err
	}
	log = log.With("format_id", dr.FormatID)
	keep := false
	defer func() {
		if !keep {
			_ = resp.Body.Close()
		}
	}()

	if !ok(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
		msg := serverMessage(body)
		log.Warnf("download: %s: %s", resp.Status, msg)
		return nil, clierr.Server(resp.StatusCode, msg, MsgDownloadFailed)
	}

	ct := resp.Header.Get("Content-Type")
	if isJSON(ct) {
		var rd Redirect
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(&rd); err != nil {
			log.Warnf("download: decode: %v", err)
			return nil, clierr.Parse(err)
		}
		if strings.TrimSpace(rd.URL) == "" {
			log.Warnf("download: redirect without url")
			return nil, clierr.Parse(fmt.Errorf("download answer has no url"))
		}
		rd.FormatID = dr.FormatID
		log.Infof("download: redirect to %s", logging.SanitizeURL(rd.URL))
		return &DownloadResult{Redirect: &rd, Size: -1}, nil
	}

	keep = true
	res := &DownloadResult{
		Body:        resp.Body,
		ContentType: ct,
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		Size:        resp.ContentLength,
	}
	log.Infof("download: stream %s type=%q size=%d", res.Filename, ct, res.Size)
	return res, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (*http.Response, *logging.Logger, error) {
	id := uuid.NewString()
	log := c.log.With("req", id)
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, log, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, log, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set(requestIDHeader, id)
	log.Debugf("POST %s", logging.SanitizeURL(endpoint))
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warnf("POST %s: %v", logging.SanitizeURL(endpoint), err)
		return nil, log, clierr.Network(err)
	}
	return resp, log, nil
}

func ok(code int) bool { return code >= 200 && code < 300 }

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// serverMessage pulls {"error": "..."} out of a failure body, or "".
func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return strings.TrimSpace(eb.Error)
}

// attachmentName returns the base filename from a Content-Disposition header.
func attachmentName(cd string) string {
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(params["filename"])
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// checkFormats enforces that every row can be addressed by its format_id.
func checkFormats(fs []FormatOption) error {
	seen := make(map[string]struct{}, len(fs))
	for i, f := range fs {
		if f.FormatID == "" {
			return fmt.Errorf("formats[%d]: empty format_id", i)
		}
		if _, dup := seen[f.FormatID]; dup {
			return fmt.Errorf("formats[%d]: duplicate format_id %q", i, f.FormatID)
		}
		seen[f.FormatID] = struct{}{}
	}
	return nil
}
