package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	clierr "vidfetch/internal/errors"
	"vidfetch/internal/logging"
	"vidfetch/internal/testutil"
)

func newTestClient(t *testing.T, b *testutil.Backend) *Client {
	t.Helper()
	c, err := New(testutil.Config(t, b.URL), logging.NewWriter("error", false, io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchVideoInfoBlankURLMakesNoCall(t *testing.T) {
	b := testutil.NewBackend(t)
	c := newTestClient(t, b)
	for _, in := range []string{"", " ", "\t\n", "   \r\n "} {
		md, err := c.FetchVideoInfo(context.Background(), in)
		if md != nil {
			t.Fatalf("%q: expected no metadata", in)
		}
		if !clierr.Is(err, clierr.KindUserInput) {
			t.Fatalf("%q: expected user input error, got %v", in, err)
		}
	}
	if n := len(b.Calls()); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
}

func TestFetchVideoInfoScenario(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddJSONResponse(InfoPath, 200, `{"title":"Test Video","duration":"3:21","formats":[{"format_id":"18","quality":"360p","ext":"mp4"}]}`)
	c := newTestClient(t, b)

	md, err := c.FetchVideoInfo(context.Background(), "  https://youtu.be/abc123 ")
	if err != nil {
		t.Fatalf("FetchVideoInfo: %v", err)
	}
	if md.Title != "Test Video" || md.Duration.String() != "3:21" {
		t.Fatalf("metadata: %+v", md)
	}
	if len(md.Formats) != 1 || md.Formats[0].FormatID != "18" || md.Formats[0].Label() != "360p (mp4)" {
		t.Fatalf("formats: %+v", md.Formats)
	}
	calls := b.Calls()
	if len(calls) != 1 || calls[0].Body["url"] != "https://youtu.be/abc123" {
		t.Fatalf("expected trimmed url in request, got %+v", calls)
	}
	if calls[0].RequestID == "" || !strings.HasPrefix(calls[0].UserAgent, "vidfetch/") {
		t.Fatalf("missing request headers: %+v", calls[0])
	}
}

func TestFetchVideoInfoFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    clierr.Kind
		userMsg string
	}{
		{"server message", 400, `{"error":"Invalid URL"}`, clierr.KindServer, "Invalid URL"},
		{"server no message", 500, `oops`, clierr.KindServer, MsgInfoFailed},
		{"malformed ok body", 200, `{"title":`, clierr.KindParse, clierr.GenericMessage},
		{"duplicate format ids", 200, `{"title":"x","duration":"1:00","formats":[{"format_id":"1","ext":"mp4"},{"format_id":"1","ext":"webm"}]}`, clierr.KindParse, clierr.GenericMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := testutil.NewBackend(t)
			b.AddJSONResponse(InfoPath, tc.status, tc.body)
			c := newTestClient(t, b)
			md, err := c.FetchVideoInfo(context.Background(), "https://youtu.be/abc123")
			if md != nil {
				t.Fatalf("expected no metadata, got %+v", md)
			}
			if clierr.KindOf(err) != tc.kind {
				t.Fatalf("kind=%v want %v (err=%v)", clierr.KindOf(err), tc.kind, err)
			}
			if got := clierr.UserMessage(err); got != tc.userMsg {
				t.Fatalf("user message=%q want %q", got, tc.userMsg)
			}
		})
	}
}

func TestFetchVideoInfoNetworkError(t *testing.T) {
	b := testutil.NewBackend(t)
	c := newTestClient(t, b)
	b.Close()
	_, err := c.FetchVideoInfo(context.Background(), "https://youtu.be/abc123")
	if !clierr.Is(err, clierr.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if clierr.UserMessage(err) != clierr.GenericMessage {
		t.Fatalf("network errors surface the generic message")
	}
}

func TestFetchVideoInfoNumericDuration(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddJSONResponse(InfoPath, 200, `{"title":"t","duration":201,"formats":[{"format_id":"137","resolution":"1920x1080","ext":"mp4","fps":30,"tbr":"4.4Mbps","filesize":"120.5 MB"}]}`)
	c := newTestClient(t, b)
	md, err := c.FetchVideoInfo(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatal(err)
	}
	if md.Duration != "3:21" {
		t.Fatalf("duration: %q", md.Duration)
	}
	f := md.Formats[0]
	if f.Label() != "1920x1080 (mp4)" || f.Details() != "30fps • 4.4Mbps • 120.5 MB" {
		t.Fatalf("label=%q details=%q", f.Label(), f.Details())
	}
}

func TestDownloadRedirect(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddJSONResponse(DownloadPath, 200, `{"url":"https://cdn.example/video.mp4","title":"Test Video","ext":"mp4"}`)
	c := newTestClient(t, b)
	res, err := c.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/abc123", FormatID: "18"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !res.IsRedirect() || res.Redirect.URL != "https://cdn.example/video.mp4" || res.Redirect.FormatID != "18" || res.Body != nil {
		t.Fatalf("result: %+v", res)
	}
	calls := b.Calls()
	if calls[0].Body["format_id"] != "18" || calls[0].Body["url"] != "https://youtu.be/abc123" {
		t.Fatalf("request body: %+v", calls[0].Body)
	}
}

func TestDownloadStream(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddFileResponse(DownloadPath, "../Test Video.mp4", "video/mp4", "MEDIA")
	c := newTestClient(t, b)
	res, err := c.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/abc123", FormatID: "18"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer res.Close()
	if res.IsRedirect() {
		t.Fatalf("expected stream result")
	}
	if res.Filename != "Test Video.mp4" || res.ContentType != "video/mp4" {
		t.Fatalf("filename=%q type=%q", res.Filename, res.ContentType)
	}
	got, _ := io.ReadAll(res.Body)
	if string(got) != "MEDIA" {
		t.Fatalf("body: %q", got)
	}
}

func TestDownloadFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		ctype  string
		body   string
		kind   clierr.Kind
	}{
		{"not found", 404, "application/json", `{"error":"Could not get direct URL"}`, clierr.KindServer},
		{"redirect without url", 200, "application/json", `{"title":"x"}`, clierr.KindParse},
		{"malformed json", 200, "application/json; charset=utf-8", `{"url":`, clierr.KindParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := testutil.NewBackend(t)
			b.AddResponse(DownloadPath, testutil.MockResponse{StatusCode: tc.status, Body: tc.body, Headers: map[string]string{"Content-Type": tc.ctype}})
			c := newTestClient(t, b)
			_, err := c.Download(context.Background(), DownloadRequest{URL: "u", FormatID: "18"})
			if clierr.KindOf(err) != tc.kind {
				t.Fatalf("kind=%v want %v (err=%v)", clierr.KindOf(err), tc.kind, err)
			}
		})
	}
}

func TestDownloadRequiresURLAndFormat(t *testing.T) {
	b := testutil.NewBackend(t)
	c := newTestClient(t, b)
	_, err := c.Download(context.Background(), DownloadRequest{URL: " ", FormatID: "18"})
	if !clierr.Is(err, clierr.KindUserInput) {
		t.Fatalf("expected user input error, got %v", err)
	}
	if b.CallsTo(DownloadPath) != 0 {
		t.Fatalf("no request expected")
	}
}

func TestAttachmentName(t *testing.T) {
	cases := map[string]string{
		``:                                       "",
		`attachment; filename="clip.webm"`:      "clip.webm",
		`attachment; filename*=UTF-8''v%C3%ADdeo.mp4`: "vídeo.mp4",
		`attachment; filename="..\\..\\x.mp4"`:  "x.mp4",
		`garbage;;`:                              "",
	}
	for in, want := range cases {
		if got := attachmentName(in); got != want {
			t.Errorf("attachmentName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestIsJSON(t *testing.T) {
	if !isJSON("application/json; charset=utf-8") || !isJSON("application/problem+json") {
		t.Fatalf("json types not detected")
	}
	if isJSON("video/mp4") || isJSON("") || isJSON(http.DetectContentType([]byte("x"))) {
		t.Fatalf("non-json detected as json")
	}
}
