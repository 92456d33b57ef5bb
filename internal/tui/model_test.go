package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vidfetch/internal/api"
	"vidfetch/internal/deliver"
	clierr "vidfetch/internal/errors"
	"vidfetch/internal/feedback"
	"vidfetch/internal/state"
	"vidfetch/internal/testutil"
)

type fakeService struct {
	mu       sync.Mutex
	md       *api.VideoMetadata
	infoErr  error
	out      deliver.Outcome
	dlErr    error
	infos    []string
	requests []api.DownloadRequest
	history  []state.DownloadRow
}

func (f *fakeService) FetchVideoInfo(_ context.Context, rawURL string) (*api.VideoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, rawURL)
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.md, nil
}

func (f *fakeService) Download(_ context.Context, req api.DownloadRequest, _ string) (deliver.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.out, f.dlErr
}

func (f *fakeService) History(int) ([]state.DownloadRow, error) { return f.history, nil }

const videoURL = "https://youtu.be/abc"

func sampleMetadata() *api.VideoMetadata {
	return &api.VideoMetadata{
		Title:    "Clip",
		Duration: "3:32",
		Formats: []api.FormatOption{
			{FormatID: "18", Quality: "360p", Ext: "mp4"},
			{FormatID: "22", Quality: "720p", Ext: "mp4"},
			{FormatID: "251", Quality: "audio", Ext: "webm"},
		},
	}
}

func newTestModel(t *testing.T, svc *fakeService) *Model {
	t.Helper()
	cfg := testutil.Config(t, "http://127.0.0.1:1")
	cfg.UI.FeedbackMS = 1
	m := New(context.Background(), cfg, svc, nil, "test")
	m.copy = func(string) error { return nil }
	return m
}

// collect runs cmd and any batched commands, keeping the messages that
// arrive quickly. Long timers are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(300 * time.Millisecond):
		return nil
	}
}

func find[T any](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("message %T not produced; got %#v", zero, msgs)
	return zero
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func loadMetadata(t *testing.T, m *Model) {
	t.Helper()
	m.input.SetValue(videoURL)
	msgs := collect(send(m, key("enter")))
	send(m, find[infoMsg](t, msgs))
}

func TestSubmitEmptyURLDoesNotFetch(t *testing.T) {
	svc := &fakeService{md: sampleMetadata()}
	m := newTestModel(t, svc)
	m.input.SetValue("   ")

	if cmd := send(m, key("enter")); cmd != nil {
		t.Fatalf("expected no command for blank input")
	}
	if len(svc.infos) != 0 {
		t.Fatalf("no request expected, got %v", svc.infos)
	}
	if m.panel.Loading() {
		t.Fatalf("loading must not start for blank input")
	}
	if m.status != api.MsgEmptyURL {
		t.Fatalf("status = %q", m.status)
	}
}

func TestLoadingAndMetadataAreExclusive(t *testing.T) {
	svc := &fakeService{md: sampleMetadata()}
	m := newTestModel(t, svc)
	m.input.SetValue("  " + videoURL + " ")

	msgs := collect(send(m, key("enter")))
	if !m.panel.Loading() {
		t.Fatalf("expected loading after submit")
	}
	v := m.View()
	if !strings.Contains(v, loadingText) || strings.Contains(v, "Duration:") {
		t.Fatalf("loading view wrong:\n%s", v)
	}

	send(m, find[infoMsg](t, msgs))
	if m.panel.Loading() {
		t.Fatalf("loading must end after result")
	}
	v = m.View()
	for _, want := range []string{"Clip", "Duration: 3:32", "360p (mp4)", "720p (mp4)", "audio (webm)", "[ Download ]"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	if strings.Contains(v, loadingText) {
		t.Fatalf("loading text shown with metadata")
	}
	if svc.infos[0] != videoURL {
		t.Fatalf("url not trimmed: %q", svc.infos[0])
	}
	if !m.focusList {
		t.Fatalf("focus should move to the format list")
	}
}

func TestFetchFailureShowsServerMessage(t *testing.T) {
	svc := &fakeService{infoErr: clierr.Server(404, "Video not found", api.MsgInfoFailed)}
	m := newTestModel(t, svc)
	loadMetadata(t, m)

	if m.panel.Metadata() != nil || m.panel.Loading() {
		t.Fatalf("no metadata and no loading expected")
	}
	if m.status != "Video not found" || !m.statusBad {
		t.Fatalf("status = %q bad=%v", m.status, m.statusBad)
	}
}

func TestNetworkFailureShowsGenericMessage(t *testing.T) {
	svc := &fakeService{infoErr: clierr.Network(errors.New("connection refused"))}
	m := newTestModel(t, svc)
	loadMetadata(t, m)
	if m.status != clierr.GenericMessage {
		t.Fatalf("status = %q", m.status)
	}
}

func TestStaleInfoResultIsDropped(t *testing.T) {
	svc := &fakeService{md: sampleMetadata()}
	m := newTestModel(t, svc)
	m.input.SetValue(videoURL)
	first := find[infoMsg](t, collect(send(m, key("enter"))))
	m.input.SetValue("https://youtu.be/second")
	second := find[infoMsg](t, collect(send(m, key("enter"))))

	send(m, first)
	if !m.panel.Loading() || m.panel.Metadata() != nil {
		t.Fatalf("superseded result must not end loading")
	}
	send(m, second)
	if m.panel.Loading() || m.panel.Source() != "https://youtu.be/second" {
		t.Fatalf("latest result not applied: source=%q", m.panel.Source())
	}
}

func TestDownloadButtonCycle(t *testing.T) {
	svc := &fakeService{md: sampleMetadata(), out: deliver.Outcome{Action: deliver.ActionOpened, URL: "https://cdn.example/v.mp4"}}
	m := newTestModel(t, svc)
	loadMetadata(t, m)

	send(m, key("j"))
	cmd := send(m, key("enter"))
	row, _ := m.panel.Registry().Get("22")
	if row.Button.State() != feedback.Preparing {
		t.Fatalf("state = %v, want preparing", row.Button.State())
	}
	if !strings.Contains(m.View(), "Preparing…") {
		t.Fatalf("busy label not rendered")
	}

	send(m, find[dlDoneMsg](t, collect(cmd)))
	if got := row.Button.Appearance(); got.Label != feedback.LabelStarted || got.Style != feedback.StyleSuccess {
		t.Fatalf("appearance = %+v", got)
	}
	if len(svc.requests) != 1 || svc.requests[0] != (api.DownloadRequest{URL: videoURL, FormatID: "22"}) {
		t.Fatalf("requests = %+v", svc.requests)
	}
	if !strings.Contains(m.status, "opened") {
		t.Fatalf("status = %q", m.status)
	}

	send(m, dlDoneMsg{btn: row.Button, gen: 99, label: "720p (mp4)", err: errors.New("late")})
	if row.Button.State() != feedback.Started {
		t.Fatalf("stale completion changed state to %v", row.Button.State())
	}
}

func TestDownloadRevertsAfterDelay(t *testing.T) {
	svc := &fakeService{md: sampleMetadata(), dlErr: clierr.Server(500, "boom", api.MsgDownloadFailed)}
	m := newTestModel(t, svc)
	loadMetadata(t, m)

	cmd := send(m, key("d"))
	row, _ := m.panel.Registry().Get("18")
	after := send(m, find[dlDoneMsg](t, collect(cmd)))
	if got := row.Button.Appearance(); got.Label != feedback.LabelError || got.Style != feedback.StyleError {
		t.Fatalf("appearance = %+v", got)
	}
	if !strings.Contains(m.View(), "Error!") {
		t.Fatalf("error label not rendered")
	}

	send(m, find[revertMsg](t, collect(after)))
	if got := row.Button.Appearance(); got != row.Button.Original() {
		t.Fatalf("not reverted: %+v", got)
	}
	if row.Button.State() != feedback.Idle {
		t.Fatalf("state = %v", row.Button.State())
	}
}

func TestFilterKeepsResponseOrder(t *testing.T) {
	m := newTestModel(t, &fakeService{md: sampleMetadata()})
	loadMetadata(t, m)

	send(m, key("/"))
	for _, r := range "mp4" {
		send(m, key(string(r)))
	}
	send(m, key("enter"))

	rows := m.visibleRows()
	if len(rows) != 2 || rows[0].Format.FormatID != "18" || rows[1].Format.FormatID != "22" {
		ids := []string{}
		for _, r := range rows {
			ids = append(ids, r.Format.FormatID)
		}
		t.Fatalf("filtered rows = %v", ids)
	}
	if m.filterOn {
		t.Fatalf("filter input should close on enter")
	}
}

func TestCopyTargetUsesLastOutcome(t *testing.T) {
	svc := &fakeService{md: sampleMetadata(), out: deliver.Outcome{Action: deliver.ActionOpened, URL: "https://cdn.example/v.mp4"}}
	m := newTestModel(t, svc)
	var copied string
	m.copy = func(s string) error { copied = s; return nil }
	loadMetadata(t, m)

	send(m, key("U"))
	if copied != "" || !m.statusBad {
		t.Fatalf("nothing should be copied before a download")
	}
	send(m, find[dlDoneMsg](t, collect(send(m, key("enter")))))
	send(m, key("U"))
	if copied != "https://cdn.example/v.mp4" {
		t.Fatalf("copied %q", copied)
	}
}

func TestNewQueryForgetsOutcomes(t *testing.T) {
	svc := &fakeService{md: sampleMetadata(), out: deliver.Outcome{Action: deliver.ActionOpened, URL: "https://cdn.example/v.mp4"}}
	m := newTestModel(t, svc)
	loadMetadata(t, m)

	first := send(m, key("enter"))
	send(m, key("j"))
	send(m, find[dlDoneMsg](t, collect(send(m, key("d")))))
	if len(m.outcomes) != 1 {
		t.Fatalf("outcomes = %d", len(m.outcomes))
	}

	send(m, key("tab"))
	loadMetadata(t, m)
	if len(m.outcomes) != 0 {
		t.Fatalf("outcomes kept across queries: %d", len(m.outcomes))
	}
	// A completion for a row of the previous result is not recorded.
	send(m, find[dlDoneMsg](t, collect(first)))
	if len(m.outcomes) != 0 {
		t.Fatalf("late completion recorded: %d", len(m.outcomes))
	}
}

func TestBlankResubmitKeepsMetadata(t *testing.T) {
	m := newTestModel(t, &fakeService{md: sampleMetadata()})
	loadMetadata(t, m)

	send(m, key("tab"))
	m.input.SetValue("")
	send(m, key("enter"))
	if m.panel.Metadata() == nil {
		t.Fatalf("metadata should stay visible")
	}
	if m.status != api.MsgEmptyURL {
		t.Fatalf("status = %q", m.status)
	}
}

func TestHistoryToggle(t *testing.T) {
	svc := &fakeService{md: sampleMetadata(), history: []state.DownloadRow{
		{Label: "360p (mp4)", Status: state.StatusOK, Action: "saved", Target: "/tmp/clip.mp4", Bytes: 2048, CreatedAt: time.Now().Unix()},
		{Label: "720p (mp4)", Status: state.StatusError, LastError: "Download failed", CreatedAt: time.Now().Unix()},
	}}
	m := newTestModel(t, svc)
	loadMetadata(t, m)

	send(m, find[historyMsg](t, collect(send(m, key("h")))))
	v := m.View()
	for _, want := range []string{"Recent downloads", "360p (mp4)", "2.0 kB", "Download failed"} {
		if !strings.Contains(v, want) {
			t.Errorf("history view missing %q:\n%s", want, v)
		}
	}
	send(m, key("h"))
	if strings.Contains(m.View(), "Recent downloads") {
		t.Fatalf("history should hide on second toggle")
	}
}
