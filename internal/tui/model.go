package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"vidfetch/internal/api"
	"vidfetch/internal/config"
	"vidfetch/internal/deliver"
	clierr "vidfetch/internal/errors"
	"vidfetch/internal/feedback"
	"vidfetch/internal/logging"
	"vidfetch/internal/state"
)

// Service is what the dashboard needs from the flows.
type Service interface {
	FetchVideoInfo(ctx context.Context, rawURL string) (*api.VideoMetadata, error)
	Download(ctx context.Context, req api.DownloadRequest, label string) (deliver.Outcome, error)
	History(limit int) ([]state.DownloadRow, error)
}

type infoMsg struct {
	token uint64
	url   string
	md    *api.VideoMetadata
	err   error
}

type dlDoneMsg struct {
	btn   *feedback.Button
	gen   uint64
	label string
	out   deliver.Outcome
	err   error
}

type revertMsg struct {
	btn *feedback.Button
	gen uint64
}

type historyMsg struct {
	rows []state.DownloadRow
	err  error
}

type tickMsg time.Time

const historyLimit = 8

type Model struct {
	cfg     *config.Config
	svc     Service
	log     *logging.Logger
	ctx     context.Context
	version string

	th   Theme
	w, h int

	input       textinput.Model
	filterInput textinput.Model
	spin        spinner.Model

	panel     feedback.Panel
	focusList bool
	filterOn  bool
	selected  int

	status    string
	statusBad bool

	outcomes    map[*feedback.Button]deliver.Outcome
	showHistory bool
	history     []state.DownloadRow

	// copy writes to the clipboard; swapped in tests.
	copy func(string) error
}

func New(ctx context.Context, cfg *config.Config, svc Service, log *logging.Logger, version string) *Model {
	in := textinput.New()
	in.Prompt = "URL › "
	in.Placeholder = "https://youtu.be/…"
	in.CharLimit = 2048
	in.Width = 60
	in.Focus()

	fi := textinput.New()
	fi.Prompt = "/"
	fi.Placeholder = "filter formats"
	fi.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if ctx == nil {
		ctx = context.Background()
	}
	return &Model{
		cfg:         cfg,
		svc:         svc,
		log:         log,
		ctx:         ctx,
		version:     version,
		th:          defaultTheme(),
		input:       in,
		filterInput: fi,
		spin:        sp,
		outcomes:    map[*feedback.Button]deliver.Outcome{},
		copy:        clipboard.WriteAll,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadHistory(), m.tick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.filterOn {
			return m, m.updateFilter(msg)
		}
		if !m.focusList {
			return m, m.updateInput(msg)
		}
		return m, m.updateList(msg)
	case spinner.TickMsg:
		if !m.panel.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case infoMsg:
		return m, m.applyInfo(msg)
	case dlDoneMsg:
		return m, m.applyDownload(msg)
	case revertMsg:
		msg.btn.Revert(msg.gen)
		return m, nil
	case historyMsg:
		if msg.err != nil {
			m.log.Warnf("history: %v", msg.err)
		} else {
			m.history = msg.rows
		}
		return m, nil
	case tickMsg:
		if m.showHistory {
			return m, tea.Batch(m.loadHistory(), m.tick())
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return m.submit()
	case "tab", "down":
		if m.panel.Registry().Len() > 0 {
			m.setFocusList(true)
		}
		return nil
	case "esc":
		if m.panel.Registry().Len() > 0 {
			m.setFocusList(true)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	rows := m.visibleRows()
	switch msg.String() {
	case "q":
		return tea.Quit
	case "tab", "i":
		m.setFocusList(false)
		return textinput.Blink
	case "j", "down":
		if m.selected < len(rows)-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "enter", "d":
		if m.selected >= 0 && m.selected < len(rows) {
			return m.trigger(rows[m.selected])
		}
	case "/":
		m.filterOn = true
		m.filterInput.Focus()
		return textinput.Blink
	case "U":
		if m.selected >= 0 && m.selected < len(rows) {
			m.copyTarget(rows[m.selected])
		}
	case "h":
		m.showHistory = !m.showHistory
		if m.showHistory {
			return m.loadHistory()
		}
	}
	return nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.filterOn = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.selected = 0
		return nil
	case "enter":
		m.filterOn = false
		m.filterInput.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.selected = 0
	return cmd
}

func (m *Model) setFocusList(on bool) {
	m.focusList = on
	if on {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
}

// submit starts the metadata flow for the URL in the input.
func (m *Model) submit() tea.Cmd {
	raw := m.input.Value()
	if strings.TrimSpace(raw) == "" {
		m.panel.Reject(clierr.UserInput(api.MsgEmptyURL))
		m.setStatus(m.panel.Err(), true)
		return nil
	}
	url := strings.TrimSpace(raw)
	token := m.panel.BeginQuery()
	m.selected = 0
	m.outcomes = map[*feedback.Button]deliver.Outcome{}
	m.filterInput.SetValue("")
	m.setStatus("", false)
	svc, ctx := m.svc, m.ctx
	fetch := func() tea.Msg {
		md, err := svc.FetchVideoInfo(ctx, url)
		return infoMsg{token: token, url: url, md: md, err: err}
	}
	return tea.Batch(fetch, m.spin.Tick)
}

func (m *Model) applyInfo(msg infoMsg) tea.Cmd {
	if !m.panel.EndQuery(msg.token, msg.url, msg.md, msg.err) {
		return nil
	}
	if msg.err != nil {
		m.log.Warnf("info %s: %v", logging.SanitizeURL(msg.url), msg.err)
		m.setStatus(m.panel.Err(), true)
		return nil
	}
	if m.panel.Registry().Len() > 0 {
		m.setFocusList(true)
	}
	return nil
}

// trigger starts the download flow for one row. The button moves to
// Preparing before any network work.
func (m *Model) trigger(row *feedback.Row) tea.Cmd {
	btn := row.Button
	gen := btn.Begin()
	req := row.Request()
	label := row.Format.Label()
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		out, err := svc.Download(ctx, req, label)
		return dlDoneMsg{btn: btn, gen: gen, label: label, out: out, err: err}
	}
}

func (m *Model) applyDownload(msg dlDoneMsg) tea.Cmd {
	if msg.err != nil {
		msg.btn.Fail(msg.gen)
		m.setStatus(fmt.Sprintf("%s: %s", msg.label, clierr.UserMessage(msg.err)), true)
	} else {
		msg.btn.Succeed(msg.gen)
		if m.shown(msg.btn) {
			m.outcomes[msg.btn] = msg.out
		}
		m.setStatus(describeOutcome(msg.label, msg.out), false)
	}
	btn, gen := msg.btn, msg.gen
	cmds := []tea.Cmd{tea.Tick(m.cfg.Feedback(), func(time.Time) tea.Msg { return revertMsg{btn: btn, gen: gen} })}
	if m.showHistory {
		cmds = append(cmds, m.loadHistory())
	}
	return tea.Batch(cmds...)
}

// shown reports whether btn belongs to the displayed result.
func (m *Model) shown(btn *feedback.Button) bool {
	for _, row := range m.panel.Registry().Rows() {
		if row.Button == btn {
			return true
		}
	}
	return false
}

func (m *Model) copyTarget(row *feedback.Row) {
	out, ok := m.outcomes[row.Button]
	if !ok {
		m.setStatus("Nothing to copy yet for "+row.Format.Label(), true)
		return
	}
	target := out.URL
	if target == "" {
		target = out.Path
	}
	if err := m.copy(target); err != nil {
		m.setStatus("Copy failed: "+err.Error(), true)
		return
	}
	m.setStatus("Copied "+truncateMiddle(target, 60), false)
}

func (m *Model) loadHistory() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		rows, err := svc.History(historyLimit)
		return historyMsg{rows: rows, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.RefreshInterval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) setStatus(s string, bad bool) {
	m.status = s
	m.statusBad = bad
}

// visibleRows applies the fuzzy filter, keeping response order.
func (m *Model) visibleRows() []*feedback.Row {
	rows := m.panel.Registry().Rows()
	q := strings.TrimSpace(m.filterInput.Value())
	if q == "" {
		return rows
	}
	var out []*feedback.Row
	for _, r := range rows {
		hay := r.Format.Label() + " " + r.Format.Details() + " " + r.Format.FormatID
		if fuzzy.MatchFold(q, hay) {
			out = append(out, r)
		}
	}
	return out
}

func describeOutcome(label string, out deliver.Outcome) string {
	switch out.Action {
	case deliver.ActionSaved, deliver.ActionFetched:
		return fmt.Sprintf("%s: saved %s", label, out.Path)
	case deliver.ActionOpened:
		return fmt.Sprintf("%s: opened %s", label, logging.SanitizeURL(out.URL))
	}
	return label + ": started"
}
