package configwizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vidfetch/internal/config"
)

type field struct {
	key   string
	hint  string
	value func(*config.Config) string
	apply func(*config.Config, string)
}

var fields = []field{
	{
		key:   "server.base_url",
		value: func(c *config.Config) string { return c.Server.BaseURL },
		apply: func(c *config.Config, v string) {
			if v != "" {
				c.Server.BaseURL = v
			}
		},
	},
	{
		key:   "general.data_root",
		value: func(c *config.Config) string { return c.General.DataRoot },
		apply: func(c *config.Config, v string) {
			if v != "" {
				c.General.DataRoot = v
			}
		},
	},
	{
		key:   "general.download_root",
		value: func(c *config.Config) string { return c.General.DownloadRoot },
		apply: func(c *config.Config, v string) {
			if v != "" {
				c.General.DownloadRoot = v
			}
		},
	},
	{
		key:   "download.redirect_action",
		hint:  "open|fetch",
		value: func(c *config.Config) string { return c.Download.RedirectAction },
		apply: func(c *config.Config, v string) {
			v = strings.ToLower(v)
			if v == config.RedirectOpen || v == config.RedirectFetch {
				c.Download.RedirectAction = v
			}
		},
	},
	{
		key:   "network.timeout_seconds",
		hint:  "0 waits forever",
		value: func(c *config.Config) string { return strconv.Itoa(c.Network.TimeoutSeconds) },
		apply: func(c *config.Config, v string) {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.Network.TimeoutSeconds = n
			}
		},
	},
	{
		key:   "network.tls_verify",
		hint:  "true|false",
		value: func(c *config.Config) string { return strconv.FormatBool(c.Network.TLSVerify) },
		apply: func(c *config.Config, v string) {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Network.TLSVerify = b
			}
		},
	},
	{
		key:   "ui.feedback_ms",
		value: func(c *config.Config) string { return strconv.Itoa(c.UI.FeedbackMS) },
		apply: func(c *config.Config, v string) {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.UI.FeedbackMS = n
			}
		},
	},
}

// Wizard collects the handful of settings most users change. Everything
// else keeps the value from the defaults it was started with.
type Wizard struct {
	base   *config.Config
	inputs []textinput.Model
	focus  int
	done   bool
	out    *config.Config
}

func New(defaults *config.Config) *Wizard {
	if defaults == nil {
		defaults = config.Default()
	}
	w := &Wizard{base: defaults}
	for _, f := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = f.key
		if f.hint != "" {
			ti.Placeholder += " (" + f.hint + ")"
		}
		ti.SetValue(f.value(defaults))
		ti.CharLimit = 256
		w.inputs = append(w.inputs, ti)
	}
	w.inputs[0].Focus()
	return w
}

func (w *Wizard) Init() tea.Cmd { return textinput.Blink }

func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c", "esc":
			w.done = true
			return w, tea.Quit
		case "enter":
			if w.focus == len(w.inputs)-1 {
				w.done = true
				w.out = w.buildConfig()
				return w, tea.Quit
			}
			w.move(1)
			return w, nil
		case "tab", "down":
			w.move(1)
			return w, nil
		case "shift+tab", "up":
			w.move(-1)
			return w, nil
		}
	}
	var cmd tea.Cmd
	w.inputs[w.focus], cmd = w.inputs[w.focus].Update(msg)
	return w, cmd
}

func (w *Wizard) move(d int) {
	w.focus += d
	if w.focus < 0 {
		w.focus = 0
	}
	if w.focus >= len(w.inputs) {
		w.focus = len(w.inputs) - 1
	}
	for j := range w.inputs {
		if j == w.focus {
			w.inputs[j].Focus()
		} else {
			w.inputs[j].Blur()
		}
	}
}

func (w *Wizard) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("vidfetch config wizard") + "\n")
	b.WriteString("Tab/Shift-Tab to move, Enter on the last field to save, Esc to abort.\n\n")
	for i, input := range w.inputs {
		marker := " "
		if i == w.focus {
			marker = ">"
		}
		b.WriteString(fmt.Sprintf("%s %-26s %s\n", marker, fields[i].key+":", input.View()))
	}
	if w.done && w.out != nil {
		b.WriteString("\nDone. Saving...\n")
	}
	return b.String()
}

func (w *Wizard) buildConfig() *config.Config {
	o := *w.base
	for i, f := range fields {
		f.apply(&o, strings.TrimSpace(w.inputs[i].Value()))
	}
	return &o
}

// Config returns the result, or nil when the wizard was aborted.
func (w *Wizard) Config() *config.Config { return w.out }
