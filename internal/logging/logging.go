package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func ParseLevel(s string) Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Logger writes leveled lines either as "LEVEL\tmsg" or as JSON objects.
// Fields attached with With are appended to every line.
type Logger struct {
	min    Level
	json   bool
	out    io.Writer
	mu     *sync.Mutex
	fields map[string]string
}

func New(level string, jsonOut bool) *Logger {
	out := io.Writer(os.Stderr)
	if jsonOut { out = os.Stdout }
	return NewWriter(level, jsonOut, out)
}

// NewWriter builds a logger over an arbitrary writer (tests, log files).
func NewWriter(level string, jsonOut bool, out io.Writer) *Logger {
	if out == nil { out = io.Discard }
	return &Logger{min: ParseLevel(level), json: jsonOut, out: out, mu: &sync.Mutex{}}
}

// NewFile appends to path, creating parent directories. The dashboard uses it
// so log lines never land on the terminal it draws on.
func NewFile(level string, jsonOut bool, path string) (*Logger, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return NewWriter(level, jsonOut, io.Discard), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { return nil, nil, err }
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil { return nil, nil, err }
	return NewWriter(level, jsonOut, f), f, nil
}

// With returns a child logger that carries an extra key=value on every line.
func (l *Logger) With(key, value string) *Logger {
	nf := make(map[string]string, len(l.fields)+1)
	for k, v := range l.fields { nf[k] = v }
	nf[key] = value
	return &Logger{min: l.min, json: l.json, out: l.out, mu: l.mu, fields: nf}
}

func (l *Logger) Enabled(v Level) bool { return v >= l.min }

func (l *Logger) Debugf(format string, a ...any) { l.log(Debug, fmt.Sprintf(format, a...)) }
func (l *Logger) Infof(format string, a ...any)  { l.log(Info, fmt.Sprintf(format, a...)) }
func (l *Logger) Warnf(format string, a ...any)  { l.log(Warn, fmt.Sprintf(format, a...)) }
func (l *Logger) Errorf(format string, a ...any) { l.log(Error, fmt.Sprintf(format, a...)) }

func (l *Logger) log(level Level, msg string) {
	if l == nil || !l.Enabled(level) { return }
	l.mu.Lock()
	defer l.mu.Unlock()
	lvl := levelString(level)
	if l.json {
		payload := map[string]any{
			"ts": time.Now().Format(time.RFC3339Nano),
			"level": lvl,
			"msg": msg,
		}
		for k, v := range l.fields { payload[k] = v }
		_ = json.NewEncoder(l.out).Encode(payload)
		return
	}
	var sb strings.Builder
	for _, k := range sortedKeys(l.fields) {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(l.fields[k])
	}
	fmt.Fprintf(l.out, "%s\t%s%s\n", strings.ToUpper(lvl), msg, sb.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func levelString(l Level) string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}
