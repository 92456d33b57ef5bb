package feedback

import (
	"vidfetch/internal/api"
	clierr "vidfetch/internal/errors"
)

// DownloadLabel is the idle text of every row button.
const DownloadLabel = "Download"

// Row is one rendered format option bound to its download trigger.
type Row struct {
	SourceURL string
	Format    api.FormatOption
	Button    *Button
}

// Request is the download request this row's trigger sends.
func (r *Row) Request() api.DownloadRequest {
	return api.DownloadRequest{URL: r.SourceURL, FormatID: r.Format.FormatID}
}

// Registry keeps rows in response order and addressable by format_id.
type Registry struct {
	order []string
	rows  map[string]*Row
}

// NewRegistry registers one row per format, each with its own button.
func NewRegistry(sourceURL string, formats []api.FormatOption) *Registry {
	r := &Registry{rows: make(map[string]*Row, len(formats))}
	for _, f := range formats {
		if _, dup := r.rows[f.FormatID]; dup {
			continue
		}
		r.order = append(r.order, f.FormatID)
		r.rows[f.FormatID] = &Row{SourceURL: sourceURL, Format: f, Button: NewButton(f.FormatID, DownloadLabel)}
	}
	return r
}

func (r *Registry) Get(formatID string) (*Row, bool) {
	if r == nil {
		return nil, false
	}
	row, ok := r.rows[formatID]
	return row, ok
}

// Rows returns the rows in response order.
func (r *Registry) Rows() []*Row {
	if r == nil {
		return nil
	}
	out := make([]*Row, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rows[id])
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Panel is the loading indicator plus the single displayed VideoMetadata.
// Loading and a displayed result are mutually exclusive. When queries
// overlap, only the most recent one is allowed to end the loading state and
// fill the panel.
type Panel struct {
	seq      uint64
	loading  bool
	source   string
	meta     *api.VideoMetadata
	registry *Registry
	errMsg   string
}

// BeginQuery shows the loading indicator and drops whatever was displayed.
// The returned token identifies this query to EndQuery.
func (p *Panel) BeginQuery() uint64 {
	p.seq++
	p.loading = true
	p.meta = nil
	p.registry = nil
	p.source = ""
	p.errMsg = ""
	return p.seq
}

// EndQuery hides the loading indicator and shows md, or records the user
// message for err. Results from superseded queries are dropped. It reports
// whether the result was applied.
func (p *Panel) EndQuery(token uint64, sourceURL string, md *api.VideoMetadata, err error) bool {
	if token != p.seq {
		return false
	}
	p.loading = false
	if err != nil || md == nil {
		p.errMsg = clierr.UserMessage(err)
		return true
	}
	p.meta = md
	p.source = sourceURL
	p.registry = NewRegistry(sourceURL, md.Formats)
	return true
}

// Reject records an input error without starting a query.
func (p *Panel) Reject(err error) {
	p.errMsg = clierr.UserMessage(err)
}

func (p *Panel) Loading() bool                { return p.loading }
func (p *Panel) Metadata() *api.VideoMetadata { return p.meta }
func (p *Panel) Registry() *Registry          { return p.registry }
func (p *Panel) Source() string               { return p.source }
func (p *Panel) Err() string                  { return p.errMsg }
func (p *Panel) ClearErr()                    { p.errMsg = "" }
