// Package flow runs the two user-triggered flows against the video service
// and records their outcomes. It holds no per-invocation state, so calls may
// overlap freely.
package flow

import (
	"context"
	"time"

	"vidfetch/internal/api"
	"vidfetch/internal/deliver"
	clierr "vidfetch/internal/errors"
	"vidfetch/internal/feedback"
	"vidfetch/internal/logging"
	"vidfetch/internal/metrics"
	"vidfetch/internal/state"
)

type Service struct {
	client  *api.Client
	deliver *deliver.Deliverer
	st      *state.DB
	metrics *metrics.Manager
	log     *logging.Logger
}

// New wires a service. st and m may be nil.
func New(client *api.Client, d *deliver.Deliverer, st *state.DB, m *metrics.Manager, log *logging.Logger) *Service {
	return &Service{client: client, deliver: d, st: st, metrics: m, log: log}
}

// FetchVideoInfo describes rawURL and records the query.
func (s *Service) FetchVideoInfo(ctx context.Context, rawURL string) (*api.VideoMetadata, error) {
	md, err := s.client.FetchVideoInfo(ctx, rawURL)
	if clierr.Is(err, clierr.KindUserInput) {
		return nil, err
	}
	row := state.QueryRow{URL: rawURL, Status: state.StatusOK}
	kind := ""
	if err != nil {
		row.Status = state.StatusError
		row.LastError = err.Error()
		kind = clierr.KindOf(err).String()
	} else {
		row.Title = md.Title
		row.Duration = md.Duration.String()
		row.Formats = len(md.Formats)
	}
	s.metrics.IncInfo(kind)
	s.flushMetrics()
	if s.st != nil {
		if rerr := s.st.RecordQuery(row); rerr != nil {
			s.log.Warnf("history: %v", rerr)
		}
	}
	return md, err
}

// Download resolves req and delivers the answer. label is stored with the
// history row.
func (s *Service) Download(ctx context.Context, req api.DownloadRequest, label string) (deliver.Outcome, error) {
	log := s.log.With("format_id", req.FormatID)
	start := time.Now()
	var id int64
	if s.st != nil {
		var err error
		if id, err = s.st.StartDownload(req.URL, req.FormatID, label); err != nil {
			log.Warnf("history: %v", err)
		}
	}

	out, err := s.download(ctx, req)

	s.metrics.ObserveDownloadSeconds(time.Since(start).Seconds())
	if err != nil {
		log.Errorf("download %s: %v", logging.SanitizeURL(req.URL), err)
		s.metrics.IncDownload("error")
	} else {
		s.metrics.IncDownload("started")
		s.metrics.AddBytes(out.Bytes)
	}
	s.flushMetrics()
	if s.st != nil && id > 0 {
		status, target, msg := state.StatusOK, out.Path, ""
		if target == "" {
			target = out.URL
		}
		if err != nil {
			status, msg = state.StatusError, err.Error()
		}
		if ferr := s.st.FinishDownload(id, status, out.Action, target, out.Bytes, msg); ferr != nil {
			log.Warnf("history: %v", ferr)
		}
	}
	return out, err
}

func (s *Service) download(ctx context.Context, req api.DownloadRequest) (deliver.Outcome, error) {
	res, err := s.client.Download(ctx, req)
	if err != nil {
		return deliver.Outcome{}, err
	}
	return s.deliver.Deliver(ctx, res)
}

// TriggerDownload runs one download against row's button: Preparing, then
// Started or Errored, then back to the original after delay.
func (s *Service) TriggerDownload(ctx context.Context, row *feedback.Row, delay time.Duration, after feedback.AfterFunc) (deliver.Outcome, error) {
	var out deliver.Outcome
	err := feedback.Run(row.Button, delay, after, func() error {
		var err error
		out, err = s.Download(ctx, row.Request(), row.Format.Label())
		return err
	})
	return out, err
}

// History returns recent download rows, or nothing when history is off.
func (s *Service) History(limit int) ([]state.DownloadRow, error) {
	if s.st == nil {
		return nil, nil
	}
	return s.st.ListDownloads(limit)
}

func (s *Service) flushMetrics() {
	if err := s.metrics.Write(); err != nil {
		s.log.Warnf("metrics: %v", err)
	}
}
