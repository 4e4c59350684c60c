package source

import (
	"context"
	"time"

	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/payload"
)

const (
	defaultTimeFormat = "15:04"
	defaultDateFormat = "Monday, January 2"
)

// ClockSource publishes the current local time and date. It never fails.
type ClockSource struct {
	name       string
	interval   time.Duration
	jitter     time.Duration
	timeFormat string
	dateFormat string
	now        func() time.Time
}

func NewClockSource(cfg config.SourceConfig) *ClockSource {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	dateFormat := cfg.DateFormat
	if dateFormat == "" {
		dateFormat = defaultDateFormat
	}
	return &ClockSource{
		name:       cfg.Key,
		interval:   cfg.Interval,
		jitter:     cfg.Jitter,
		timeFormat: timeFormat,
		dateFormat: dateFormat,
		now:        time.Now,
	}
}

func (s *ClockSource) Name() string { return s.name }

func (s *ClockSource) Interval() time.Duration { return s.interval }

func (s *ClockSource) Jitter() time.Duration { return s.jitter }

func (s *ClockSource) Fetch(_ context.Context) (*payload.Payload, error) {
	now := s.now()
	p := payload.New(now.Format(s.timeFormat))
	p.Secondary = now.Format(s.dateFormat)
	p.Tertiary = now.Weekday().String()
	p.Raw = now.Format(time.RFC3339)
	return p, nil
}
