package source

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/bassista/go_mirror/internal/config"
)

func TestStaticSource_Fetch(t *testing.T) {
	s := NewStaticSource(config.SourceConfig{
		Key:       "motd",
		Type:      "static",
		Interval:  time.Hour,
		Value:     "Welcome home",
		Secondary: "have a nice day",
		Tertiary:  []string{"one", "two"},
	})

	p, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Value != "Welcome home" {
		t.Errorf("expected configured value, got %v", p.Value)
	}
	if p.Secondary != "have a nice day" {
		t.Errorf("expected configured secondary, got %v", p.Secondary)
	}
	if !reflect.DeepEqual(p.Tertiary, []string{"one", "two"}) {
		t.Errorf("expected configured tertiary, got %v", p.Tertiary)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStaticSource_FetchReturnsFreshPayloads(t *testing.T) {
	s := NewStaticSource(config.SourceConfig{
		Key:      "motd",
		Type:     "static",
		Interval: time.Hour,
		Value:    42,
	})

	first, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first == second {
		t.Error("expected a new payload per fetch")
	}
	if second.CreatedAt.Before(first.CreatedAt) {
		t.Error("expected CreatedAt to advance between fetches")
	}
}
