package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/ridecare/ridecare/internal/core/signal"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		start  string
		fps    float64
		frame  int
		offset time.Duration
		id     string
	}{
		{name: "epoch start", path: "abc_1000", start: "1970-01-01T00:00:00Z", fps: 30, frame: 30, offset: time.Second, id: "abc_1000"},
		{name: "with extension", path: "/data/snap/Training-uuid_1500.jpeg", start: "0", fps: 10, frame: 15, offset: 1500 * time.Millisecond, id: "Training-uuid_1500"},
		{name: "before start", path: "x_1000", start: "1970-01-01 00:00:03", fps: 15, frame: 30, offset: -2 * time.Second, id: "x_1000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Parse([]string{tc.path}, tc.start, tc.fps)
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != 1 {
				t.Fatalf("expected one snapshot, got %d", len(out))
			}
			s := out[0]
			if s.Frame != tc.frame {
				t.Errorf("frame = %d, want %d", s.Frame, tc.frame)
			}
			if s.Offset() != tc.offset {
				t.Errorf("offset = %v, want %v", s.Offset(), tc.offset)
			}
			if !s.VideoTime.Equal(signal.Baseline.Add(tc.offset)) {
				t.Errorf("video time = %v", s.VideoTime)
			}
			if s.ID() != tc.id {
				t.Errorf("id = %q, want %q", s.ID(), tc.id)
			}
			if !s.Enabled {
				t.Error("snapshots start enabled")
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, p := range []string{"nounderscore", "abc_notanumber.jpg", ""} {
		_, err := Parse([]string{"ok_1", p}, "0", 15)
		if !errors.Is(err, ErrMalformedPath) {
			t.Errorf("path %q: expected ErrMalformedPath, got %v", p, err)
		}
	}
	if _, err := Parse([]string{"a_1"}, "yesterday", 15); !errors.Is(err, ErrMalformedStart) {
		t.Fatalf("expected ErrMalformedStart, got %v", err)
	}
}

func TestParseZeroFPS(t *testing.T) {
	out, err := Parse([]string{"a_5000"}, "0", 0)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Frame != 0 {
		t.Fatalf("frame = %d", out[0].Frame)
	}
}
