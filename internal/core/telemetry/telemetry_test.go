package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ridecare/ridecare/internal/core/signal"
	"github.com/ridecare/ridecare/pkg/rideapi"
)

type fakeAPI struct {
	data  map[string]string
	calls []string
}

func (f *fakeAPI) GetVideoSignals(_ context.Context, id string) (*rideapi.VideoSignals, error) {
	f.calls = append(f.calls, id)
	raw, ok := f.data[id]
	if !ok {
		return nil, errors.New("not found")
	}
	var out rideapi.VideoSignals
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func TestFallbackMerge(t *testing.T) {
	api := &fakeAPI{data: map[string]string{
		"hq": `{"message":{"CHC":{"00:00:01.000000":{"CameraViewBlocked":1}}}}`,
		"lq": `{"message":{"MDFParser":{"00:00:02.500000":{"speed":"12.5"}}}}`,
	}}
	root, err := NewFetcher(api).GetSignals(context.Background(), "hq", "lq")
	if err != nil {
		t.Fatal(err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("calls %v", api.calls)
	}
	mdf, ok := root.Group("MDFParser")
	if !ok {
		t.Fatal("fallback dataset not merged")
	}
	speed, _ := mdf.Signal("speed")
	if speed.Values[0].Value != 12.5 || !speed.Values[0].Timestamp.Equal(signal.Baseline.Add(2500*time.Millisecond)) {
		t.Fatalf("unexpected point %+v", speed.Values[0])
	}
	if root.Groups[0].Name != "CHC" {
		t.Fatal("primary dataset order changed")
	}
}

func TestNoFallbackWhenMDFPresent(t *testing.T) {
	api := &fakeAPI{data: map[string]string{
		"hq": `{"message":{"MDF":{"00:00:01":{"x":true}}}}`,
	}}
	root, err := NewFetcher(api).GetSignals(context.Background(), "hq", "lq")
	if err != nil {
		t.Fatal(err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("unexpected fallback fetch %v", api.calls)
	}
	x, _ := root.Groups[0].Signal("x")
	if x.Values[0].Value != 1 {
		t.Fatalf("bool must parse as 1, got %v", x.Values[0].Value)
	}
}

func TestFallbackFailureKeepsPrimary(t *testing.T) {
	api := &fakeAPI{data: map[string]string{
		"hq": `{"message":{"CHC":{"00:00:01":{"a":1}}}}`,
	}}
	root, err := NewFetcher(api).GetSignals(context.Background(), "hq", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Groups) != 1 {
		t.Fatalf("groups %d", len(root.Groups))
	}
}

func TestPrimaryFailure(t *testing.T) {
	api := &fakeAPI{}
	if _, err := NewFetcher(api).GetSignals(context.Background(), "hq", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]time.Duration{
		"00:00:00":        0,
		"01:02:03.000123": time.Hour + 2*time.Minute + 3*time.Second + 123*time.Microsecond,
		"00:00:01,5":      1500 * time.Millisecond,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if d := got.Sub(signal.Baseline); d != want {
			t.Errorf("%s: got %v, want %v", in, d, want)
		}
	}
	for _, bad := range []string{"", "12", "aa:bb:cc", "00:00:01.xx"} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestParseSkipsNonNumeric(t *testing.T) {
	var v rideapi.VideoSignals
	if err := json.Unmarshal([]byte(`{"message":{"CHC":{"00:00:01":{"a":"n/a","b":{"x":1},"c":"3"}}}}`), &v); err != nil {
		t.Fatal(err)
	}
	root, err := Parse(&v)
	if err != nil {
		t.Fatal(err)
	}
	chc := root.Groups[0]
	if len(chc.Signals) != 1 || chc.Signals[0].Name != "c" {
		t.Fatalf("signals %+v", chc.Signals)
	}
}
