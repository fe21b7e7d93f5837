package rideapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewEngine().SetConfig(Config{URL: srv.URL + "/"})
}

func TestGetVideoSignalsKeepsOrder(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getVideoSignals/rec%2F1" && r.URL.RawPath != "/getVideoSignals/rec%2F1" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"message":{"CHC":{"00:00:02.000000":{"b":1,"a":2},"00:00:01.000000":{"a":3}},"MDF":{}}}`)
	})

	out, err := e.GetVideoSignals(context.Background(), "rec/1")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for p := out.Message.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	if len(names) != 2 || names[0] != "CHC" || names[1] != "MDF" {
		t.Fatalf("datasets %v", names)
	}
	chc, ok := out.Dataset("CHC")
	if !ok {
		t.Fatal("CHC missing")
	}
	first := chc.Oldest()
	if first.Key != "00:00:02.000000" {
		t.Fatalf("timestamps reordered: %s", first.Key)
	}
	if first.Value.Oldest().Key != "b" {
		t.Fatalf("signals reordered: %s", first.Value.Oldest().Key)
	}
}

func TestGetRecording(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":{"_id":"r1","time":"2021-03-01T10:00:00Z","snapshots_paths":["a_1.jpeg"],"lq_video":{"id":"lq1"}}}`)
	})
	rec, err := e.GetRecording(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "r1" || rec.LQVideo == nil || rec.LQVideo.ID != "lq1" || len(rec.SnapshotsPaths) != 1 {
		t.Fatalf("unexpected recording %+v", rec)
	}
}

func TestStatusError(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	_, err := e.GetVideoURL(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
}

func TestSetDescription(t *testing.T) {
	var got map[string]string
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/videoDescription/r1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})
	if err := e.SetDescription(context.Background(), "r1", "fight in the back seat"); err != nil {
		t.Fatal(err)
	}
	if got["description"] != "fight in the back seat" {
		t.Fatalf("body %v", got)
	}
}
