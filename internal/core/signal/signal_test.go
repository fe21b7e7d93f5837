package signal

import (
	"testing"
	"time"
)

func at(sec float64) time.Time {
	return Baseline.Add(time.Duration(sec * float64(time.Second)))
}

func TestAppendCreatesSignal(t *testing.T) {
	g := NewGroup("root")
	AppendTo(g, "MDF", "speed", Point{Timestamp: at(1), Value: 3})
	AppendTo(g, "MDF", "speed", Point{Timestamp: at(0), Value: 4})

	mdf, ok := g.Group("MDF")
	if !ok {
		t.Fatal("group MDF not created")
	}
	if len(mdf.Signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(mdf.Signals))
	}
	s := mdf.Signals[0]
	if !s.Enabled {
		t.Fatal("new signals must be enabled")
	}
	// 不排序
	if s.Values[0].Value != 3 || s.Values[1].Value != 4 {
		t.Fatalf("values reordered: %+v", s.Values)
	}
}

func TestBoundsEmpty(t *testing.T) {
	g := NewGroup("root")
	g.Child("empty").Child("deeper")
	if _, ok := g.Bounds(); ok {
		t.Fatal("empty tree must have no bounds")
	}
}

func TestBoundsRecursive(t *testing.T) {
	g := NewGroup("root")
	g.Append("a", Point{Timestamp: at(5)})
	g.Child("x").Child("y").Append("b", Point{Timestamp: at(-2)})
	g.Child("z").Append("c", Point{Timestamp: at(30)})
	g.Child("z").Append("c", Point{Timestamp: at(12)})

	b, ok := g.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if !b.Min.Equal(at(-2)) || !b.Max.Equal(at(30)) {
		t.Fatalf("unexpected bounds %v", b)
	}
	if b.Duration() != 32*time.Second {
		t.Fatalf("duration %v", b.Duration())
	}
}

func TestSelection(t *testing.T) {
	g := NewGroup("root")
	AppendTo(g, "CHC", "CameraViewBlocked", Point{Timestamp: at(0)})
	AppendTo(g, "CHC", "other", Point{Timestamp: at(0)})
	AppendTo(g, "MDF", "speed", Point{Timestamp: at(0)})

	g.ApplyDefaults(DefaultVisibleSignals)
	chc, _ := g.Group("CHC")
	mdf, _ := g.Group("MDF")
	if chc.Selection() != SelectionSome {
		t.Fatalf("CHC selection %v", chc.Selection())
	}
	if mdf.Selection() != SelectionNone {
		t.Fatalf("MDF selection %v", mdf.Selection())
	}

	if err := g.SetEnabled("MDF", "", true); err != nil {
		t.Fatal(err)
	}
	if mdf.Selection() != SelectionAll {
		t.Fatalf("MDF selection %v", mdf.Selection())
	}
	if err := g.SetEnabled("MDF", "missing", true); err == nil {
		t.Fatal("expected error for unknown signal")
	}

	g.SelectAll(true)
	if g.Selection() != SelectionAll {
		t.Fatalf("root selection %v", g.Selection())
	}
}

func TestWalkTopLevelName(t *testing.T) {
	g := NewGroup("root")
	g.Append("own", Point{})
	g.Child("MDF").Child("nested").Append("deep", Point{})

	got := map[string]string{}
	g.Walk(func(top string, s *Signal) { got[s.Name] = top })
	if got["own"] != "root" || got["deep"] != "MDF" {
		t.Fatalf("unexpected top-level names %v", got)
	}
	if g.Len() != 2 {
		t.Fatalf("Len() = %d", g.Len())
	}
}
