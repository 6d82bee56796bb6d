package navstate

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Zoom != ZoomEntity || d.Tilt != TiltKeywords {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestValidateFallsBackOnUnknownEnum(t *testing.T) {
	s := State{Zoom: "bogus", Tilt: "bogus"}
	got, warnings := Validate(s)
	if got.Zoom != ZoomEntity || got.Tilt != TiltKeywords {
		t.Fatalf("expected fallback to defaults, got %+v", got)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
}

func TestValidateAcceptsKnownEnums(t *testing.T) {
	s := State{Zoom: ZoomCorpus, Tilt: TiltGraph}
	got, warnings := Validate(s)
	if got.Zoom != ZoomCorpus || got.Tilt != TiltGraph {
		t.Fatalf("expected enums preserved, got %+v", got)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestTemporalNormalizeDropsInvertedRange(t *testing.T) {
	start := time.Now()
	end := start.Add(-time.Hour)
	temp := Temporal{Start: &start, End: &end}
	norm := temp.Normalize()
	if norm.Start != nil || norm.End != nil {
		t.Fatalf("expected inverted range dropped, got %+v", norm)
	}
}

func TestTemporalNormalizeKeepsValidRange(t *testing.T) {
	start := time.Now()
	end := start.Add(time.Hour)
	temp := Temporal{Start: &start, End: &end}
	norm := temp.Normalize()
	if norm.Start == nil || norm.End == nil {
		t.Fatalf("expected valid range preserved, got %+v", norm)
	}
}

func TestResultCapPerZoom(t *testing.T) {
	cases := map[Zoom]int{
		ZoomEntity:    3,
		ZoomUnit:      5,
		ZoomText:      6,
		ZoomCommunity: 8,
		ZoomCorpus:    10,
	}
	for z, want := range cases {
		if got := z.ResultCap(); got != want {
			t.Fatalf("%s: expected cap %d, got %d", z, want, got)
		}
	}
}

func TestCoerceScalarPan(t *testing.T) {
	p := CoerceScalarPan("user:alice", []string{"a", "b"}, nil, Temporal{})
	if len(p.Domains) != 1 || p.Domains[0] != "user:alice" {
		t.Fatalf("expected scalar coerced to single-element slice, got %v", p.Domains)
	}
	if len(p.Keywords) != 2 {
		t.Fatalf("expected slice passed through, got %v", p.Keywords)
	}
	if p.Entities != nil {
		t.Fatalf("expected nil passthrough, got %v", p.Entities)
	}
}
