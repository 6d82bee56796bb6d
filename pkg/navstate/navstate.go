// Package navstate implements the Zoom/Pan/Tilt navigation tuple that
// constrains both local-index retrieval scope and fusion ranking style.
package navstate

import "time"

// Zoom selects candidate granularity and the per-zoom result cap applied by
// the local index.
type Zoom string

const (
	ZoomMicro     Zoom = "micro"
	ZoomEntity    Zoom = "entity"
	ZoomUnit      Zoom = "unit"
	ZoomText      Zoom = "text"
	ZoomCommunity Zoom = "community"
	ZoomCorpus    Zoom = "corpus"
)

func (z Zoom) valid() bool {
	switch z {
	case ZoomMicro, ZoomEntity, ZoomUnit, ZoomText, ZoomCommunity, ZoomCorpus:
		return true
	}
	return false
}

// ResultCap returns the per-zoom truncation limit (micro shares entity's
// cap).
func (z Zoom) ResultCap() int {
	switch z {
	case ZoomEntity, ZoomMicro:
		return 3
	case ZoomUnit:
		return 5
	case ZoomText:
		return 6
	case ZoomCommunity:
		return 8
	case ZoomCorpus:
		return 10
	default:
		return 3
	}
}

// Tilt selects ranking style.
type Tilt string

const (
	TiltKeywords  Tilt = "keywords"
	TiltEmbedding Tilt = "embedding"
	TiltGraph     Tilt = "graph"
	TiltTemporal  Tilt = "temporal"
)

func (t Tilt) valid() bool {
	switch t {
	case TiltKeywords, TiltEmbedding, TiltGraph, TiltTemporal:
		return true
	}
	return false
}

// Temporal bounds a pan filter's time window. Both fields are optional;
// Normalize drops the bound entirely if Start is after End rather than
// producing an unsatisfiable range.
type Temporal struct {
	Start *time.Time
	End   *time.Time
}

// Normalize enforces start <= end, dropping both bounds if violated rather
// than producing an unsatisfiable range.
func (t Temporal) Normalize() Temporal {
	if t.Start != nil && t.End != nil && t.Start.After(*t.End) {
		return Temporal{}
	}
	return t
}

// Pan is the filter object applied alongside Zoom/Tilt. Any subset may be
// empty.
type Pan struct {
	Domains  []string
	Keywords []string
	Entities []string
	Temporal Temporal
}

// Warning carries a non-fatal enum-fallback notice.
type Warning struct {
	Field       string
	Value       string
	UsedInstead string
}

// State is the full Zoom/Pan/Tilt navigation tuple.
type State struct {
	Zoom Zoom
	Pan  Pan
	Tilt Tilt
}

// Defaults returns the documented default state: {entity, {}, keywords}.
func Defaults() State {
	return State{Zoom: ZoomEntity, Pan: Pan{}, Tilt: TiltKeywords}
}

// Validate checks s's Zoom/Tilt enums, coerces scalar pan fields (handled
// by the caller before construction — Go's typed Pan already requires
// slices), and normalizes temporal bounds. It returns the corrected state
// and any enum-fallback warnings.
func Validate(s State) (State, []Warning) {
	var warnings []Warning

	if !s.Zoom.valid() {
		warnings = append(warnings, Warning{Field: "zoom", Value: string(s.Zoom), UsedInstead: string(ZoomEntity)})
		s.Zoom = ZoomEntity
	}
	if !s.Tilt.valid() {
		warnings = append(warnings, Warning{Field: "tilt", Value: string(s.Tilt), UsedInstead: string(TiltKeywords)})
		s.Tilt = TiltKeywords
	}
	s.Pan.Temporal = s.Pan.Temporal.Normalize()

	return s, warnings
}

// CoerceScalarPan builds a Pan from fields that may have arrived as a
// single scalar string rather than a list — the wire-level input this
// package's callers see before they reach the typed State.
func CoerceScalarPan(domains, keywords, entities any, temporal Temporal) Pan {
	return Pan{
		Domains:  toStringSlice(domains),
		Keywords: toStringSlice(keywords),
		Entities: toStringSlice(entities),
		Temporal: temporal,
	}
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	default:
		return nil
	}
}
