package fusion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/adaptive"
	"github.com/kestrel-labs/vsomcore/pkg/enhancement"
	"github.com/kestrel-labs/vsomcore/pkg/localindex"
	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
	"github.com/kestrel-labs/vsomcore/pkg/store"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

type stubSource struct {
	name vsomcore.BrokerSource
	fn   func(ctx context.Context, q string) (enhancement.Answer, error)
}

func (s *stubSource) Name() vsomcore.BrokerSource        { return s.name }
func (s *stubSource) Reliability() enhancement.Reliability { return enhancement.ReliabilityFreeText }
func (s *stubSource) Enhance(ctx context.Context, q string) (enhancement.Answer, error) {
	return s.fn(ctx, q)
}

func newPopulatedIndex(n int) *localindex.Index {
	idx := localindex.New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	for i := 0; i < n; i++ {
		v := []float64{1 - float64(i)*0.05, float64(i) * 0.05}
		idx.Upsert(record.NewRecord(idFor(i), "", "some content", v, now, nil, 0.5, nil))
	}
	return idx
}

func idFor(i int) string {
	return string(rune('a' + i))
}

func TestMergeNoContextWhenBothBranchesEmpty(t *testing.T) {
	idx := localindex.New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	broker := enhancement.NewBroker()
	broker.MinInterval = 0

	res, err := Merge(context.Background(), idx, broker, "query", []float64{1, 0}, navstate.Defaults(), Config{}, nil, time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Strategy != StrategyNoContext {
		t.Fatalf("expected no_context strategy, got %s", res.Strategy)
	}
	if res.PersonalWeight != 0 {
		t.Fatalf("expected personal weight 0, got %v", res.PersonalWeight)
	}
}

func TestMergeLocalOnlyWhenEnhancementFails(t *testing.T) {
	idx := newPopulatedIndex(5)
	broker := enhancement.NewBroker()
	broker.MinInterval = 0
	broker.Register(&stubSource{name: "x", fn: func(ctx context.Context, q string) (enhancement.Answer, error) {
		return enhancement.Answer{}, errors.New("down")
	}})

	res, err := Merge(context.Background(), idx, broker, "query", []float64{1, 0}, navstate.Defaults(), Config{TargetResults: 3}, nil, time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Strategy != StrategyLocalOnly {
		t.Fatalf("expected local_only strategy, got %s", res.Strategy)
	}
	if res.PersonalWeight != 1 {
		t.Fatalf("expected personal weight 1, got %v", res.PersonalWeight)
	}
	if len(res.Personal) == 0 {
		t.Fatal("expected some personal results")
	}
}

func TestMergeEnhancementOnlyWhenLocalEmpty(t *testing.T) {
	idx := localindex.New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	broker := enhancement.NewBroker()
	broker.MinInterval = 0
	broker.Register(&stubSource{name: "x", fn: func(ctx context.Context, q string) (enhancement.Answer, error) {
		return enhancement.Answer{Text: "answer", Confidence: 0.8}, nil
	}})

	res, err := Merge(context.Background(), idx, broker, "query", []float64{1, 0}, navstate.Defaults(), Config{}, nil, time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Strategy != StrategyEnhancementOnly {
		t.Fatalf("expected enhancement_only strategy, got %s", res.Strategy)
	}
	if res.PersonalWeight != 0 {
		t.Fatalf("expected personal weight 0, got %v", res.PersonalWeight)
	}
	if res.Enhancement == nil || !res.Enhancement.Success {
		t.Fatal("expected a successful enhancement envelope")
	}
}

func TestMergeBothBranchesProducePersonalPrimaryAtEntityZoom(t *testing.T) {
	idx := newPopulatedIndex(5)
	broker := enhancement.NewBroker()
	broker.MinInterval = 0
	broker.Register(&stubSource{name: "x", fn: func(ctx context.Context, q string) (enhancement.Answer, error) {
		return enhancement.Answer{Text: "answer", Confidence: 0.6}, nil
	}})

	state := navstate.State{Zoom: navstate.ZoomEntity, Pan: navstate.Pan{}, Tilt: navstate.TiltKeywords}
	res, err := Merge(context.Background(), idx, broker, "query", []float64{1, 0}, state, Config{TargetResults: 3}, nil, time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Strategy != StrategyPersonalPrimary {
		t.Fatalf("expected personal_primary at entity zoom, got %s", res.Strategy)
	}
	if res.PersonalWeight <= 0.5 {
		t.Fatalf("expected personal_primary to weight personal > 0.5, got %v", res.PersonalWeight)
	}
	if len(res.Personal) > 3 {
		t.Fatalf("expected at most top-3 personal results, got %d", len(res.Personal))
	}
}

func TestMergeBothBranchesProduceEnhancementPrimaryAtCorpusZoom(t *testing.T) {
	idx := newPopulatedIndex(5)
	broker := enhancement.NewBroker()
	broker.MinInterval = 0
	broker.Register(&stubSource{name: "x", fn: func(ctx context.Context, q string) (enhancement.Answer, error) {
		return enhancement.Answer{Text: "answer", Confidence: 0.9}, nil
	}})

	state := navstate.State{Zoom: navstate.ZoomCorpus, Pan: navstate.Pan{}, Tilt: navstate.TiltKeywords}
	res, err := Merge(context.Background(), idx, broker, "query", []float64{1, 0}, state, Config{TargetResults: 3}, nil, time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Strategy != StrategyEnhancementPrimary {
		t.Fatalf("expected enhancement_primary at corpus zoom, got %s", res.Strategy)
	}
	if res.PersonalWeight >= 0.5 {
		t.Fatalf("expected enhancement_primary to weight personal < 0.5, got %v", res.PersonalWeight)
	}
}

func TestMergeWithNilBrokerActsLikeLocalOnly(t *testing.T) {
	idx := newPopulatedIndex(3)
	res, err := Merge(context.Background(), idx, nil, "query", []float64{1, 0}, navstate.Defaults(), Config{TargetResults: 2}, nil, time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Strategy != StrategyLocalOnly {
		t.Fatalf("expected local_only with a nil broker, got %s", res.Strategy)
	}
}

func TestAdaptiveConfigDefaultsPropagateIntoTargetResults(t *testing.T) {
	cfg := Config{AdaptiveCfg: adaptive.Config{TargetResults: 7}}.Resolve()
	if cfg.TargetResults != 7 {
		t.Fatalf("expected TargetResults to inherit from AdaptiveCfg, got %d", cfg.TargetResults)
	}
}
