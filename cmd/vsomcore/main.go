// Command vsomcore is the CLI entry point for the VSOM engine and hybrid
// retrieval core: build and train a self-organizing map over a corpus of
// embeddings, then run one-shot fusion queries against it.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/vsomcore/pkg/adaptive"
	"github.com/kestrel-labs/vsomcore/pkg/config"
	"github.com/kestrel-labs/vsomcore/pkg/convert"
	"github.com/kestrel-labs/vsomcore/pkg/embed"
	"github.com/kestrel-labs/vsomcore/pkg/enhancement"
	"github.com/kestrel-labs/vsomcore/pkg/fusion"
	"github.com/kestrel-labs/vsomcore/pkg/localindex"
	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
	"github.com/kestrel-labs/vsomcore/pkg/relevance"
	"github.com/kestrel-labs/vsomcore/pkg/som"
	"github.com/kestrel-labs/vsomcore/pkg/store"
	"github.com/kestrel-labs/vsomcore/pkg/topology"
	"github.com/kestrel-labs/vsomcore/pkg/trainer"
	"github.com/kestrel-labs/vsomcore/pkg/vsom"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vsomcore",
		Short: "VSOM engine and hybrid retrieval core",
		Long: `vsomcore clusters embeddings onto a 2-D topological map and serves
hybrid (local + external) retrieval queries over the same corpus.

Features:
  • Batch self-organizing map training with configurable topology
  • Zoom/Pan/Tilt scoped local search with adaptive multi-pass widening
  • Concurrent local/external fusion with source-attributed results`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vsomcore v%s\n", version)
		},
	})

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newQueryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
	}
	var path string
	cmd.Flags().StringVar(&path, "config", "", "Path to a YAML config file (defaults applied for anything it omits)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadFromEnvOrFile(path)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	return cmd
}

// corpusEntry is one line of a JSONL corpus file consumed by `train --corpus`
// and `query --corpus`.
type corpusEntry struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Content    string            `json:"content"`
	Embedding  []float64         `json:"embedding"`
	Domains    []string          `json:"domains"`
	Importance float64           `json:"importance"`
	Metadata   map[string]string `json:"metadata"`
}

func readCorpus(path string) ([]corpusEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	var entries []corpusEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e corpusEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse corpus line: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return entries, nil
}

func newTrainCmd() *cobra.Command {
	var (
		corpusPath    string
		width, height int
		shape, bound  string
		metric        string
		iterations    int
		seed          int64
		outPath       string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build and train a self-organizing map over a JSONL embedding corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readCorpus(corpusPath)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("train: corpus %s has no entries", corpusPath)
			}
			dim := len(entries[0].Embedding)

			logger := log.New(os.Stderr, "vsomcore: ", log.LstdFlags)
			engine := vsom.New(vsom.DefaultLimits(), logger)
			err = engine.Create(vsom.CreateConfig{
				Width: width, Height: height, Dim: dim,
				Shape:         topology.Shape(shape),
				Boundary:      topology.Boundary(bound),
				Metric:        vector.Metric(metric),
				MaxIterations: iterations,
			})
			if err != nil {
				return fmt.Errorf("train: create: %w", err)
			}

			vsomEntries := make([]vsom.Entry, len(entries))
			for i, e := range entries {
				vsomEntries[i] = vsom.Entry{ID: e.ID, Embedding: e.Embedding, Label: e.Label}
			}
			loaded, skipped, err := engine.Load(vsomEntries)
			if err != nil {
				return fmt.Errorf("train: load: %w", err)
			}
			fmt.Fprintf(os.Stderr, "loaded %d entries (%d skipped for dimension mismatch)\n", loaded, skipped)

			result, err := engine.Train(vsom.TrainOpts{
				Config: trainer.Config{
					TotalIterations: iterations,
					Seed:            seed,
				},
				InitMethod: som.InitRandom,
				InitSeed:   seed,
				OnProgress: func(p trainer.Progress) {
					if p.Iteration%50 == 0 {
						fmt.Fprintf(os.Stderr, "iter=%d alpha=%.4f radius=%.4f qe=%.4f\n", p.Iteration, p.Alpha, p.Radius, p.QE)
					}
				},
			})
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}
			fmt.Fprintf(os.Stderr, "trained %d iterations (converged=%v) final QE=%.4f\n", result.IterationsRun, result.Converged, result.FinalQE)

			exported, err := engine.Export(0.8, 2)
			if err != nil {
				return fmt.Errorf("train: export: %w", err)
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("train: create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			for _, rec := range exported {
				if err := enc.Encode(rec); err != nil {
					return fmt.Errorf("train: encode export: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "Path to a JSONL corpus file (required)")
	cmd.Flags().IntVar(&width, "width", 10, "Map width")
	cmd.Flags().IntVar(&height, "height", 10, "Map height")
	cmd.Flags().StringVar(&shape, "shape", string(topology.Rectangular), "Grid shape: rectangular or hexagonal")
	cmd.Flags().StringVar(&bound, "boundary", string(topology.Bounded), "Grid boundary: bounded or toroidal")
	cmd.Flags().StringVar(&metric, "metric", string(vector.MetricCosine), "Distance metric: cosine or euclidean")
	cmd.Flags().IntVar(&iterations, "iterations", 1000, "Total training iterations")
	cmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed for weight init and sample order")
	cmd.Flags().StringVar(&outPath, "out", "", "Output path for the export (defaults to stdout)")
	cmd.MarkFlagRequired("corpus")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		corpusPath string
		configPath string
		queryText  string
		zoom       string
		domains    []string
		keywords   []string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one-shot hybrid retrieval (local + external) over a corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadFromEnvOrFile(configPath)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("query: %w", err)
			}

			var backend interface {
				store.EmbeddingIndex
				store.RecordStore
			}
			switch cfg.Storage.Backend {
			case "badger":
				bs, err := store.NewBadgerStore(store.BadgerOptions{DataDir: cfg.Storage.DataDir, InMemory: cfg.Storage.InMemory})
				if err != nil {
					return fmt.Errorf("query: open badger store: %w", err)
				}
				defer bs.Close()
				backend = bs
			default:
				backend = memoryBackend{store.NewMemoryIndex(), store.NewMemoryRecordStore()}
			}

			idx := localindex.New(backend, backend)
			entries, err := readCorpus(corpusPath)
			if err != nil {
				return err
			}
			now := time.Now()
			for _, e := range entries {
				recDomains := make([]record.Domain, len(e.Domains))
				for i, d := range e.Domains {
					recDomains[i] = record.Domain(d)
				}
				r := record.NewRecord(e.ID, e.Label, e.Content, e.Embedding, now, recDomains, e.Importance, e.Metadata)
				if err := idx.Upsert(r); err != nil {
					return fmt.Errorf("query: upsert %s: %w", e.ID, err)
				}
			}
			fmt.Fprintf(os.Stderr, "loaded %d records\n", len(entries))

			embedder := embed.NewCachedEmbedder(newConfiguredEmbedder(), 1000)
			ctx := context.Background()
			raw, err := embedder.Embed(ctx, queryText)
			if err != nil {
				return fmt.Errorf("query: embed query: %w", err)
			}
			queryEmbedding, ok := convert.ToFloat64Slice(raw)
			if !ok {
				return fmt.Errorf("query: could not convert query embedding")
			}

			state, warnings := navstate.Validate(navstate.State{
				Zoom: navstate.Zoom(zoom),
				Pan:  navstate.Pan{Domains: domains, Keywords: keywords},
				Tilt: navstate.TiltEmbedding,
			})
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "warning: %s=%q invalid, using %q\n", w.Field, w.Value, w.UsedInstead)
			}

			broker := enhancement.NewBroker()
			fcfg := fusion.Config{
				AdaptiveCfg:  toAdaptiveConfig(cfg),
				RelevanceCfg: toRelevanceWeights(cfg),
			}
			result, err := fusion.Merge(ctx, idx, broker, queryText, queryEmbedding, state, fcfg, nil, now)
			if err != nil {
				return fmt.Errorf("query: merge: %w", err)
			}

			fmt.Printf("strategy=%s personal_weight=%.3f passes=%d\n", result.Strategy, result.PersonalWeight, result.Passes)
			for i, c := range result.Personal {
				fmt.Printf("  [%d] %s sim=%.3f: %s\n", i, c.Record.ID, c.Similarity, c.Record.Content)
			}
			if result.Enhancement != nil && result.Enhancement.Answer != nil {
				fmt.Printf("enhancement: confidence=%.3f: %s\n", result.Enhancement.Answer.Confidence, result.Enhancement.Answer.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "Path to a JSONL corpus file (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&queryText, "q", "", "Query text (required)")
	cmd.Flags().StringVar(&zoom, "zoom", string(navstate.ZoomEntity), "Zoom level")
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "Pan domain filter (repeatable)")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "Pan keyword boost (repeatable)")
	cmd.MarkFlagRequired("corpus")
	cmd.MarkFlagRequired("q")
	return cmd
}

// memoryBackend satisfies both store.EmbeddingIndex and store.RecordStore by
// embedding the two standalone in-memory implementations.
type memoryBackend struct {
	*store.MemoryIndex
	*store.MemoryRecordStore
}

func newConfiguredEmbedder() embed.Embedder {
	return embed.NewOllama(embed.DefaultOllamaConfig())
}

func toAdaptiveConfig(cfg *config.Config) adaptive.Config {
	return adaptive.Config{MaxPasses: cfg.Adaptive.MaxPasses, TargetResults: cfg.Adaptive.TargetResults}
}

func toRelevanceWeights(cfg *config.Config) relevance.Weights {
	return relevance.Weights{
		Domain:    cfg.Relevance.DomainWeight,
		Temporal:  cfg.Relevance.TemporalWeight,
		Semantic:  cfg.Relevance.SemanticWeight,
		Frequency: cfg.Relevance.FrequencyWeight,
	}
}
