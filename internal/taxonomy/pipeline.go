package taxonomy

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/obis-tools/taxonmatch/internal/occurrence"
	"github.com/obis-tools/taxonmatch/internal/worms"
)

// Backbone is the remote name-resolution service the resolver queries.
// *worms.Client satisfies it.
type Backbone interface {
	AphiaRecordByID(ctx context.Context, id int64) worms.FetchOutcome
	MatchNames(ctx context.Context, names []string) ([][]worms.Record, error)
}

type StageProgressFn func(stage, message string)

// StageError wraps a failure with the stage it occurred in. Only the
// precondition stage can actually fail a run; matching stages degrade.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RunMetadata summarizes one resolution run.
type RunMetadata struct {
	Rows               int
	UniqueKeys         int
	FastPathAssigned   int
	PrematchMatched    int
	BatchTermsQueried  int
	BatchMatched       int
	BatchesProcessed   int
	SequentialFallback bool
	Unmatched          int
	StartedAt          time.Time
	CompletedAt        time.Time
}

// Result carries the annotated dataset plus run accounting for reports.
type Result struct {
	Dataset  *occurrence.Dataset
	Metadata RunMetadata
	Labels   map[string]int
}

// Resolver runs the multi-stage lineage resolution engine against a
// backbone service.
type Resolver struct {
	backbone Backbone
	cfg      Config
}

func NewResolver(backbone Backbone, cfg Config) *Resolver {
	if cfg.Source == "" {
		cfg.Source = "WoRMS"
	}
	if cfg.Workers <= 0 || cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.SkipSpeciesAssays == nil {
		cfg.SkipSpeciesAssays = map[string]bool{}
	}
	if cfg.AssayRanks == nil {
		cfg.AssayRanks = map[string]AssayRankInfo{}
	}
	return &Resolver{backbone: backbone, cfg: cfg}
}

func (r *Resolver) Resolve(ctx context.Context, ds *occurrence.Dataset) (Result, error) {
	return r.resolveWithProgress(ctx, ds, nil)
}

func (r *Resolver) ResolveWithProgress(ctx context.Context, ds *occurrence.Dataset, progress StageProgressFn) (Result, error) {
	return r.resolveWithProgress(ctx, ds, progress)
}

func (r *Resolver) resolveWithProgress(ctx context.Context, ds *occurrence.Dataset, progress StageProgressFn) (Result, error) {
	res := Result{Dataset: ds, Metadata: RunMetadata{StartedAt: time.Now(), Rows: ds.NumRows()}}

	if err := ds.RequireColumns(ColumnVerbatim, ColumnAssay); err != nil {
		return res, &StageError{Stage: "precondition", Err: err}
	}

	// Map every row to its resolution key; dedup in first-seen order.
	rowKeys := make([]Key, ds.NumRows())
	seen := map[Key]bool{}
	var unique []Key
	for i := 0; i < ds.NumRows(); i++ {
		key := keyForRow(ds.Get(i, ColumnVerbatim), ds.Get(i, ColumnAssay))
		rowKeys[i] = key
		if key != SentinelKey && !seen[key] {
			seen[key] = true
			unique = append(unique, key)
		}
	}
	res.Metadata.UniqueKeys = len(unique)
	emit(progress, "dedup", fmt.Sprintf("Found %d unique, non-empty combinations to process", len(unique)))

	cache := NewCache()

	remaining := r.fastPath(unique, cache)
	res.Metadata.FastPathAssigned = len(unique) - len(remaining)
	if n := res.Metadata.FastPathAssigned; n > 0 {
		emit(progress, "fast_path", fmt.Sprintf("Assigned %d unassigned/empty/simple-kingdom cases to incertae sedis", n))
	}

	emit(progress, "prematch", "Stage 1: local dictionary pre-matching...")
	before := cache.Len()
	remaining = r.prematch(ctx, remaining, cache)
	res.Metadata.PrematchMatched = cache.Len() - before
	emit(progress, "prematch", fmt.Sprintf("Stage 1 matched %d keys via AphiaID; %d remaining", res.Metadata.PrematchMatched, len(remaining)))

	emit(progress, "batch_match", "Stage 2: batch name matching...")
	before = cache.Len()
	remaining, stats := r.batchMatch(ctx, remaining, cache)
	res.Metadata.BatchMatched = cache.Len() - before
	res.Metadata.BatchTermsQueried = stats.termsQueried
	res.Metadata.BatchesProcessed = stats.batchesProcessed
	res.Metadata.SequentialFallback = stats.sequentialFallback
	emit(progress, "batch_match", fmt.Sprintf("Stage 2 matched %d keys across %d batches; %d unmatched", res.Metadata.BatchMatched, stats.batchesProcessed, len(remaining)))

	res.Metadata.Unmatched = len(remaining)
	r.assignUnmatched(remaining, cache)

	if err := r.merge(ds, rowKeys, cache); err != nil {
		return res, &StageError{Stage: "assemble", Err: err}
	}

	res.Labels = cache.Labels()
	res.Metadata.CompletedAt = time.Now()
	return res, nil
}

// keyForRow maps a dataset row to its resolution key. Rows that are empty
// or "unassigned" after trimming share the sentinel key across assays.
func keyForRow(verbatim, assay string) Key {
	cleaned := cleanVerbatim(verbatim)
	if cleaned == "" || strings.EqualFold(cleaned, "unassigned") {
		return SentinelKey
	}
	return Key{Verbatim: verbatim, Assay: assay}
}

func emit(progress StageProgressFn, stage, message string) {
	log.Printf("taxon-match %s: %s", stage, message)
	if progress != nil {
		progress(stage, message)
	}
}
