package taxonomy

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/obis-tools/taxonmatch/internal/worms"
)

type batchStats struct {
	termsQueried       int
	batchesProcessed   int
	sequentialFallback bool
}

type batchResult struct {
	num     int
	matches map[string]worms.Record
	err     error
}

// batchMatch is stage 2: collect the distinct terms across all unresolved
// lineages, match them against the backbone in fixed-size batches, then
// walk each lineage most-specific-first against the merged lookup table.
// Returns the keys that matched nothing.
func (r *Resolver) batchMatch(ctx context.Context, keys []Key, cache *Cache) ([]Key, batchStats) {
	var stats batchStats
	if len(keys) == 0 {
		return nil, stats
	}

	// Global term dedup keeps remote calls proportional to vocabulary,
	// not row count.
	termSet := map[string]bool{}
	var terms []string
	for _, key := range keys {
		for _, term := range ParseLineage(key.Verbatim) {
			if !termSet[term] {
				termSet[term] = true
				terms = append(terms, term)
			}
		}
	}
	stats.termsQueried = len(terms)

	lookup := map[string]worms.Record{}
	if len(terms) > 0 {
		batches := chunkTerms(terms, BatchSize)
		stats.batchesProcessed = len(batches)

		results, err := r.matchBatchesParallel(ctx, batches)
		if err != nil {
			log.Printf("taxon-match batch: parallel submission failed err=%v; falling back to sequential", err)
			stats.sequentialFallback = true
			results = r.matchBatchesSequential(ctx, batches)
		}
		for _, br := range results {
			if br.err != nil {
				log.Printf("taxon-match batch %d/%d failed err=%v", br.num, len(batches), br.err)
				continue
			}
			for term, rec := range br.matches {
				lookup[term] = rec
			}
		}
		log.Printf("taxon-match batch: %d accepted matches from %d terms across %d batches", len(lookup), len(terms), len(batches))
	}

	var unmatched []Key
	for _, key := range keys {
		names := ParseLineage(key.Verbatim)
		if len(names) == 0 {
			unmatched = append(unmatched, key)
			continue
		}
		names = r.truncateForAssay(key.Assay, names)
		if len(names) == 0 {
			unmatched = append(unmatched, key)
			continue
		}
		cleaned := strings.Join(names, ";")

		matched := false
		for i := len(names) - 1; i >= 0; i-- {
			rec, ok := lookup[names[i]]
			if !ok {
				continue
			}
			c := classificationFromRecord(rec, r.cfg.Source, labelBatchPrefix+names[i])
			c.CleanedTaxonomy = cleaned
			cache.PutIfAbsent(key, c)
			matched = true
			break
		}
		if !matched {
			unmatched = append(unmatched, key)
		}
	}
	return unmatched, stats
}

// truncateForAssay drops the most specific term when the assay is marked
// skip-species and the lineage is full-depth for that assay.
func (r *Resolver) truncateForAssay(assay string, names []string) []string {
	if !r.cfg.SkipSpeciesAssays[assay] {
		return names
	}
	maxDepth := defaultMaxDepth
	if info, ok := r.cfg.AssayRanks[assay]; ok && info.MaxDepth > 0 {
		maxDepth = info.MaxDepth
	}
	if len(names) >= maxDepth {
		return names[:len(names)-1]
	}
	return names
}

// matchBatchesParallel submits all batches to a bounded worker pool.
// Individual batch failures are contained in their result; the submission
// itself fails only when the run context is cancelled or when every batch
// failed transport-level, which signals the service (not single batches)
// is the problem and hands the remainder to the sequential path.
func (r *Resolver) matchBatchesParallel(ctx context.Context, batches [][]string) ([]batchResult, error) {
	results := make(chan batchResult, len(batches))
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(num int, batch []string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- r.matchOneBatch(ctx, num, batch)
		}(i+1, batch)
	}
	wg.Wait()
	close(results)

	out := make([]batchResult, 0, len(batches))
	failed := 0
	for br := range results {
		if br.err != nil {
			failed++
		}
		out = append(out, br)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed == len(batches) && len(batches) > 0 {
		return nil, out[0].err
	}
	return out, nil
}

// matchBatchesSequential processes batches one at a time, logging each
// batch's duration. A failing batch contributes zero matches and never
// aborts the remaining batches.
func (r *Resolver) matchBatchesSequential(ctx context.Context, batches [][]string) []batchResult {
	results := make([]batchResult, 0, len(batches))
	for i, batch := range batches {
		log.Printf("taxon-match batch %d/%d processing sequentially...", i+1, len(batches))
		start := time.Now()
		br := r.matchOneBatch(ctx, i+1, batch)
		if br.err != nil {
			log.Printf("taxon-match batch %d/%d error after %s err=%v", i+1, len(batches), time.Since(start).Round(time.Millisecond), br.err)
		} else {
			log.Printf("taxon-match batch %d/%d completed in %s", i+1, len(batches), time.Since(start).Round(time.Millisecond))
		}
		results = append(results, br)
	}
	return results
}

// matchOneBatch runs one name-match call and keeps, per term, the first
// candidate the backbone returned with accepted status.
func (r *Resolver) matchOneBatch(ctx context.Context, num int, batch []string) batchResult {
	candidates, err := r.backbone.MatchNames(ctx, batch)
	if err != nil {
		return batchResult{num: num, err: err}
	}
	matches := map[string]worms.Record{}
	for i, list := range candidates {
		if i >= len(batch) {
			break
		}
		for _, rec := range list {
			if rec.Accepted() {
				matches[batch[i]] = rec
				break
			}
		}
	}
	return batchResult{num: num, matches: matches}
}

func chunkTerms(terms []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(terms); start += size {
		end := start + size
		if end > len(terms) {
			end = len(terms)
		}
		batches = append(batches, terms[start:end])
	}
	return batches
}
