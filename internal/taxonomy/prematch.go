package taxonomy

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/obis-tools/taxonmatch/internal/worms"
)

// prematch is stage 1: resolve the most specific lineage term against the
// local dictionary, then confirm each candidate AphiaID with a full record
// fetch. The dictionary is a hint, never authoritative; only an accepted
// backbone record produces a classification. Returns the keys left for
// stage 2.
func (r *Resolver) prematch(ctx context.Context, keys []Key, cache *Cache) []Key {
	if r.cfg.Dictionary == nil || r.cfg.Dictionary.Len() == 0 {
		return keys
	}

	groups := map[int64][]Key{}
	var ids []int64
	var remaining []Key
	for _, key := range keys {
		// Assays without reliable species calls never pre-match.
		if r.cfg.SkipSpeciesAssays[key.Assay] {
			remaining = append(remaining, key)
			continue
		}
		names := ParseLineage(key.Verbatim)
		if len(names) > 0 {
			if id, ok := r.cfg.Dictionary.Lookup(names[len(names)-1]); ok {
				if _, dup := groups[id]; !dup {
					ids = append(ids, id)
				}
				groups[id] = append(groups[id], key)
				continue
			}
		}
		remaining = append(remaining, key)
	}
	if len(ids) == 0 {
		return remaining
	}

	outcomes := r.fetchRecords(ctx, ids)
	for _, id := range ids {
		outcome := outcomes[id]
		if !outcome.OK() || !outcome.Record.Accepted() {
			if outcome.Err != nil {
				log.Printf("taxon-match prematch: AphiaID %d fetch failed err=%v", id, outcome.Err)
			}
			remaining = append(remaining, groups[id]...)
			continue
		}
		for _, key := range groups[id] {
			rec := classificationFromRecord(*outcome.Record, r.cfg.Source, labelAphiaPrefix+strconv.FormatInt(id, 10))
			rec.CleanedTaxonomy = strings.Join(ParseLineage(key.Verbatim), ";")
			cache.PutIfAbsent(key, rec)
		}
	}
	return remaining
}

// fetchRecords resolves AphiaIDs concurrently, at most r.cfg.Workers
// outstanding. Workers only produce outcomes; the caller owns all cache
// writes.
func (r *Resolver) fetchRecords(ctx context.Context, ids []int64) map[int64]worms.FetchOutcome {
	type fetched struct {
		id      int64
		outcome worms.FetchOutcome
	}
	results := make(chan fetched, len(ids))
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- fetched{id: id, outcome: r.backbone.AphiaRecordByID(ctx, id)}
		}(id)
	}
	wg.Wait()
	close(results)

	outcomes := make(map[int64]worms.FetchOutcome, len(ids))
	for f := range results {
		outcomes[f.id] = f.outcome
	}
	return outcomes
}

// classificationFromRecord maps an accepted backbone record onto the
// standard output shape. Every standard rank key is present even when the
// backbone omits the rank.
func classificationFromRecord(rec worms.Record, source, label string) Classification {
	c := Classification{
		ScientificName:   rec.ScientificName,
		ScientificNameID: rec.LSID,
		TaxonRank:        optional(rec.Rank),
		NameAccordingTo:  source,
		MatchTypeDebug:   label,
		Ranks:            map[string]*string{},
	}
	c.Ranks["kingdom"] = optional(rec.Kingdom)
	c.Ranks["phylum"] = optional(rec.Phylum)
	c.Ranks["class"] = optional(rec.Class)
	c.Ranks["order"] = optional(rec.Order)
	c.Ranks["family"] = optional(rec.Family)
	c.Ranks["genus"] = optional(rec.Genus)
	c.Ranks["species"] = optional(rec.Species)
	return c
}
