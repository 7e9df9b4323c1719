package taxonomy

import (
	"fmt"
	"strings"

	"github.com/obis-tools/taxonmatch/internal/occurrence"
)

// assignUnmatched gives every key that survived all matching stages the
// incertae sedis fallback, with the cleaned taxonomy computed under the
// same depth-truncation policy the batch stage used. Also seeds the
// sentinel record for truly-empty rows.
func (r *Resolver) assignUnmatched(unmatched []Key, cache *Cache) {
	for _, key := range unmatched {
		names := r.truncateForAssay(key.Assay, ParseLineage(key.Verbatim))
		cleaned := key.Verbatim
		if len(names) > 0 {
			cleaned = strings.Join(names, ";")
		}
		cache.PutIfAbsent(key, incertaeSedis(r.cfg.Source, LabelNoMatch, cleaned))
	}
	cache.PutIfAbsent(SentinelKey, incertaeSedis(r.cfg.Source, LabelEmptyFallback, ""))
}

// merge writes every row's cached classification back onto the dataset.
// After this, each row carries scientificName, scientificNameID, taxonRank,
// nameAccordingTo, the seven standard ranks, match_type_debug and
// cleanedTaxonomy. A missing cache entry is an engine bug, not an input
// problem, and fails loudly.
func (r *Resolver) merge(ds *occurrence.Dataset, rowKeys []Key, cache *Cache) error {
	columns := []string{"scientificName", "scientificNameID", "taxonRank", "nameAccordingTo"}
	columns = append(columns, StandardRanks...)
	columns = append(columns, ColumnDebug, ColumnCleaned)
	for _, col := range columns {
		ds.EnsureColumn(col)
	}

	for i, key := range rowKeys {
		rec, ok := cache.Get(key)
		if !ok {
			return fmt.Errorf("row %d: no classification for key %q/%q", i, key.Verbatim, key.Assay)
		}
		ds.Set(i, "scientificName", rec.ScientificName)
		ds.Set(i, "scientificNameID", rec.ScientificNameID)
		ds.Set(i, "taxonRank", deref(rec.TaxonRank))
		ds.Set(i, "nameAccordingTo", rec.NameAccordingTo)
		for _, rank := range StandardRanks {
			ds.Set(i, rank, deref(rec.Ranks[rank]))
		}
		ds.Set(i, ColumnDebug, rec.MatchTypeDebug)
		ds.Set(i, ColumnCleaned, rec.CleanedTaxonomy)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
