package taxonomy

import "strings"

// fastPath assigns incertae sedis to keys that need no backbone work:
// empty/unassigned inputs and the single-term "Eukaryota" kingdom, which
// WoRMS cannot place. Other single-term kingdoms (Bacteria, Archaea) are
// real backbone taxa and proceed to normal matching. Returns the keys
// still needing resolution.
func (r *Resolver) fastPath(keys []Key, cache *Cache) []Key {
	var remaining []Key
	for _, key := range keys {
		cleaned := cleanVerbatim(key.Verbatim)
		switch {
		case isTrulyEmpty(cleaned):
			cache.PutIfAbsent(key, incertaeSedis(r.cfg.Source, LabelUnassigned, cleaned))
		case strings.EqualFold(cleaned, "eukaryota"):
			cache.PutIfAbsent(key, incertaeSedis(r.cfg.Source, LabelSimpleCasePfx+cleaned, cleaned))
		default:
			remaining = append(remaining, key)
		}
	}
	return remaining
}
