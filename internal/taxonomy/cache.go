package taxonomy

// Cache holds one Classification per distinct Key for the duration of a
// resolution run. Stages run in strict precedence order and only the
// control goroutine writes, so no locking is needed; PutIfAbsent still
// enforces first-writer-wins so a later stage can never clobber an
// earlier stage's result.
type Cache struct {
	records map[Key]Classification
}

func NewCache() *Cache {
	return &Cache{records: map[Key]Classification{}}
}

// PutIfAbsent stores rec under key unless the key is already resolved.
// It reports whether the record was stored.
func (c *Cache) PutIfAbsent(key Key, rec Classification) bool {
	if _, ok := c.records[key]; ok {
		return false
	}
	c.records[key] = rec
	return true
}

func (c *Cache) Get(key Key) (Classification, bool) {
	rec, ok := c.records[key]
	return rec, ok
}

func (c *Cache) Len() int {
	return len(c.records)
}

// Labels returns a histogram of match_type_debug values, for run reporting.
func (c *Cache) Labels() map[string]int {
	hist := map[string]int{}
	for _, rec := range c.records {
		hist[rec.MatchTypeDebug]++
	}
	return hist
}
