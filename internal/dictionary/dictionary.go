// Package dictionary provides the local name->AphiaID table used by the
// pre-match stage. A miss is never an error; the dictionary only supplies
// candidates that the backbone must confirm.
package dictionary

type Dictionary interface {
	Lookup(name string) (int64, bool)
	Len() int
}

// MapDictionary is an in-memory Dictionary, useful for tests and for
// params-file dictionaries small enough to load whole.
type MapDictionary map[string]int64

func (m MapDictionary) Lookup(name string) (int64, bool) {
	id, ok := m[name]
	return id, ok
}

func (m MapDictionary) Len() int {
	return len(m)
}
