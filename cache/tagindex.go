package cache

import "sort"

// tagIndex is an inverted index from tag to the set of keys carrying
// it. It is not safe for concurrent use on its own; the cache guards it
// with the same mutex as the entry table, so an entry and its tag
// registrations are never observed in a mixed state.
type tagIndex struct {
	byTag map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{byTag: make(map[string]map[string]struct{})}
}

// index registers key under tag. Idempotent.
func (i *tagIndex) index(tag, key string) {
	keys, ok := i.byTag[tag]
	if !ok {
		keys = make(map[string]struct{})
		i.byTag[tag] = keys
	}
	keys[key] = struct{}{}
}

// deindex removes key from tag. Idempotent. A tag whose key set
// empties is removed entirely so one-off tags cannot accumulate.
func (i *tagIndex) deindex(tag, key string) {
	keys, ok := i.byTag[tag]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(i.byTag, tag)
	}
}

// keysFor returns the keys currently registered under tag.
func (i *tagIndex) keysFor(tag string) []string {
	keys := i.byTag[tag]
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// has reports whether key is registered under tag.
func (i *tagIndex) has(tag, key string) bool {
	_, ok := i.byTag[tag][key]
	return ok
}

// tags returns all tags with at least one key, sorted.
func (i *tagIndex) tags() []string {
	out := make([]string, 0, len(i.byTag))
	for tag := range i.byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
