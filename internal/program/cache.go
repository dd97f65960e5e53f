package program

import (
	"gml-vm/internal/chunk"
	"gml-vm/internal/compiler"
	"gml-vm/internal/parser"
	"gml-vm/internal/value"

	lru "github.com/hashicorp/golang-lru"
)

// Cache keeps compiled units keyed by unit name, source and the resource
// names they were resolved against. Chunks are never mutated after
// compilation, so a cached chunk can be shared by any number of programs.
type Cache struct {
	arc    *lru.ARCCache
	hits   int
	misses int
}

type cacheKey struct {
	unit      string
	source    string
	resources string
}

func NewCache(size int) (*Cache, error) {
	arc, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &Cache{arc: arc}, nil
}

// Compile returns the cached chunk for this unit or compiles it. Failed
// compilations are not cached. hit reports whether compilation was skipped.
func (c *Cache) Compile(unit, source string, resources map[string]value.Value, fingerprint string) (unitChunk *chunk.Chunk, hit bool, err error) {
	key := cacheKey{unit: unit, source: source, resources: fingerprint}
	if v, ok := c.arc.Get(key); ok {
		c.hits++
		return v.(*chunk.Chunk), true, nil
	}
	c.misses++

	unitChunk, err = compileSource(unit, source, resources)
	if err != nil {
		return nil, false, err
	}
	c.arc.Add(key, unitChunk)
	return unitChunk, false, nil
}

// Stats reports cache hits and misses since creation.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

func (c *Cache) Len() int {
	return c.arc.Len()
}

func (c *Cache) Purge() {
	c.arc.Purge()
}

func compileSource(unit, source string, resources map[string]value.Value) (*chunk.Chunk, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(program, compiler.Options{Unit: unit, Resources: resources})
}
