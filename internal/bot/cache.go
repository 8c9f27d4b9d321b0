package bot

import "connect4engine/internal/models"

// Bound tells how a cached score relates to the true value of the node.
type Bound uint8

const (
	BoundExact Bound = iota
	// BoundLower: the search failed high, the true value is >= Score.
	BoundLower
	// BoundUpper: the search failed low, the true value is <= Score.
	BoundUpper
)

type Entry struct {
	Depth int
	Score int
	Bound Bound
}

// Cache is a transposition table keyed by searcher, side to move and the full
// board contents. It never evicts; the owner clears it between games.
type Cache struct {
	entries map[string]Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Probe returns the entry for key only if it was searched at least depth plies.
func (c *Cache) Probe(key []byte, depth int) (Entry, bool) {
	e, ok := c.entries[string(key)]
	if !ok || e.Depth < depth {
		return Entry{}, false
	}
	return e, true
}

// Store creates or overwrites the entry for key.
func (c *Cache) Store(key []byte, e Entry) {
	c.entries[string(key)] = e
}

func (c *Cache) Len() int {
	return len(c.entries)
}

func (c *Cache) Clear() {
	clear(c.entries)
}

// appendKey encodes (searcher, maximizing, board) into dst.
func appendKey(dst []byte, b *models.Board, searcher models.Cell, maximizing bool) []byte {
	turn := byte(0)
	if maximizing {
		turn = 1
	}
	dst = append(dst, byte(searcher), turn)
	return b.AppendKey(dst)
}
