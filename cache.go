package skinledger

// Valuation is a resolved market value and its change against the value
// stored before the run.
type Valuation struct {
	Value  Money
	Change Percent
}

// Cache holds the valuations resolved during one run, by lookup key.
//
// Rows holding the same item share the entry, so the price source is queried
// once per distinct key.
type Cache struct {
	entries map[string]Valuation
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Valuation)}
}

// Get returns the valuation stored for key.
func (c *Cache) Get(key string) (Valuation, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Put stores the valuation for key, replacing any previous one.
func (c *Cache) Put(key string, value Money, change Percent) {
	c.entries[key] = Valuation{Value: value, Change: change}
}

// Len returns the number of distinct keys resolved.
func (c *Cache) Len() int { return len(c.entries) }
