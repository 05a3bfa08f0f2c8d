package symbolsearch

// Entry is one symbol in a Dataset. Parent is the index of the enclosing
// entry, or 0 when the symbol has no known parent.
type Entry struct {
	ID     int64
	Name   string
	Parent int
}

// Range is the half-open slice of dataset entries holding one kind.
type Range struct {
	Begin int
	End   int
}

// Len returns the number of entries in r.
func (r Range) Len() int {
	return r.End - r.Begin
}

// Columns is the column-oriented form in which symbol tiers are delivered.
// Parents holds the external id of each symbol's parent, 0 for none; it may
// be shorter than IDs.
type Columns struct {
	IDs     []int64
	Names   []string
	Parents []int64
}

// Len returns the number of symbols in c.
func (c Columns) Len() int {
	return len(c.IDs)
}

func (c Columns) name(i int) string {
	if i < len(c.Names) {
		return c.Names[i]
	}
	return ""
}

func (c Columns) parent(i int) int64 {
	if i < len(c.Parents) {
		return c.Parents[i]
	}
	return 0
}

// KindBatch carries all symbols of one kind.
type KindBatch struct {
	Kind    Kind
	Columns Columns
}

// Dataset is an append-only, kind-partitioned symbol index. Slot 0 of the
// entry array is a sentinel so that a zero Parent means "no parent".
type Dataset struct {
	entries []Entry
	ranges  map[Kind]Range
	parents map[int64]int
	qnames  map[int][]string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	d := &Dataset{}
	d.Clear()
	return d
}

// Clear drops every entry and cached qualified name.
func (d *Dataset) Clear() {
	d.entries = []Entry{{}}
	d.ranges = make(map[Kind]Range)
	d.parents = make(map[int64]int)
	d.qnames = make(map[int][]string)
}

// Has reports whether kind has been incorporated.
func (d *Dataset) Has(kind Kind) bool {
	_, ok := d.ranges[kind]
	return ok
}

// Range returns the entries of kind.
func (d *Dataset) Range(kind Kind) (Range, bool) {
	r, ok := d.ranges[kind]
	return r, ok
}

// At returns the entry at index i.
func (d *Dataset) At(i int) Entry {
	return d.entries[i]
}

// Len returns the number of real entries, excluding the sentinel.
func (d *Dataset) Len() int {
	return len(d.entries) - 1
}

// Incorporate appends each batch whose kind is not present yet, in the
// order given. Parent ids resolve only against parent-capable entries
// incorporated earlier, including earlier entries of the same batch.
func (d *Dataset) Incorporate(batches ...KindBatch) {
	for _, b := range batches {
		if d.Has(b.Kind) {
			continue
		}
		canBeParent := b.Kind.CanBeParent()
		n := b.Columns.Len()
		r := Range{Begin: len(d.entries), End: len(d.entries) + n}
		for i := 0; i < n; i++ {
			var parent int
			if pid := b.Columns.parent(i); pid != 0 {
				parent = d.parents[pid]
			}
			if canBeParent {
				// registered before the append so the index is the entry's own
				d.parents[b.Columns.IDs[i]] = len(d.entries)
			}
			d.entries = append(d.entries, Entry{
				ID:     b.Columns.IDs[i],
				Name:   b.Columns.name(i),
				Parent: parent,
			})
		}
		d.ranges[b.Kind] = r
	}
}

// QualifiedName returns the name segments of entry i, outermost first.
// Ancestors are always memoized; cache also memoizes i itself. The returned
// slice must not be modified.
func (d *Dataset) QualifiedName(i int, cache bool) []string {
	if q, ok := d.qnames[i]; ok {
		return q
	}
	e := d.entries[i]
	var q []string
	if e.Parent != 0 {
		outer := d.QualifiedName(e.Parent, true)
		q = append(outer[:len(outer):len(outer)], e.Name)
	} else {
		q = []string{e.Name}
	}
	if cache {
		d.qnames[i] = q
	}
	return q
}
