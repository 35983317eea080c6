package core

import (
	"context"
	"sort"
	"strings"
)

// Batch is the state of one commit, shared by the definition hooks while the
// transaction is open.
type Batch struct {
	ID         string
	ImportType string
	Tx         Tx

	taxonomy Taxonomy
	created  map[string]int64
	keys     []string // created keys in insertion order
	names    []string
}

// batchMark records how much taxonomy the batch had resolved when a row's
// savepoint was taken.
type batchMark struct {
	keys, names int
}

func (b *Batch) mark() batchMark {
	return batchMark{keys: len(b.keys), names: len(b.names)}
}

// restore forgets ship types resolved after m, matching a rollback to the
// savepoint taken with m.
func (b *Batch) restore(m batchMark) {
	for _, key := range b.keys[m.keys:] {
		delete(b.created, key)
	}
	b.keys = b.keys[:m.keys]
	b.names = b.names[:m.names]
}

func newBatch(id, importType string, tx Tx, taxonomy Taxonomy) *Batch {
	return &Batch{
		ID:         id,
		ImportType: importType,
		Tx:         tx,
		taxonomy:   taxonomy,
		created:    make(map[string]int64),
	}
}

// ShipTypeID resolves name against the in-transaction taxonomy snapshot,
// creating the ship type on first use. Rows later in the batch that name the
// same new type reuse the row created here.
func (b *Batch) ShipTypeID(ctx context.Context, name string) (int64, error) {
	if st, ok := b.taxonomy.Lookup(name); ok {
		return st.ID, nil
	}

	key := taxonomyKey(name)
	if id, ok := b.created[key]; ok {
		return id, nil
	}

	clean := strings.Join(strings.Fields(name), " ")
	id, created, err := b.Tx.EnsureShipType(ctx, clean)
	if err != nil {
		return 0, err
	}
	b.created[key] = id
	b.keys = append(b.keys, key)
	if created {
		b.names = append(b.names, clean)
	}
	return id, nil
}

// CreatedShipTypes returns the names of ship types this batch created.
func (b *Batch) CreatedShipTypes() []string {
	names := append([]string(nil), b.names...)
	sort.Strings(names)
	return names
}
