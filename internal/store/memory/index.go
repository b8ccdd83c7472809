package memory

import (
	"time"

	"github.com/google/btree"
)

// indexEntry is one secondary-index entry: the expiry instant of a
// record and the sid it belonged to when the entry was written. The
// index may hold stale entries for a sid whose record was refreshed
// since (index drift); the primary map is always authoritative.
type indexEntry struct {
	at  time.Time
	sid string
}

func entryLess(a, b indexEntry) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.sid < b.sid
}

// expiryIndex is the secondary expiration index: an ordered-by-expiry
// structure so the cleanup scan can walk entries in ascending expiry
// order and stop at the first one still in the future.
type expiryIndex struct {
	tree *btree.BTreeG[indexEntry]
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{tree: btree.NewG(16, entryLess)}
}

func (x *expiryIndex) insert(at time.Time, sid string) {
	x.tree.ReplaceOrInsert(indexEntry{at: at, sid: sid})
}

func (x *expiryIndex) remove(at time.Time, sid string) {
	x.tree.Delete(indexEntry{at: at, sid: sid})
}

func (x *expiryIndex) len() int {
	return x.tree.Len()
}

// expiredBefore returns every entry with at <= now, in ascending expiry
// order. Iteration stops at the first entry still in the future.
func (x *expiryIndex) expiredBefore(now time.Time) []indexEntry {
	var out []indexEntry
	x.tree.Ascend(func(e indexEntry) bool {
		if e.at.After(now) {
			return false
		}
		out = append(out, e)
		return true
	})
	return out
}
