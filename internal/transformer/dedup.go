package transformer

import (
	"encoding/json"

	"github.com/zeebo/xxh3"

	"dataimport/pkg/records"
)

// dedup remembers xxh3 fingerprints of the canonical JSON form of records.
// encoding/json writes map keys sorted, so equal records hash equally.
type dedup struct {
	hashes map[uint64]struct{}
}

// seen reports whether an identical record was already recorded, and
// records rec otherwise.
func (d *dedup) seen(rec records.Record) bool {
	b, err := json.Marshal(rec)
	if err != nil {
		return false
	}
	h := xxh3.Hash(b)
	if d.hashes == nil {
		d.hashes = make(map[uint64]struct{})
	}
	if _, dup := d.hashes[h]; dup {
		return true
	}
	d.hashes[h] = struct{}{}
	return false
}
