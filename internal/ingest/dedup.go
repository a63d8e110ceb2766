package ingest

import (
	"sort"

	"github.com/nerrad567/gray-logic-threshold/internal/control"
)

// MergeResult describes what Merge did with a reading.
type MergeResult int

const (
	// Inserted means no entry existed for the key.
	Inserted MergeResult = iota
	// Replaced means the reading was newer than a forwarded entry.
	Replaced
	// Superseded means the reading replaced an entry that was never forwarded.
	Superseded
	// Discarded means the reading was not newer than the stored entry.
	Discarded
)

type entry struct {
	reading   Reading
	forwarded bool
}

// Deduplicator keeps the newest reading per (device, sensor type) and
// remembers whether it has been forwarded.
//
// It is owned by a single goroutine and is not safe for concurrent use.
type Deduplicator struct {
	latest map[Key]*entry

	// pruned holds the newest forwarded timestamp of keys dropped by Prune.
	pruned map[Key]int64
}

// NewDeduplicator returns an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		latest: make(map[Key]*entry),
		pruned: make(map[Key]int64),
	}
}

// Merge stores r if no entry exists for its key or if r is strictly newer.
// Merging the same reading twice has no further effect.
func (d *Deduplicator) Merge(r Reading) MergeResult {
	key := r.Key()
	current, ok := d.latest[key]
	if !ok {
		if last, wasPruned := d.pruned[key]; wasPruned {
			if r.Timestamp <= last {
				return Discarded
			}
			delete(d.pruned, key)
		}
		d.latest[key] = &entry{reading: r}
		return Inserted
	}
	if r.Timestamp <= current.reading.Timestamp {
		return Discarded
	}

	result := Replaced
	if !current.forwarded {
		result = Superseded
	}
	d.latest[key] = &entry{reading: r}
	return result
}

// Forward returns every entry not yet forwarded, ordered by device then
// sensor type, and marks them forwarded.
func (d *Deduplicator) Forward() []Reading {
	var out []Reading
	for _, e := range d.latest {
		if e.forwarded {
			continue
		}
		e.forwarded = true
		out = append(out, e.reading)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		return out[i].SensorType < out[j].SensorType
	})
	return out
}

// Prune drops entries whose pair is no longer observed, returning how many
// were removed. Used after the definitions are reloaded.
//
// The timestamp of a forwarded entry is kept, so a pair that becomes
// observed again never forwards a reading at or before it.
func (d *Deduplicator) Prune(observables control.ObservableSet) int {
	removed := 0
	for key, e := range d.latest {
		if observables.Contains(key.Device, key.SensorType) {
			continue
		}
		if e.forwarded {
			d.pruned[key] = e.reading.Timestamp
		}
		delete(d.latest, key)
		removed++
	}
	return removed
}

// Latest returns the stored reading for key.
func (d *Deduplicator) Latest(key Key) (Reading, bool) {
	e, ok := d.latest[key]
	if !ok {
		return Reading{}, false
	}
	return e.reading, true
}

// Len returns the number of tracked keys.
func (d *Deduplicator) Len() int {
	return len(d.latest)
}
