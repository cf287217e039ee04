package engine

// activeEntry records one admitted voice with its acquisition order.
type activeEntry struct {
	voice *Voice
	seq   uint64
}

// activeIndex tracks which voices are currently active, partitioned by
// category and ordered FIFO by acquisition. A voice appears in at most one
// bucket at a time. Guarded by the coordinator's lock.
type activeIndex struct {
	buckets [categoryCount][]activeEntry
	seq     uint64
}

// add admits a voice to its category bucket, stamping acquisition order.
func (ix *activeIndex) add(v *Voice) {
	ix.seq++
	ix.buckets[v.category] = append(ix.buckets[v.category], activeEntry{voice: v, seq: ix.seq})
}

// remove detaches the voice from its bucket, preserving FIFO order of the
// remaining entries. Reports whether the voice was present.
func (ix *activeIndex) remove(v *Voice) bool {
	bucket := ix.buckets[v.category]
	for i, e := range bucket {
		if e.voice == v {
			ix.buckets[v.category] = append(bucket[:i], bucket[i+1:]...)
			return true
		}
	}
	return false
}

func (ix *activeIndex) count(c Category) int { return len(ix.buckets[c]) }

func (ix *activeIndex) total() int {
	n := 0
	for c := range ix.buckets {
		n += len(ix.buckets[c])
	}
	return n
}

// oldest returns the earliest-admitted voice still active in the category,
// the eviction candidate under concurrency pressure. nil when empty.
func (ix *activeIndex) oldest(c Category) *Voice {
	if len(ix.buckets[c]) == 0 {
		return nil
	}
	return ix.buckets[c][0].voice
}

// findClip returns an active voice assigned the clip id in the category, or
// nil. Used for duplicate suppression.
func (ix *activeIndex) findClip(c Category, clipID string) *Voice {
	for _, e := range ix.buckets[c] {
		if e.voice.ClipID() == clipID {
			return e.voice
		}
	}
	return nil
}

// all returns a snapshot of the category's active voices in admission order.
// Callers iterate the snapshot, never the live bucket, because stop
// completion mutates the bucket.
func (ix *activeIndex) all(c Category) []*Voice {
	out := make([]*Voice, 0, len(ix.buckets[c]))
	for _, e := range ix.buckets[c] {
		out = append(out, e.voice)
	}
	return out
}

// snapshot returns every active voice across the given categories, or across
// all categories when none are given.
func (ix *activeIndex) snapshot(cats ...Category) []*Voice {
	if len(cats) == 0 {
		cats = Categories()
	}
	var out []*Voice
	for _, c := range cats {
		out = append(out, ix.all(c)...)
	}
	return out
}
