package segments

import "sort"

// List is a set of segments in coalesced normal form: sorted by start,
// pairwise disjoint, non-adjacent and free of empty members. Build
// lists with NewList; every operation below takes lists in normal form
// and returns a list in normal form.
type List []Segment

// NewList coalesces arbitrary segments into normal form. Input order
// does not matter, overlapping and touching segments merge, empty
// segments are dropped.
func NewList(segs ...Segment) List {
	work := make(List, 0, len(segs))
	for _, s := range segs {
		if !s.Empty() {
			work = append(work, s)
		}
	}
	sort.Slice(work, func(i, j int) bool {
		if work[i].Start != work[j].Start {
			return work[i].Start < work[j].Start
		}
		return work[i].End < work[j].End
	})
	return foldSorted(work)
}

// foldSorted merges overlapping and adjacent neighbours. The input must
// already be sorted by start.
func foldSorted(sorted List) List {
	if len(sorted) == 0 {
		return List{}
	}
	out := make(List, 0, len(sorted))
	out = append(out, sorted[0])
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Union returns the instants covered by either list.
func (l List) Union(o List) List {
	if len(l) == 0 {
		return o.clone()
	}
	if len(o) == 0 {
		return l.clone()
	}
	merged := make(List, 0, len(l)+len(o))
	i, j := 0, 0
	for i < len(l) && j < len(o) {
		if l[i].Start <= o[j].Start {
			merged = append(merged, l[i])
			i++
		} else {
			merged = append(merged, o[j])
			j++
		}
	}
	merged = append(merged, l[i:]...)
	merged = append(merged, o[j:]...)
	return foldSorted(merged)
}

// Intersect returns the instants covered by both lists.
func (l List) Intersect(o List) List {
	out := List{}
	i, j := 0, 0
	for i < len(l) && j < len(o) {
		start := l[i].Start
		if o[j].Start > start {
			start = o[j].Start
		}
		end := l[i].End
		if o[j].End < end {
			end = o[j].End
		}
		if start < end {
			out = append(out, Segment{Start: start, End: end})
		}
		if l[i].End <= o[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Sub returns the instants covered by l but not by o.
func (l List) Sub(o List) List {
	if len(l) == 0 {
		return List{}
	}
	if len(o) == 0 {
		return l.clone()
	}
	out := List{}
	j := 0
	for _, s := range l {
		cur := s.Start
		for j < len(o) && o[j].End <= cur {
			j++
		}
		for k := j; k < len(o) && o[k].Start < s.End; k++ {
			if o[k].Start > cur {
				out = append(out, Segment{Start: cur, End: o[k].Start})
			}
			if o[k].End > cur {
				cur = o[k].End
			}
			if o[k].End >= s.End {
				break
			}
		}
		if cur < s.End {
			out = append(out, Segment{Start: cur, End: s.End})
		}
	}
	return out
}

// Clip restricts the list to a single span. An empty span clips
// everything away.
func (l List) Clip(span Segment) List {
	if span.Empty() {
		return List{}
	}
	return l.Intersect(List{span})
}

// Pad shifts every start by startPad and every end by endPad, then
// restores normal form. Negative pads widen a segment on that side;
// segments whose endpoints cross after padding are dropped.
func (l List) Pad(startPad, endPad int64) List {
	if startPad == 0 && endPad == 0 {
		return l.clone()
	}
	work := make([]Segment, 0, len(l))
	for _, s := range l {
		padded := Segment{Start: s.Start + startPad, End: s.End + endPad}
		if !padded.Empty() {
			work = append(work, padded)
		}
	}
	return NewList(work...)
}

// Equal reports whether both lists cover exactly the same instants.
// Normal form makes this an element-wise comparison.
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// Duration returns the total covered time in seconds.
func (l List) Duration() int64 {
	var total int64
	for _, s := range l {
		total += s.Duration()
	}
	return total
}

// Contains reports whether the instant t falls inside any segment.
func (l List) Contains(t int64) bool {
	idx := sort.Search(len(l), func(i int) bool { return l[i].End > t })
	return idx < len(l) && l[idx].Start <= t
}

// Extent returns the smallest single segment covering the whole list,
// or false for an empty list.
func (l List) Extent() (Segment, bool) {
	if len(l) == 0 {
		return Segment{}, false
	}
	return Segment{Start: l[0].Start, End: l[len(l)-1].End}, true
}

func (l List) clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}
