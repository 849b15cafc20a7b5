package pagecache

import "sort"

// Range is an inclusive page span awaiting rasterization
type Range struct {
	First int
	Last  int
}

// Pages returns the number of pages in the range
func (r Range) Pages() int {
	return r.Last - r.First + 1
}

// Reconcile computes which pages of [first, last] must still be rasterized given the
// pages already cached. The returned ranges are disjoint, ordered and, together with
// the reusable pages, cover [first, last] exactly once.
func Reconcile(cached map[int]bool, first, last int) (missing []Range, reusable []int) {
	if first > last {
		return nil, nil
	}

	for page, ok := range cached {
		if ok && page >= first && page <= last {
			reusable = append(reusable, page)
		}
	}
	sort.Ints(reusable)

	if len(reusable) == 0 {
		return []Range{{First: first, Last: last}}, nil
	}

	if first < reusable[0] {
		missing = append(missing, Range{First: first, Last: reusable[0] - 1})
	}
	for i := 1; i < len(reusable); i++ {
		if reusable[i]-reusable[i-1] > 1 {
			missing = append(missing, Range{First: reusable[i-1] + 1, Last: reusable[i] - 1})
		}
	}
	if reusable[len(reusable)-1] < last {
		missing = append(missing, Range{First: reusable[len(reusable)-1] + 1, Last: last})
	}
	return missing, reusable
}

// Merge returns the union of ranges as disjoint spans ordered by first page.
// Adjacent spans are joined.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].First < sorted[j].First })

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.First <= last.Last+1 {
			if r.Last > last.Last {
				last.Last = r.Last
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
