// ABOUTME: Per-label closure counts and byte totals
// ABOUTME: Summarises a graph the way a heap profile groups allocations by info table

package graph

import "sort"

// LabelStat aggregates the closures sharing one info label.
type LabelStat struct {
	Info  string
	Count int
	Bytes uint64
}

// Histogram groups the graph's closures by label, largest byte total first.
// Ties are broken by label so the order is stable.
func Histogram(g Graph) []LabelStat {
	byInfo := make(map[string]*LabelStat)
	g.ForEachNode(func(n *Node) {
		s, ok := byInfo[n.Info]
		if !ok {
			s = &LabelStat{Info: n.Info}
			byInfo[n.Info] = s
		}
		s.Count++
		s.Bytes += n.Size
	})

	out := make([]LabelStat, 0, len(byInfo))
	for _, s := range byInfo {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Info < out[j].Info
	})
	return out
}
