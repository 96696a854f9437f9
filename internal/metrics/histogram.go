package metrics

import "fmt"

// msPlayedEdges bound the play-duration histogram, in ms.
var msPlayedEdges = []float64{
	0, 10_000, 20_000, 30_000, 40_000, 50_000, 60_000,
	75_000, 90_000, 105_000, 120_000, 150_000, 180_000,
	240_000, 300_000, 600_000, 1_800_000,
}

// sessionMinuteEdges bound the session-length histogram, in
// minutes.
var sessionMinuteEdges = []float64{
	0, 5, 10, 15, 30, 60, 120, 240, 480, 1440,
}

// histogram counts values into half-open (lo, hi] bins. Values
// at or below the first edge, or above the last, fall in no
// bin. Every bin appears in the result, in ascending order.
func histogram(values []float64, edges []float64) Counts {
	out := make(Counts, len(edges)-1)
	for i := range out {
		out[i].Key = binLabel(edges[i], edges[i+1])
	}
	for _, v := range values {
		if i := binIndex(v, edges); i >= 0 {
			out[i].Value++
		}
	}
	return out
}

// binIndex returns the bin holding v, or -1.
func binIndex(v float64, edges []float64) int {
	if len(edges) < 2 || v <= edges[0] || v > edges[len(edges)-1] {
		return -1
	}
	lo, hi := 0, len(edges)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if v > edges[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func binLabel(lo, hi float64) string {
	return fmt.Sprintf("(%s, %s]", formatEdge(lo), formatEdge(hi))
}

func formatEdge(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
