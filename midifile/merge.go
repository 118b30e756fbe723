package midifile

import "sort"

// Merge concatenates the per-track lists and stable sorts them by tick, so
// events sharing a tick keep track order, then in-track order.
func Merge(tracks [][]RawEvent) []RawEvent {
	n := 0
	for _, t := range tracks {
		n += len(t)
	}
	out := make([]RawEvent, 0, n)
	for _, t := range tracks {
		out = append(out, t...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ticks < out[j].Ticks
	})
	return out
}
