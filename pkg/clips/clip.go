// Package clips provides the animation clip model and clip resolution.
//
// A clip is a named, time-indexed set of per-bone rotation tracks plus a
// nominal duration. Clips are immutable once loaded and shared read-only
// between controllers; bone-track exclusion produces a derived clip
// instead of mutating the original.
package clips

import (
	"sort"
)

// Track holds rotation keys for one bone node. Times are seconds from
// clip start, ascending; Rotations are XYZ Euler radians per key.
type Track struct {
	Node      string       `json:"node"`
	Times     []float64    `json:"times"`
	Rotations [][3]float64 `json:"rotations"`
}

// Clip is an immutable animation clip.
type Clip struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"` // seconds
	Tracks      []Track `json:"tracks"`
}

// Filtered returns a derived clip with the named bone nodes stripped.
// The original is untouched; kept tracks are shared, not copied. Used to
// stop base clips from fighting controllers that drive those bones.
func (c *Clip) Filtered(exclude []string) *Clip {
	if len(exclude) == 0 {
		return c
	}

	skip := make(map[string]bool, len(exclude))
	for _, node := range exclude {
		skip[node] = true
	}

	kept := make([]Track, 0, len(c.Tracks))
	for _, tr := range c.Tracks {
		if !skip[tr.Node] {
			kept = append(kept, tr)
		}
	}

	return &Clip{
		Name:        c.Name,
		Description: c.Description,
		Duration:    c.Duration,
		Tracks:      kept,
	}
}

// Sample returns the interpolated rotation of a node at time t.
// The second return is false when the clip has no track for the node.
func (c *Clip) Sample(node string, t float64) ([3]float64, bool) {
	for _, tr := range c.Tracks {
		if tr.Node == node {
			return sampleTrack(tr, t), true
		}
	}
	return [3]float64{}, false
}

// sampleTrack interpolates a track at time t, clamping to the ends.
func sampleTrack(tr Track, t float64) [3]float64 {
	n := len(tr.Times)
	if n == 0 {
		return [3]float64{}
	}
	if n == 1 || t <= tr.Times[0] {
		return tr.Rotations[0]
	}
	if t >= tr.Times[n-1] {
		return tr.Rotations[n-1]
	}

	idx := sort.Search(n, func(i int) bool {
		return tr.Times[i] > t
	})

	prev, next := idx-1, idx
	tPrev, tNext := tr.Times[prev], tr.Times[next]

	var alpha float64
	if tNext > tPrev {
		alpha = (t - tPrev) / (tNext - tPrev)
	}

	var out [3]float64
	for i := 0; i < 3; i++ {
		a, b := tr.Rotations[prev][i], tr.Rotations[next][i]
		out[i] = a + (b-a)*alpha
	}
	return out
}
