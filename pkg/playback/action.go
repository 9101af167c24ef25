package playback

import (
	"math"

	"github.com/carl0967/vrm-chat-space/pkg/clips"
)

// LoopMode selects how an action treats the end of its clip.
type LoopMode int

const (
	// LoopOnce plays the clip a single time.
	LoopOnce LoopMode = iota

	// LoopRepeat wraps around at the clip end, for Repetitions cycles
	// (zero means forever).
	LoopRepeat
)

// Action is an opaque handle to a clip scheduled on the mixer. The mixer
// owns all mutation; controllers only read completion state.
type Action struct {
	id    string
	clip  *clips.Clip
	label string

	loop   LoopMode
	reps   int
	clamp  bool
	weight float64

	time     float64
	cycles   int
	finished bool
}

// ID returns the action's unique id.
func (a *Action) ID() string { return a.id }

// Label returns the action's debug label.
func (a *Action) Label() string { return a.label }

// Clip returns the (possibly derived) clip the action plays.
func (a *Action) Clip() *clips.Clip { return a.clip }

// Time returns the playback clock in seconds.
func (a *Action) Time() float64 { return a.time }

// Finished reports whether the action has run its course.
func (a *Action) Finished() bool { return a.finished }

// advance moves the playback clock and resolves looping/completion.
func (a *Action) advance(dt float64) {
	if a.finished {
		return
	}

	a.time += dt
	dur := a.clip.Duration

	switch a.loop {
	case LoopOnce:
		if a.time >= dur {
			a.finished = true
			if a.clamp {
				a.time = dur // freeze last pose
			}
		}
	case LoopRepeat:
		if a.time >= dur {
			a.cycles += int(a.time / dur)
			a.time = math.Mod(a.time, dur)
			if a.reps > 0 && a.cycles >= a.reps {
				a.finished = true
				if a.clamp {
					a.time = dur
				}
			}
		}
	}
}
