package behavior

import (
	"context"
	"math/rand"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/locomotion"
	"github.com/carl0967/vrm-chat-space/pkg/playback"
)

// wanderPhase is the scheduler's state machine position.
type wanderPhase int

const (
	wanderIdle wanderPhase = iota
	wanderMoving
	wanderWaiting
)

type gestureResolved struct {
	clip *clips.Clip
	err  error
}

// Wander is the autonomous wandering scheduler: pick a random spot,
// walk there, wait while idling, maybe wave, repeat.
type Wander struct {
	loco     *locomotion.Controller
	mixer    *playback.Mixer
	resolver clips.Resolver
	tuning   *config.Tuning
	report   func(string)

	cycle *IdleCycle
	rnd   *rand.Rand

	active bool
	phase  wanderPhase
	wait   float64

	gestureArmed bool
	gestureDelay float64

	gestureClip    *clips.Clip
	gestureLoading bool
	gestureAction  *playback.Action

	// resolved carries the in-flight gesture lookup; Deactivate abandons
	// the channel so a stale result can never shadow a fresh one.
	resolved chan gestureResolved
}

// NewWander wires the wandering scheduler. It owns a private idle cycle
// for the waiting phase.
func NewWander(loco *locomotion.Controller, mixer *playback.Mixer, resolver clips.Resolver, tuning *config.Tuning, report func(string)) *Wander {
	return &Wander{
		loco:     loco,
		mixer:    mixer,
		resolver: resolver,
		tuning:   tuning,
		report:   report,
		cycle: NewIdleCycle(mixer, resolver, tuning, report, loco.IsMoving),
		rnd:   rand.New(rand.NewSource(rand.Int63())),
	}
}

// Activate enters wander mode; the first Update picks a destination.
func (w *Wander) Activate() {
	if w.active {
		return
	}
	w.active = true
	w.phase = wanderIdle
}

// Deactivate leaves wander mode, cancelling any in-flight movement
// without preserving its animation.
func (w *Wander) Deactivate() {
	if !w.active {
		return
	}
	w.active = false
	w.phase = wanderIdle
	w.loco.FinishWalking("", locomotion.FinishOptions{})
	w.cycle.Deactivate()

	w.gestureLoading = false
	w.gestureArmed = false
	w.gestureAction = nil
	w.resolved = nil // abandon any in-flight gesture lookup
}

// Active reports whether wander mode is driving the avatar.
func (w *Wander) Active() bool { return w.active }

// Update advances the scheduler by dt seconds.
func (w *Wander) Update(dt float64) {
	if !w.active {
		return
	}

	w.drainResolved()

	switch w.phase {
	case wanderIdle:
		w.pickDestination()

	case wanderMoving:
		if !w.loco.IsMoving() && !w.loco.IsLoading() {
			w.beginWaiting()
		}

	case wanderWaiting:
		w.wait -= dt

		if w.gestureArmed {
			w.gestureDelay -= dt
			if w.gestureDelay <= 0 {
				w.gestureArmed = false
				w.fireGesture()
			}
		}

		if w.gestureInProgress() {
			// A playing gesture suppresses idle-clip switching.
			if w.gestureAction != nil && w.gestureAction.Finished() {
				w.gestureAction = nil
				w.cycle.ForceSwitch()
			}
		} else {
			w.cycle.Update(dt)
		}

		if w.wait <= 0 {
			w.cycle.Deactivate()
			w.phase = wanderIdle
		}
	}
}

// pickDestination chooses a uniform random point in the wander square
// and starts walking there, keeping the walk animation alive on arrival
// so the idle cross-fade takes over. Without an avatar the scheduler
// deactivates itself instead of retrying every tick.
func (w *Wander) pickDestination() {
	r := w.tuning.WanderRange
	x := -r + w.rnd.Float64()*2*r
	z := -r + w.rnd.Float64()*2*r

	noAvatar := false
	ok := w.loco.BeginMoveTo(x, z, locomotion.Options{
		PreserveAnimation: true,
		OnNoAvatar:        func() { noAvatar = true },
	})
	if ok {
		w.phase = wanderMoving
		return
	}
	if noAvatar {
		if w.report != nil {
			w.report("load a model before wandering")
		}
		w.Deactivate()
	}
}

// beginWaiting enters the waiting phase, restarts idle cycling and
// rolls the dice for a mid-wait gesture.
func (w *Wander) beginWaiting() {
	w.phase = wanderWaiting
	w.wait = w.tuning.WanderWait
	w.cycle.Activate()

	if w.rnd.Float64() < w.tuning.GestureChance {
		window := w.wait - w.tuning.GestureLeadIn - w.tuning.GestureTailOut
		if window > 0 {
			w.gestureArmed = true
			w.gestureDelay = w.tuning.GestureLeadIn + w.rnd.Float64()*window
		}
	}
}

// fireGesture plays the wave clip once, resolving it on first use.
func (w *Wander) fireGesture() {
	if w.gestureLoading {
		return // in-flight guard
	}
	if w.gestureClip != nil {
		w.playGesture(w.gestureClip)
		return
	}

	w.gestureLoading = true
	ch := make(chan gestureResolved, 1)
	w.resolved = ch
	go func() {
		clip, err := w.resolver.Resolve(context.Background(), clips.ClipGreeting)
		ch <- gestureResolved{clip: clip, err: err}
	}()
}

func (w *Wander) playGesture(clip *clips.Clip) {
	opts := w.mixer.DefaultOptions()
	opts.Loop = playback.LoopOnce
	// Neck and head stay with the gaze and tilt controllers, same as the
	// idle clips.
	opts.ExcludeBones = idleExcludedBones
	if a, ok := w.mixer.Play(clip, opts); ok {
		w.gestureAction = a
	}
}

func (w *Wander) drainResolved() {
	if w.resolved == nil {
		return
	}
	select {
	case res := <-w.resolved:
		w.resolved = nil
		w.gestureLoading = false
		if res.err != nil {
			log.Component("wander").Warn("gesture clip resolution failed", "error", res.err)
			return
		}
		w.gestureClip = res.clip
		if w.active && w.phase == wanderWaiting {
			w.playGesture(res.clip)
		}
	default:
	}
}

func (w *Wander) gestureInProgress() bool {
	if w.gestureLoading {
		return true
	}
	return w.gestureAction != nil
}

// ResetClipCache drops the cached gesture clip, for avatar swaps.
func (w *Wander) ResetClipCache() {
	w.gestureClip = nil
}
