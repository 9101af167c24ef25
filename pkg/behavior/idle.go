// Package behavior contains the high-level controllers that decide what
// the avatar is doing: the idle cycle, the autonomous wander scheduler,
// blink cycles, the discrete action dispatcher and the engine facade
// that ties them to the mixer.
package behavior

import (
	"context"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/playback"
)

// idleSequence is the fixed clip rotation for the idle mode.
var idleSequence = []string{clips.ClipIdleA, clips.ClipIdleB}

// idleExcludedBones are stripped from idle clips so the gaze and
// neck-tilt controllers keep sole ownership of those bones.
var idleExcludedBones = []string{
	avatar.BoneNeck.String(),
	avatar.BoneHead.String(),
}

type idleResolved struct {
	clip *clips.Clip
	err  error
}

// IdleCycle plays a fixed clip sequence in round-robin with cross-fade.
// The switch delay derives from each clip's real duration minus the
// configured overlap window.
type IdleCycle struct {
	mixer    *playback.Mixer
	resolver clips.Resolver
	tuning   *config.Tuning
	report   func(string)
	locoBusy func() bool

	active bool
	index  int     // next clip in the sequence
	delay  float64 // countdown to the next switch
	due    bool    // a switch is requested

	loading bool

	// resolved carries the in-flight lookup. Each lookup gets its own
	// buffered channel; Deactivate abandons the channel so a stale
	// result can never shadow a fresh one.
	resolved chan idleResolved
}

// NewIdleCycle wires an idle cycle controller. locoBusy gates the whole
// cycle: idle and walking are mutually exclusive.
func NewIdleCycle(mixer *playback.Mixer, resolver clips.Resolver, tuning *config.Tuning, report func(string), locoBusy func() bool) *IdleCycle {
	return &IdleCycle{
		mixer:    mixer,
		resolver: resolver,
		tuning:   tuning,
		report:   report,
		locoBusy: locoBusy,
	}
}

// Activate starts the cycle from the first clip. Re-activation while
// already active is a no-op.
func (c *IdleCycle) Activate() {
	if c.active {
		return
	}
	c.active = true
	c.index = 0
	c.delay = 0
	c.due = true
}

// Deactivate stops cycling and clears all cyclic state. Safe at any
// tick; an in-flight clip resolution is absorbed.
func (c *IdleCycle) Deactivate() {
	c.active = false
	c.index = 0
	c.delay = 0
	c.due = false
	c.loading = false
	c.resolved = nil // abandon any in-flight lookup
}

// Active reports whether the cycle is driving the mixer.
func (c *IdleCycle) Active() bool { return c.active }

// ForceSwitch requests the next clip on the coming tick, used to resume
// idling right after a gesture interrupted it.
func (c *IdleCycle) ForceSwitch() {
	if c.active {
		c.due = true
	}
}

// Update advances the cycle by dt seconds.
func (c *IdleCycle) Update(dt float64) {
	if !c.active {
		return
	}
	if c.locoBusy != nil && c.locoBusy() {
		return
	}

	c.drainResolved()

	if c.loading {
		return // in-flight guard: one lookup at a time
	}

	if !c.due {
		c.delay -= dt
		if c.delay <= 0 {
			c.due = true
		}
	}
	if !c.due {
		return
	}

	c.due = false
	c.loading = true
	ch := make(chan idleResolved, 1)
	c.resolved = ch
	id := idleSequence[c.index]
	go func() {
		clip, err := c.resolver.Resolve(context.Background(), id)
		ch <- idleResolved{clip: clip, err: err}
	}()
}

// drainResolved plays a freshly resolved clip and schedules the switch
// to the one after it.
func (c *IdleCycle) drainResolved() {
	if c.resolved == nil {
		return
	}
	select {
	case res := <-c.resolved:
		c.resolved = nil
		c.loading = false
		if res.err != nil {
			log.Component("idle").Warn("idle clip resolution failed", "error", res.err)
			if c.report != nil {
				c.report("idle animation unavailable")
			}
			c.active = false
			return
		}

		overlap := overlapFor(c.tuning.IdleOverlapSeconds, res.clip.Duration)
		opts := c.mixer.DefaultOptions()
		opts.Fade = overlap
		opts.Loop = playback.LoopRepeat
		opts.ExcludeBones = idleExcludedBones
		c.mixer.Play(res.clip, opts)

		c.delay = res.clip.Duration - overlap
		c.index = (c.index + 1) % len(idleSequence)
	default:
	}
}

// SwitchDelay returns the delay before leaving a clip of the given
// duration, honoring the overlap clamps.
func (c *IdleCycle) SwitchDelay(duration float64) float64 {
	return duration - overlapFor(c.tuning.IdleOverlapSeconds, duration)
}

// overlapFor clamps the cross-fade overlap so the switch delay stays
// positive and the overlap never exceeds duration - 0.1s.
func overlapFor(overlap, duration float64) float64 {
	if max := duration - 0.1; overlap > max {
		overlap = max
	}
	if overlap < 0 {
		overlap = 0
	}
	return overlap
}
