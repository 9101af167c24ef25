// Package locomotion moves the avatar's logical position toward a
// target point on the ground plane, turning in place first when the
// heading change is large.
package locomotion

import (
	"context"
	"fmt"
	"math"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/playback"
)

// Options configures a BeginMoveTo call.
type Options struct {
	// PreserveAnimation keeps the walk clip playing after arrival
	// instead of stopping the mixer (wandering uses this so the idle
	// cross-fade can take over).
	PreserveAnimation bool

	// OnNoAvatar is invoked when no avatar is loaded.
	OnNoAvatar func()
}

// FinishOptions configures a FinishWalking call.
type FinishOptions struct {
	PreserveAnimation bool
}

type resolveResult struct {
	clip *clips.Clip
	err  error
}

// Controller owns the avatar's walking state. While moving it is the
// sole yaw owner; gaze body turns defer to it.
type Controller struct {
	rig      avatar.Provider
	mixer    *playback.Mixer
	resolver clips.Resolver
	report   func(string)
	tuning   *config.Tuning

	walkClip *clips.Clip

	moving  bool
	loading bool

	target   avatar.Vec3 // XZ; Y ignored
	pos      avatar.Vec3 // logical position, synced with the rig
	preserve bool
	turn     TurnState

	// resolved carries the in-flight resolution. Each request gets its
	// own buffered channel; cancellation abandons the channel so a stale
	// result can never shadow a fresh one.
	resolved chan resolveResult
}

// NewController wires a locomotion controller.
func NewController(rig avatar.Provider, mixer *playback.Mixer, resolver clips.Resolver, report func(string), tuning *config.Tuning) *Controller {
	return &Controller{
		rig:      rig,
		mixer:    mixer,
		resolver: resolver,
		report:   report,
		tuning:   tuning,
	}
}

// BeginMoveTo starts walking toward (x, z). It returns false without
// changing state when a move is already in flight, still loading, or no
// avatar is present (in which case opts.OnNoAvatar fires).
func (c *Controller) BeginMoveTo(x, z float64, opts Options) bool {
	if c.moving || c.loading {
		c.say("already walking")
		return false
	}

	rig := c.rig()
	if rig == nil {
		if opts.OnNoAvatar != nil {
			opts.OnNoAvatar()
		}
		return false
	}

	c.target = avatar.Vec3{X: x, Z: z}
	c.pos = rig.Position()
	c.preserve = opts.PreserveAnimation

	if c.walkClip != nil {
		c.startWalking(rig)
		return true
	}

	// The loading flag must cover the whole resolution window so
	// completion checks ("not moving and not loading") cannot race the
	// fetch and declare a premature arrival.
	c.loading = true
	ch := make(chan resolveResult, 1)
	c.resolved = ch
	go func() {
		clip, err := c.resolver.Resolve(context.Background(), clips.ClipWalk)
		ch <- resolveResult{clip: clip, err: err}
	}()
	return true
}

// startWalking begins playback and arms the pre-walk turn when needed.
func (c *Controller) startWalking(rig avatar.Handle) {
	opts := c.mixer.DefaultOptions()
	opts.Sync = true
	opts.Loop = playback.LoopRepeat
	_, _ = c.mixer.Play(c.walkClip, opts)

	heading := c.pos.HeadingTo(c.target)
	delta := avatar.AngleDelta(rig.Yaw(), heading)
	if math.Abs(delta) > c.tuning.TurnThreshold() {
		c.turn.Begin(rig.Yaw(), heading, c.tuning.TurnDuration(delta))
	} else {
		c.turn.Clear()
	}

	c.moving = true
}

// Update advances the walk by dt seconds.
func (c *Controller) Update(dt float64) {
	c.drainResolved()

	if !c.moving {
		return
	}

	rig := c.rig()
	if rig == nil {
		c.FinishWalking("", FinishOptions{})
		return
	}

	// Turn in place first: position must not change until the heading
	// has resolved.
	if c.turn.Active {
		yaw, done := c.turn.Advance(dt)
		rig.SetYaw(yaw)
		if !done {
			return
		}
	}

	dist := c.pos.DistXZ(c.target)
	step := c.tuning.WalkSpeed * dt

	if dist <= c.tuning.StopDistance || step >= dist {
		c.arrive(rig)
		return
	}

	heading := c.pos.HeadingTo(c.target)
	dir := avatar.Vec3{X: math.Sin(heading), Z: math.Cos(heading)}
	c.pos = c.pos.Add(dir.Scale(step))
	rig.SetPosition(c.pos)
	rig.SetYaw(heading)
}

// arrive snaps exactly onto the target and ends the walk.
func (c *Controller) arrive(rig avatar.Handle) {
	c.pos.X = c.target.X
	c.pos.Z = c.target.Z
	rig.SetPosition(c.pos)

	c.moving = false
	c.turn.Clear()

	if !c.preserve {
		c.mixer.Stop()
	}

	c.say(fmt.Sprintf("arrived at (%.1f, %.1f)", c.target.X, c.target.Z))
}

// FinishWalking cancels movement immediately. Higher-priority modes use
// it for preemption; it is safe at any tick, including mid-resolution.
func (c *Controller) FinishWalking(message string, opts FinishOptions) {
	c.resolved = nil // abandon any in-flight resolution

	wasActive := c.moving || c.loading
	c.moving = false
	c.loading = false
	c.turn.Clear()

	if wasActive && !opts.PreserveAnimation {
		c.mixer.Stop()
	}
	if message != "" {
		c.say(message)
	}
}

// drainResolved applies a finished clip resolution.
func (c *Controller) drainResolved() {
	if c.resolved == nil {
		return
	}
	select {
	case res := <-c.resolved:
		c.resolved = nil
		c.loading = false
		if res.err != nil {
			log.Component("locomotion").Warn("walk clip resolution failed", "error", res.err)
			c.say(fmt.Sprintf("cannot walk: %v", res.err))
			return
		}
		c.walkClip = res.clip

		rig := c.rig()
		if rig == nil {
			return
		}
		c.startWalking(rig)
	default:
	}
}

// IsMoving reports whether a walk is in progress.
func (c *Controller) IsMoving() bool { return c.moving }

// IsLoading reports whether the walk clip is still resolving.
func (c *Controller) IsLoading() bool { return c.loading }

// Position returns the logical position.
func (c *Controller) Position() avatar.Vec3 { return c.pos }

// ResetClipCache drops the cached walk clip, for avatar swaps.
func (c *Controller) ResetClipCache() {
	c.walkClip = nil
}

func (c *Controller) say(msg string) {
	if c.report != nil && msg != "" {
		c.report(msg)
	}
}
