// Package gaze turns the avatar toward the viewer and aims its head and
// eyes, and applies the additive neck-tilt offset on top of the base
// animation pose.
package gaze

import (
	"math"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/locomotion"
)

// Source tags who asked for gaze, so the right caller is resumed when a
// pending body turn completes.
type Source int

const (
	// SourceAuto is the autonomous follow behavior.
	SourceAuto Source = iota

	// SourceManual is an explicit user action.
	SourceManual
)

// String returns a readable source tag.
func (s Source) String() string {
	if s == SourceManual {
		return "manual"
	}
	return "auto"
}

// ViewerProvider returns the viewer's head position, or false when no
// viewer is tracked.
type ViewerProvider func() (avatar.Vec3, bool)

// Controller aims the avatar at the viewer. Large heading deltas start
// a timed body turn first; gaze re-attempts automatically once the turn
// completes, on behalf of whichever source most recently asked.
type Controller struct {
	rig     avatar.Provider
	viewer  ViewerProvider
	report  func(string)
	tuning  *config.Tuning
	yawBusy func() bool // locomotion owns yaw while true

	turn          locomotion.TurnState
	pendingSource Source
	hasPending    bool
}

// NewController wires a gaze controller. yawBusy reports whether
// another controller (locomotion) currently owns yaw.
func NewController(rig avatar.Provider, viewer ViewerProvider, report func(string), tuning *config.Tuning, yawBusy func() bool) *Controller {
	return &Controller{
		rig:     rig,
		viewer:  viewer,
		report:  report,
		tuning:  tuning,
		yawBusy: yawBusy,
	}
}

// LookAtViewer aims at the viewer on behalf of src. Returns true when
// the head/eyes were aimed immediately; false when a body turn is in
// flight (or was just started), in which case the aim happens on turn
// completion using the most recently recorded source.
func (c *Controller) LookAtViewer(src Source) bool {
	rig := c.rig()
	if rig == nil {
		c.say("no avatar to look with")
		return false
	}

	head, ok := c.viewer()
	if !ok {
		c.say("viewer position unavailable")
		return false
	}

	if c.turn.Active {
		// Only remember who to notify; never start a second turn.
		c.pendingSource = src
		c.hasPending = true
		return false
	}

	heading := rig.Position().HeadingTo(head)
	delta := avatar.AngleDelta(rig.Yaw(), heading)

	if math.Abs(delta) > c.tuning.GazeTurnThreshold() {
		c.turn.Begin(rig.Yaw(), heading, c.tuning.TurnDuration(delta))
		c.pendingSource = src
		c.hasPending = true
		return false
	}

	return c.aim(rig, head)
}

// aim points the head/eyes at a world position. Models without gaze
// support skip the effect with a status message.
func (c *Controller) aim(rig avatar.Handle, at avatar.Vec3) bool {
	targeter, ok := rig.(avatar.GazeTargeter)
	if !ok {
		c.say("this model cannot move its eyes")
		return false
	}
	targeter.SetGazeTarget(at)
	return true
}

// Update advances a pending body turn. Yaw writes are deferred while
// locomotion is moving; the turn resumes afterward.
func (c *Controller) Update(dt float64) {
	if !c.turn.Active {
		return
	}
	if c.yawBusy != nil && c.yawBusy() {
		return
	}

	rig := c.rig()
	if rig == nil {
		c.turn.Clear()
		c.hasPending = false
		return
	}

	yaw, done := c.turn.Advance(dt)
	rig.SetYaw(yaw)

	if done && c.hasPending {
		src := c.pendingSource
		c.hasPending = false
		c.LookAtViewer(src)
	}
}

// InProgress reports whether a body turn is active.
func (c *Controller) InProgress() bool { return c.turn.Active }

// PendingSource returns the source recorded for the in-flight turn.
func (c *Controller) PendingSource() (Source, bool) {
	return c.pendingSource, c.hasPending
}

func (c *Controller) say(msg string) {
	if c.report != nil {
		c.report(msg)
	}
}
