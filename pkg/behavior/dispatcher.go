package behavior

import (
	"context"
	"fmt"
	"math"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/gaze"
	"github.com/carl0967/vrm-chat-space/pkg/locomotion"
	"github.com/carl0967/vrm-chat-space/pkg/playback"
)

// Discrete action identifiers.
const (
	ActionComeHere      = "comeHere"
	ActionComeHereFront = "comeHereFront"
	ActionIdle          = "idle"
	ActionLookAt        = "lookAt"
	ActionLookAtNeck    = "lookAtNeck"
	ActionGesture       = "gesture"
	ActionMoveNeck      = "moveNeck"
	ActionBlink         = "blink"
)

// frontPhase tracks the comeHereFront sub-phase chain.
type frontPhase int

const (
	frontInactive frontPhase = iota
	frontWalking
	frontTurning
)

type waveResolved struct {
	clip *clips.Clip
	err  error
}

// Dispatcher routes externally requested actions to the matching
// controllers, keeps at most one foreground action in flight and hands
// control back to the idle mode when an action finishes.
type Dispatcher struct {
	rig      avatar.Provider
	viewer   gaze.ViewerProvider
	tuning   *config.Tuning
	report   func(string)
	resolver clips.Resolver

	mixer  *playback.Mixer
	loco   *locomotion.Controller
	gazer  *gaze.Controller
	neck   *gaze.NeckTilt
	idle   *IdleCycle
	wander *Wander
	blink  *BlinkCycle
	auto   *AutoBlink

	returnToIdle func()

	current string

	// comeHereFront chained state
	front     frontPhase
	frontTurn locomotion.TurnState

	// gesture action state
	waveClip    *clips.Clip
	waveLoading bool
	waveAction  *playback.Action

	// resolved carries the in-flight clip lookup; each lookup gets its
	// own buffered channel so an abandoned one can never shadow a fresh
	// result.
	resolved chan waveResolved
}

// NewDispatcher wires the action dispatcher.
func NewDispatcher(rig avatar.Provider, viewer gaze.ViewerProvider, tuning *config.Tuning, report func(string), resolver clips.Resolver,
	mixer *playback.Mixer, loco *locomotion.Controller, gazer *gaze.Controller, neck *gaze.NeckTilt,
	idle *IdleCycle, wander *Wander, blink *BlinkCycle, auto *AutoBlink, returnToIdle func()) *Dispatcher {
	return &Dispatcher{
		rig:          rig,
		viewer:       viewer,
		tuning:       tuning,
		report:       report,
		resolver:     resolver,
		mixer:        mixer,
		loco:         loco,
		gazer:        gazer,
		neck:         neck,
		idle:         idle,
		wander:       wander,
		blink:        blink,
		auto:         auto,
		returnToIdle: returnToIdle,
	}
}

// Execute routes a single action request. Most actions stop autonomous
// wandering and idle cycling first; blink and moveNeck leave the
// primary mode alone because they never touch the mixer.
func (d *Dispatcher) Execute(id string) error {
	switch id {
	case ActionIdle:
		d.stopPrimaries()
		d.idle.Activate()
		return nil

	case ActionComeHere:
		return d.executeComeHere()

	case ActionComeHereFront:
		return d.executeComeHereFront()

	case ActionLookAt:
		d.stopPrimaries()
		d.beginGaze(ActionLookAt)
		return nil

	case ActionLookAtNeck:
		d.stopPrimaries()
		d.neck.SetTarget(d.tuning.LookAtNeckTiltDeg * math.Pi / 180)
		d.beginGaze(ActionLookAtNeck)
		return nil

	case ActionGesture:
		d.stopPrimaries()
		d.fireWave()
		d.current = ActionGesture
		return nil

	case ActionBlink:
		if d.auto.InProgress() {
			d.say("already mid-blink")
			return nil
		}
		if d.blink.Start() {
			d.current = ActionBlink
		}
		return nil

	case ActionMoveNeck:
		return fmt.Errorf("action %q requires an angle; use ExecuteNeck", id)

	default:
		return fmt.Errorf("unknown action %q", id)
	}
}

// ExecuteNeck applies a manual neck angle in degrees and returns the
// applied (clamped) angle in degrees. The primary mode keeps running.
func (d *Dispatcher) ExecuteNeck(deg float64) float64 {
	applied := d.neck.SetTarget(deg * math.Pi / 180)
	return applied * 180 / math.Pi
}

func (d *Dispatcher) executeComeHere() error {
	d.stopPrimaries()
	d.cancelApproach()

	head, ok := d.viewer()
	if !ok {
		d.say("cannot see you right now")
		return fmt.Errorf("viewer position unavailable")
	}

	started := d.loco.BeginMoveTo(head.X, head.Z, locomotion.Options{
		OnNoAvatar: func() { d.say("load a model first") },
	})
	if started {
		d.current = ActionComeHere
	}
	return nil
}

func (d *Dispatcher) executeComeHereFront() error {
	d.stopPrimaries()
	d.cancelApproach()

	rig := d.rig()
	if rig == nil {
		d.say("load a model first")
		return fmt.Errorf("no avatar loaded")
	}
	head, ok := d.viewer()
	if !ok {
		d.say("cannot see you right now")
		return fmt.Errorf("viewer position unavailable")
	}

	// Close enough already: skip the walk and go straight to facing.
	// The skip radius is deliberately distinct from the standoff.
	if rig.Position().DistXZ(head) < d.tuning.FrontSkipRadius {
		d.front = frontTurning
		d.current = ActionComeHereFront
		return nil
	}

	heading := head.HeadingTo(rig.Position())
	dir := avatar.Vec3{X: math.Sin(heading), Z: math.Cos(heading)}
	target := head.Add(dir.Scale(d.tuning.FrontOffset))

	started := d.loco.BeginMoveTo(target.X, target.Z, locomotion.Options{
		PreserveAnimation: true,
		OnNoAvatar:        func() { d.say("load a model first") },
	})
	if !started {
		return fmt.Errorf("could not start approach")
	}
	d.front = frontWalking
	d.current = ActionComeHereFront
	return nil
}

// beginGaze asks the gaze controller to aim; an immediate success means
// the action completed on the spot.
func (d *Dispatcher) beginGaze(id string) {
	aimed := d.gazer.LookAtViewer(gaze.SourceManual)
	if !aimed && d.gazer.InProgress() {
		d.current = id
		return
	}
	d.returnToIdle()
}

// Update advances in-flight action state and polls completion.
func (d *Dispatcher) Update(dt float64) {
	d.drainResolved()
	d.advanceFront(dt)

	if d.waveAction != nil && d.waveAction.Finished() {
		d.waveAction = nil
	}

	if d.current == "" {
		return
	}
	if d.actionInProgress(d.current) {
		return
	}

	finished := d.current
	d.current = ""
	log.Component("actions").Debug("action finished", "action", finished)
	d.returnToIdle()
}

// advanceFront runs the comeHereFront chain:
// walk (preserving animation) -> turn to face -> tilt the neck when the
// viewer is low -> lock the gaze.
func (d *Dispatcher) advanceFront(dt float64) {
	switch d.front {
	case frontWalking:
		if d.loco.IsMoving() || d.loco.IsLoading() {
			return
		}
		d.front = frontTurning

	case frontTurning:
		rig := d.rig()
		if rig == nil {
			d.front = frontInactive
			d.frontTurn.Clear()
			return
		}
		head, ok := d.viewer()
		if !ok {
			d.front = frontInactive
			d.frontTurn.Clear()
			return
		}

		if !d.frontTurn.Active {
			heading := rig.Position().HeadingTo(head)
			delta := avatar.AngleDelta(rig.Yaw(), heading)
			if math.Abs(delta) < 0.05 {
				d.finishFacing(rig, head)
				return
			}
			d.frontTurn.Begin(rig.Yaw(), heading, d.tuning.TurnDuration(delta))
		}

		yaw, done := d.frontTurn.Advance(dt)
		rig.SetYaw(yaw)
		if done {
			d.finishFacing(rig, head)
		}
	}
}

// finishFacing runs the tail of the approach chain.
func (d *Dispatcher) finishFacing(rig avatar.Handle, head avatar.Vec3) {
	d.front = frontInactive
	d.frontTurn.Clear()

	if head.Y < d.tuning.LowViewerHeight {
		d.neck.SetTarget(d.tuning.FrontTiltDeg * math.Pi / 180)
	}

	if targeter, ok := rig.(avatar.GazeTargeter); ok {
		targeter.SetGazeTarget(head)
	} else {
		d.say("this model cannot move its eyes")
	}
}

// fireWave plays the greeting clip once, resolving it on first use.
func (d *Dispatcher) fireWave() {
	if d.waveLoading {
		return // in-flight guard
	}
	if d.waveClip != nil {
		d.playWave(d.waveClip)
		return
	}

	d.waveLoading = true
	ch := make(chan waveResolved, 1)
	d.resolved = ch
	go func() {
		clip, err := d.resolver.Resolve(context.Background(), clips.ClipGreeting)
		ch <- waveResolved{clip: clip, err: err}
	}()
}

func (d *Dispatcher) playWave(clip *clips.Clip) {
	opts := d.mixer.DefaultOptions()
	opts.Loop = playback.LoopOnce
	// Neck and head stay with the gaze and tilt controllers, same as the
	// idle clips.
	opts.ExcludeBones = idleExcludedBones
	if a, ok := d.mixer.Play(clip, opts); ok {
		d.waveAction = a
	}
}

func (d *Dispatcher) drainResolved() {
	if d.resolved == nil {
		return
	}
	select {
	case res := <-d.resolved:
		d.resolved = nil
		d.waveLoading = false
		if res.err != nil {
			log.Component("actions").Warn("gesture clip resolution failed", "error", res.err)
			d.say(fmt.Sprintf("gesture unavailable: %v", res.err))
			if d.current == ActionGesture {
				d.current = ""
				d.returnToIdle()
			}
			return
		}
		d.waveClip = res.clip
		d.playWave(res.clip)
	default:
	}
}

// actionInProgress is the per-action completion predicate.
func (d *Dispatcher) actionInProgress(id string) bool {
	switch id {
	case ActionComeHere:
		return d.loco.IsMoving() || d.loco.IsLoading()
	case ActionComeHereFront:
		return d.loco.IsMoving() || d.loco.IsLoading() || d.front != frontInactive
	case ActionLookAt, ActionLookAtNeck:
		return d.gazer.InProgress()
	case ActionGesture:
		return d.waveLoading || d.waveAction != nil
	case ActionBlink:
		return d.blink.InProgress()
	}
	return false
}

// stopPrimaries halts autonomous wandering and idle cycling before a
// foreground action takes the mixer.
func (d *Dispatcher) stopPrimaries() {
	d.wander.Deactivate()
	d.idle.Deactivate()
}

// cancelApproach cancels an in-flight come-here-family walk so only one
// is ever in flight.
func (d *Dispatcher) cancelApproach() {
	if d.current != ActionComeHere && d.current != ActionComeHereFront {
		return
	}
	d.loco.FinishWalking("", locomotion.FinishOptions{})
	d.front = frontInactive
	d.frontTurn.Clear()
	d.current = ""
}

// InProgress reports whether a foreground action is in flight.
func (d *Dispatcher) InProgress() bool { return d.current != "" }

// CurrentAction returns the in-flight action id, or "".
func (d *Dispatcher) CurrentAction() string { return d.current }

// ResetClipCache drops cached clips, for avatar swaps.
func (d *Dispatcher) ResetClipCache() {
	d.waveClip = nil
}

func (d *Dispatcher) say(msg string) {
	if d.report != nil {
		d.report(msg)
	}
}
