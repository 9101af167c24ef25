package behavior

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/gaze"
	"github.com/carl0967/vrm-chat-space/pkg/locomotion"
	"github.com/carl0967/vrm-chat-space/pkg/playback"
)

// Deps are the external collaborators the engine consumes. Everything
// else (rendering, model loading, input, speech) stays outside.
type Deps struct {
	Avatar   avatar.Provider
	Viewer   gaze.ViewerProvider
	Resolver clips.Resolver
	Status   func(string) // human-readable status sink; fire-and-forget
	Tuning   *config.Tuning
}

// Engine owns every controller and drives them in a fixed per-tick
// order. All entry points serialize on one mutex, so controller state
// only ever mutates on one goroutine at a time; within a tick the
// controllers need no further synchronization.
type Engine struct {
	mu sync.Mutex

	tuning *config.Tuning
	rig    avatar.Provider
	status func(string)

	mixer      *playback.Mixer
	loco       *locomotion.Controller
	gazer      *gaze.Controller
	neck       *gaze.NeckTilt
	idle       *IdleCycle
	wander     *Wander
	blink      *BlinkCycle
	auto       *AutoBlink
	dispatcher *Dispatcher
}

// New wires an engine from its collaborators.
func New(deps Deps) *Engine {
	e := &Engine{
		tuning: deps.Tuning,
		rig:    deps.Avatar,
		status: deps.Status,
	}
	report := e.report

	e.mixer = playback.NewMixer(deps.Avatar, deps.Tuning.DefaultFadeSeconds)
	e.loco = locomotion.NewController(deps.Avatar, e.mixer, deps.Resolver, report, deps.Tuning)
	e.gazer = gaze.NewController(deps.Avatar, deps.Viewer, report, deps.Tuning, e.loco.IsMoving)
	e.neck = gaze.NewNeckTilt(deps.Avatar, deps.Tuning)
	e.idle = NewIdleCycle(e.mixer, deps.Resolver, deps.Tuning, report, e.loco.IsMoving)
	e.wander = NewWander(e.loco, e.mixer, deps.Resolver, deps.Tuning, report)
	e.blink = NewBlinkCycle(deps.Avatar, deps.Tuning, report, e.returnToIdle)
	e.auto = NewAutoBlink(deps.Avatar, deps.Tuning, e.blink.InProgress)
	e.dispatcher = NewDispatcher(deps.Avatar, deps.Viewer, deps.Tuning, report, deps.Resolver,
		e.mixer, e.loco, e.gazer, e.neck, e.idle, e.wander, e.blink, e.auto, e.returnToIdle)

	return e
}

// report fans a status line out to the sink and the log.
func (e *Engine) report(msg string) {
	log.Component("engine").Info(msg)
	if e.status != nil {
		e.status(msg)
	}
}

// returnToIdle restores the idle cycle unless autonomous wandering is
// the active mode (it manages its own idling internally).
func (e *Engine) returnToIdle() {
	if !e.wander.Active() {
		e.idle.Activate()
	}
}

// ApplyTuning swaps in reloaded tuning values. Every controller shares
// the same Tuning pointer, so replacing the pointee under the engine
// lock is enough.
func (e *Engine) ApplyTuning(t config.Tuning) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*e.tuning = t
}

// ExecuteAction routes a discrete action request.
func (e *Engine) ExecuteAction(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.Execute(id)
}

// ExecuteNeck applies a manual neck angle in degrees, returning the
// applied (clamped) angle.
func (e *Engine) ExecuteNeck(deg float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.ExecuteNeck(deg)
}

// StartWander switches into autonomous wander mode, disabling the idle
// cycle: only one primary mode may drive the mixer.
func (e *Engine) StartWander() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idle.Deactivate()
	e.wander.Activate()
}

// StartIdle switches into idle-cycle mode, disabling wandering.
func (e *Engine) StartIdle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wander.Deactivate()
	e.idle.Activate()
}

// Update advances every controller by dt seconds. Write order per tick:
// the mixer applies the base pose first, then locomotion or a gaze turn
// owns yaw, then the neck tilt adds its offset, then the blinks.
func (e *Engine) Update(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mixer.Update(dt)
	e.loco.Update(dt)

	if e.wander.Active() {
		e.wander.Update(dt)
	} else {
		e.idle.Update(dt)
	}
	e.dispatcher.Update(dt)

	e.gazer.Update(dt)
	e.neck.Update(dt)

	e.blink.Update(dt)
	e.auto.Update(dt)
}

// HandleAvatarReady resets everything cached against the previous model
// and drops into autonomous wandering, the default mode.
func (e *Engine) HandleAvatarReady() {
	e.mu.Lock()
	e.mixer.Stop()
	e.mixer.ResetBones()
	e.neck.Reset()
	e.loco.ResetClipCache()
	e.wander.ResetClipCache()
	e.dispatcher.ResetClipCache()
	e.idle.Deactivate()
	e.mu.Unlock()

	e.report("model ready")
	e.StartWander()
}

// Run drives Update at the configured tick rate until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	dt := 1.0 / e.tuning.TickRate
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	log.Component("engine").Info("tick loop started", "hz", e.tuning.TickRate)
	for {
		select {
		case <-ctx.Done():
			log.Component("engine").Info("tick loop stopped")
			return
		case <-ticker.C:
			e.Update(dt)
		}
	}
}

// IsMoving reports whether locomotion is walking.
func (e *Engine) IsMoving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loco.IsMoving()
}

// IsLoading reports whether a walk clip resolution is in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loco.IsLoading()
}

// IsInProgress reports whether a foreground action is in flight.
func (e *Engine) IsInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatcher.InProgress()
}

// Mode names the primary mode currently driving the mixer.
func (e *Engine) Mode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modeLocked()
}

func (e *Engine) modeLocked() string {
	switch {
	case e.dispatcher.InProgress():
		return "action"
	case e.wander.Active():
		return "wander"
	case e.idle.Active():
		return "idle"
	default:
		return "none"
	}
}

// Snapshot is the engine state exposed to the UI layer.
type Snapshot struct {
	Mode        string         `json:"mode"`
	Action      string         `json:"action,omitempty"`
	Position    avatar.Vec3    `json:"position"`
	Yaw         float64        `json:"yaw"`
	Moving      bool           `json:"moving"`
	Loading     bool           `json:"loading"`
	Playback    playback.State `json:"playback"`
	NeckDegrees float64        `json:"neck_degrees"`
}

// State returns a snapshot of the engine for introspection.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Mode:        e.modeLocked(),
		Action:      e.dispatcher.CurrentAction(),
		Moving:      e.loco.IsMoving(),
		Loading:     e.loco.IsLoading(),
		Playback:    e.mixer.State(),
		NeckDegrees: e.neck.Target() * 180 / math.Pi,
	}
	if rig := e.rig(); rig != nil {
		s.Position = rig.Position()
		s.Yaw = rig.Yaw()
	}
	return s
}
