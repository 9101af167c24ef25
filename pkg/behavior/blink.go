package behavior

import (
	"math/rand"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
)

// blinkPhase walks closing -> held-closed -> opening.
type blinkPhase int

const (
	blinkIdle blinkPhase = iota
	blinkClosing
	blinkClosed
	blinkOpening
)

// BlinkCycle drives a single eyelid-closure scalar through one blink.
// One instance serves the manual one-shot action; the automatic blinker
// owns a second, independent instance.
type BlinkCycle struct {
	rig        avatar.Provider
	tuning     *config.Tuning
	report     func(string)
	onComplete func()

	phase   blinkPhase
	elapsed float64
}

// NewBlinkCycle wires a blink cycle. onComplete may be nil.
func NewBlinkCycle(rig avatar.Provider, tuning *config.Tuning, report func(string), onComplete func()) *BlinkCycle {
	return &BlinkCycle{
		rig:        rig,
		tuning:     tuning,
		report:     report,
		onComplete: onComplete,
	}
}

// Start begins a blink. Returns false while one is already running or
// when the model has no expression support (reported, not fatal).
func (b *BlinkCycle) Start() bool {
	if b.phase != blinkIdle {
		return false
	}

	rig := b.rig()
	if rig == nil {
		b.say("no avatar to blink with")
		return false
	}
	if _, ok := rig.(avatar.ExpressionDriver); !ok {
		b.say("this model cannot blink")
		return false
	}

	b.phase = blinkClosing
	b.elapsed = 0
	return true
}

// InProgress reports whether a blink is mid-cycle.
func (b *BlinkCycle) InProgress() bool { return b.phase != blinkIdle }

// Update advances the cycle by dt seconds.
func (b *BlinkCycle) Update(dt float64) {
	if b.phase == blinkIdle {
		return
	}

	rig := b.rig()
	driver, ok := rig.(avatar.ExpressionDriver)
	if rig == nil || !ok {
		b.phase = blinkIdle
		return
	}

	b.elapsed += dt
	var closure float64

	switch b.phase {
	case blinkClosing:
		d := b.tuning.BlinkCloseSeconds
		if b.elapsed >= d {
			b.phase = blinkClosed
			b.elapsed = 0
			closure = 1
		} else {
			closure = b.elapsed / d
		}

	case blinkClosed:
		closure = 1
		if b.elapsed >= b.tuning.BlinkHoldSeconds {
			b.phase = blinkOpening
			b.elapsed = 0
		}

	case blinkOpening:
		d := b.tuning.BlinkOpenSeconds
		if b.elapsed >= d {
			closure = 0
			b.phase = blinkIdle
		} else {
			closure = 1 - b.elapsed/d
		}
	}

	driver.SetEyelidClosure(closure)

	if b.phase == blinkIdle && b.onComplete != nil {
		b.onComplete()
	}
}

func (b *BlinkCycle) say(msg string) {
	if b.report != nil {
		b.report(msg)
	}
}

// AutoBlink fires a blink at random intervals. It never fires while the
// manual cycle is mid-blink; it simply re-arms and tries again later.
type AutoBlink struct {
	cycle      *BlinkCycle
	tuning     *config.Tuning
	manualBusy func() bool
	rnd        *rand.Rand

	enabled bool
	timer   float64
}

// NewAutoBlink wires the automatic blinker around its own cycle.
func NewAutoBlink(rig avatar.Provider, tuning *config.Tuning, manualBusy func() bool) *AutoBlink {
	a := &AutoBlink{
		tuning:     tuning,
		manualBusy: manualBusy,
		rnd:        rand.New(rand.NewSource(rand.Int63())),
		enabled:    true,
	}
	a.cycle = NewBlinkCycle(rig, tuning, nil, a.rearm)
	a.rearm()
	return a
}

// SetEnabled switches the automatic blinker on or off.
func (a *AutoBlink) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// InProgress reports whether an automatic blink is mid-cycle.
func (a *AutoBlink) InProgress() bool { return a.cycle.InProgress() }

// Update advances the blinker by dt seconds.
func (a *AutoBlink) Update(dt float64) {
	if !a.enabled {
		return
	}

	if a.cycle.InProgress() {
		a.cycle.Update(dt)
		return
	}

	a.timer -= dt
	if a.timer > 0 {
		return
	}

	if a.manualBusy != nil && a.manualBusy() {
		a.rearm() // mutually exclusive at the moment of firing
		return
	}
	if !a.cycle.Start() {
		a.rearm()
		return
	}
	a.cycle.Update(dt)
}

// rearm draws the next interval uniformly from the configured window.
func (a *AutoBlink) rearm() {
	min, max := a.tuning.AutoBlinkMin, a.tuning.AutoBlinkMax
	a.timer = min + a.rnd.Float64()*(max-min)
}
