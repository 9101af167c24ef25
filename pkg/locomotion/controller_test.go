package locomotion

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/playback"
)

const dt = 1.0 / 60

type fixture struct {
	rig     *avatar.SimRig
	mixer   *playback.Mixer
	ctrl    *Controller
	reports []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		t.Fatal(err)
	}

	f := &fixture{rig: avatar.NewSimRig()}
	tuning := config.Default()
	provider := func() avatar.Handle { return f.rig }
	f.mixer = playback.NewMixer(provider, tuning.DefaultFadeSeconds)
	f.ctrl = NewController(provider, f.mixer, clips.NewCatalogResolver(catalog),
		func(msg string) { f.reports = append(f.reports, msg) }, &tuning)
	return f
}

// step runs ticks until the walk fully completes or the limit is hit.
func (f *fixture) step(ticks int) {
	for i := 0; i < ticks; i++ {
		f.mixer.Update(dt)
		f.ctrl.Update(dt)
	}
}

// waitResolved polls until the async clip resolution lands.
func (f *fixture) waitResolved(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.ctrl.Update(dt)
		if !f.ctrl.IsLoading() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("clip resolution never completed")
}

func (f *fixture) lastReport() string {
	if len(f.reports) == 0 {
		return ""
	}
	return f.reports[len(f.reports)-1]
}

func TestWalkArrivesExactly(t *testing.T) {
	f := newFixture(t)

	if !f.ctrl.BeginMoveTo(1, 1, Options{}) {
		t.Fatal("Expected BeginMoveTo to start")
	}
	f.waitResolved(t)
	f.step(600) // 10s at full speed, plenty for ~1.4m

	if f.ctrl.IsMoving() {
		t.Fatal("Expected walk to complete")
	}
	pos := f.rig.Position()
	if pos.X != 1 || pos.Z != 1 {
		t.Errorf("Expected exact arrival at (1, 1), got (%v, %v)", pos.X, pos.Z)
	}
	if f.lastReport() != "arrived at (1.0, 1.0)" {
		t.Errorf("Expected arrival report, got %q", f.lastReport())
	}
	if f.mixer.IsPlaying() {
		t.Error("Expected walk animation stopped after arrival")
	}
}

func TestPreserveAnimationKeepsClipPlaying(t *testing.T) {
	f := newFixture(t)

	f.ctrl.BeginMoveTo(0.5, 0, Options{PreserveAnimation: true})
	f.waitResolved(t)
	f.step(300)

	if f.ctrl.IsMoving() {
		t.Fatal("Expected walk to complete")
	}
	if !f.mixer.IsPlaying() {
		t.Error("Expected walk animation preserved after arrival")
	}
}

func TestRejectsSecondMoveWhileWalking(t *testing.T) {
	f := newFixture(t)

	f.ctrl.BeginMoveTo(2, 0, Options{})
	f.waitResolved(t)

	if f.ctrl.BeginMoveTo(-2, 0, Options{}) {
		t.Error("Expected second move to be rejected")
	}
	if f.lastReport() != "already walking" {
		t.Errorf("Expected busy report, got %q", f.lastReport())
	}
}

func TestNoAvatarCallback(t *testing.T) {
	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		t.Fatal(err)
	}
	tuning := config.Default()
	provider := func() avatar.Handle { return nil }
	mixer := playback.NewMixer(provider, tuning.DefaultFadeSeconds)
	ctrl := NewController(provider, mixer, clips.NewCatalogResolver(catalog), nil, &tuning)

	fired := false
	if ctrl.BeginMoveTo(1, 0, Options{OnNoAvatar: func() { fired = true }}) {
		t.Error("Expected move without avatar to fail")
	}
	if !fired {
		t.Error("Expected OnNoAvatar callback")
	}
}

func TestTurnsInPlaceBeforeWalkingBackward(t *testing.T) {
	f := newFixture(t)

	// Target directly behind: heading delta pi, over the turn threshold.
	f.ctrl.BeginMoveTo(0, -2, Options{})
	f.waitResolved(t)

	// During the turn the position must hold still.
	f.step(6) // 0.1s, well inside the minimum turn duration
	pos := f.rig.Position()
	if pos.X != 0 || pos.Z != 0 {
		t.Fatalf("Expected position frozen during turn, got (%v, %v)", pos.X, pos.Z)
	}
	if f.rig.Yaw() == 0 {
		t.Error("Expected yaw to start changing during turn")
	}

	f.step(600)
	if f.ctrl.IsMoving() {
		t.Fatal("Expected walk to complete")
	}
	pos = f.rig.Position()
	if pos.Z != -2 {
		t.Errorf("Expected arrival at z=-2, got %v", pos.Z)
	}
	if math.Abs(math.Abs(f.rig.Yaw())-math.Pi) > 1e-6 {
		t.Errorf("Expected final yaw pi, got %v", f.rig.Yaw())
	}
}

func TestSmallHeadingChangeSkipsTurn(t *testing.T) {
	f := newFixture(t)

	// Target ahead and slightly right: under the 120 degree threshold.
	f.ctrl.BeginMoveTo(0.5, 2, Options{})
	f.waitResolved(t)

	f.step(1)
	pos := f.rig.Position()
	if pos.X == 0 && pos.Z == 0 {
		t.Error("Expected walking to begin immediately without a turn")
	}
}

func TestFinishWalkingPreempts(t *testing.T) {
	f := newFixture(t)

	f.ctrl.BeginMoveTo(5, 0, Options{})
	f.waitResolved(t)
	f.step(30)

	f.ctrl.FinishWalking("stopped short", FinishOptions{})
	if f.ctrl.IsMoving() {
		t.Error("Expected movement cancelled")
	}
	if f.mixer.IsPlaying() {
		t.Error("Expected animation stopped")
	}
	if f.lastReport() != "stopped short" {
		t.Errorf("Expected cancel report, got %q", f.lastReport())
	}

	pos := f.rig.Position()
	if pos.X == 0 || pos.X == 5 {
		t.Errorf("Expected stop partway, got x=%v", pos.X)
	}

	// The controller accepts a new move afterwards.
	if !f.ctrl.BeginMoveTo(1, 0, Options{}) {
		t.Error("Expected new move after cancellation")
	}
}

type slowResolver struct {
	release chan struct{}
	catalog *clips.Catalog
}

func (r *slowResolver) Resolve(ctx context.Context, id string) (*clips.Clip, error) {
	<-r.release
	return r.catalog.Get(id)
}

func TestLoadingFlagCoversResolution(t *testing.T) {
	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		t.Fatal(err)
	}
	resolver := &slowResolver{release: make(chan struct{}), catalog: catalog}

	rig := avatar.NewSimRig()
	tuning := config.Default()
	provider := func() avatar.Handle { return rig }
	mixer := playback.NewMixer(provider, tuning.DefaultFadeSeconds)
	ctrl := NewController(provider, mixer, resolver, nil, &tuning)

	if !ctrl.BeginMoveTo(1, 0, Options{}) {
		t.Fatal("Expected move to start")
	}
	if !ctrl.IsLoading() {
		t.Fatal("Expected loading flag during resolution")
	}
	if ctrl.IsMoving() {
		t.Fatal("Expected not moving until the clip lands")
	}
	if ctrl.BeginMoveTo(2, 0, Options{}) {
		t.Error("Expected moves rejected while loading")
	}

	close(resolver.release)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !ctrl.IsMoving() {
		ctrl.Update(dt)
		time.Sleep(5 * time.Millisecond)
	}
	if !ctrl.IsMoving() {
		t.Fatal("Expected walking after resolution")
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(ctx context.Context, id string) (*clips.Clip, error) {
	return nil, errors.New("catalog offline")
}

func TestResolutionFailureReports(t *testing.T) {
	rig := avatar.NewSimRig()
	tuning := config.Default()
	provider := func() avatar.Handle { return rig }
	mixer := playback.NewMixer(provider, tuning.DefaultFadeSeconds)

	var reports []string
	ctrl := NewController(provider, mixer, failingResolver{},
		func(msg string) { reports = append(reports, msg) }, &tuning)

	ctrl.BeginMoveTo(1, 0, Options{})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && ctrl.IsLoading() {
		ctrl.Update(dt)
		time.Sleep(5 * time.Millisecond)
	}
	if ctrl.IsLoading() || ctrl.IsMoving() {
		t.Fatal("Expected failed resolution to clear all flags")
	}
	if len(reports) == 0 {
		t.Fatal("Expected a failure report")
	}
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		t.Fatal(err)
	}
	resolver := &slowResolver{release: make(chan struct{}), catalog: catalog}

	rig := avatar.NewSimRig()
	tuning := config.Default()
	provider := func() avatar.Handle { return rig }
	mixer := playback.NewMixer(provider, tuning.DefaultFadeSeconds)
	ctrl := NewController(provider, mixer, resolver, nil, &tuning)

	ctrl.BeginMoveTo(1, 0, Options{})
	ctrl.FinishWalking("", FinishOptions{}) // cancel mid-resolution
	close(resolver.release)

	time.Sleep(50 * time.Millisecond)
	ctrl.Update(dt)
	if ctrl.IsMoving() {
		t.Error("Expected stale resolution not to start a walk")
	}
}

// gateFirstResolver blocks only the first lookup; later lookups resolve
// instantly.
type gateFirstResolver struct {
	release chan struct{}
	catalog *clips.Catalog
	calls   atomic.Int32
}

func (r *gateFirstResolver) Resolve(ctx context.Context, id string) (*clips.Clip, error) {
	if r.calls.Add(1) == 1 {
		<-r.release
	}
	return r.catalog.Get(id)
}

func TestCancelledResolutionDoesNotBlockNextWalk(t *testing.T) {
	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		t.Fatal(err)
	}
	resolver := &gateFirstResolver{release: make(chan struct{}), catalog: catalog}

	rig := avatar.NewSimRig()
	tuning := config.Default()
	provider := func() avatar.Handle { return rig }
	mixer := playback.NewMixer(provider, tuning.DefaultFadeSeconds)
	ctrl := NewController(provider, mixer, resolver, nil, &tuning)

	ctrl.BeginMoveTo(1, 0, Options{})
	ctrl.FinishWalking("", FinishOptions{}) // cancel mid-resolution
	close(resolver.release)                 // the cancelled result lands afterwards
	time.Sleep(50 * time.Millisecond)

	// The next walk resolves instantly and must not be swallowed by the
	// abandoned result.
	if !ctrl.BeginMoveTo(2, 0, Options{}) {
		t.Fatal("Expected a new walk after cancellation")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !ctrl.IsMoving() {
		ctrl.Update(dt)
		time.Sleep(5 * time.Millisecond)
	}
	if ctrl.IsLoading() {
		t.Fatal("Expected loading flag cleared after the fresh resolution")
	}
	if !ctrl.IsMoving() {
		t.Fatal("Expected the second walk to start")
	}
}

func TestTurnStateEasing(t *testing.T) {
	var turn TurnState
	turn.Begin(0, math.Pi/2, 0.5)

	yaw, done := turn.Advance(0.25)
	if done {
		t.Fatal("Expected turn still active at midpoint")
	}
	// Smoothstep midpoint is exactly half the arc
	if math.Abs(yaw-math.Pi/4) > 1e-9 {
		t.Errorf("Expected midpoint yaw pi/4, got %v", yaw)
	}

	yaw, done = turn.Advance(0.3)
	if !done {
		t.Fatal("Expected turn complete")
	}
	if yaw != math.Pi/2 {
		t.Errorf("Expected exact target yaw, got %v", yaw)
	}
	if turn.Active {
		t.Error("Expected state deactivated")
	}
}
