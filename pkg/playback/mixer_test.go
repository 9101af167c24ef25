package playback

import (
	"math"
	"testing"

	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
)

func rampClip(name string, dur float64, node string) *clips.Clip {
	return &clips.Clip{
		Name:     name,
		Duration: dur,
		Tracks: []clips.Track{{
			Node:      node,
			Times:     []float64{0, dur},
			Rotations: [][3]float64{{0, 0, 0}, {1, 0, 0}},
		}},
	}
}

func newTestMixer() (*Mixer, *avatar.SimRig) {
	rig := avatar.NewSimRig()
	m := NewMixer(func() avatar.Handle { return rig }, 0.5)
	return m, rig
}

func TestPlayIsIdempotentForSameLabel(t *testing.T) {
	m, _ := newTestMixer()
	clip := rampClip("wave", 1, "chest")

	a1, ok := m.Play(clip, m.DefaultOptions())
	if !ok {
		t.Fatal("Expected play to succeed")
	}
	m.Update(0.2)

	a2, ok := m.Play(clip, m.DefaultOptions())
	if !ok {
		t.Fatal("Expected second play to succeed")
	}
	if a1.ID() != a2.ID() {
		t.Error("Expected repeated play of the same label to return the running action")
	}
	if a2.Time() != a1.Time() {
		t.Error("Expected repeated play not to restart the clock")
	}
}

func TestPlayWithoutAvatarIsNoop(t *testing.T) {
	m := NewMixer(func() avatar.Handle { return nil }, 0.5)
	if _, ok := m.Play(rampClip("x", 1, "chest"), m.DefaultOptions()); ok {
		t.Error("Expected play without avatar to report failure")
	}
}

func TestCrossFadeBlendsPoses(t *testing.T) {
	m, rig := newTestMixer()

	// Hold a constant pose at X=1, then fade to a constant X=0 pose.
	from := &clips.Clip{
		Name: "from", Duration: 10,
		Tracks: []clips.Track{{
			Node: "chest", Times: []float64{0}, Rotations: [][3]float64{{1, 0, 0}},
		}},
	}
	to := &clips.Clip{
		Name: "to", Duration: 10,
		Tracks: []clips.Track{{
			Node: "chest", Times: []float64{0}, Rotations: [][3]float64{{0, 0, 0}},
		}},
	}

	m.Play(from, Options{})
	m.Update(0.1)

	opts := m.DefaultOptions() // 0.5s fade
	m.Play(to, opts)

	m.Update(0.25) // halfway through the fade
	bone, _ := rig.Bone(avatar.BoneChest)
	got := bone.Rotation().X
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected mid-fade X 0.5, got %v", got)
	}

	m.Update(0.25) // fade complete
	m.Update(0.1)
	got = bone.Rotation().X
	if math.Abs(got) > 1e-9 {
		t.Errorf("Expected post-fade X 0, got %v", got)
	}
}

func TestHardCutSkipsFade(t *testing.T) {
	m, rig := newTestMixer()

	from := &clips.Clip{
		Name: "from", Duration: 10,
		Tracks: []clips.Track{{
			Node: "chest", Times: []float64{0}, Rotations: [][3]float64{{1, 0, 0}},
		}},
	}
	to := &clips.Clip{
		Name: "to", Duration: 10,
		Tracks: []clips.Track{{
			Node: "chest", Times: []float64{0}, Rotations: [][3]float64{{0, 0, 0}},
		}},
	}

	m.Play(from, Options{})
	m.Update(0.1)
	m.Play(to, Options{Fade: 0})
	m.Update(0.01)

	bone, _ := rig.Bone(avatar.BoneChest)
	if got := bone.Rotation().X; math.Abs(got) > 1e-9 {
		t.Errorf("Expected hard cut to new pose, got X %v", got)
	}
}

func TestPhaseSyncCarriesClock(t *testing.T) {
	m, _ := newTestMixer()

	a := rampClip("a", 1, "chest")
	b := rampClip("b", 1, "chest")

	m.Play(a, Options{Loop: LoopRepeat})
	m.Update(0.4)

	act, _ := m.Play(b, Options{Sync: true})
	if math.Abs(act.Time()-0.4) > 1e-9 {
		t.Errorf("Expected synced start at 0.4, got %v", act.Time())
	}

	// Sync wraps when the new clip is shorter than the elapsed phase
	m.Update(0.4) // b at 0.8
	short := rampClip("short", 0.5, "chest")
	act, _ = m.Play(short, Options{Sync: true})
	if math.Abs(act.Time()-0.3) > 1e-9 {
		t.Errorf("Expected wrapped sync at 0.3, got %v", act.Time())
	}
}

func TestLoopOnceFinishesAndClamps(t *testing.T) {
	m, rig := newTestMixer()
	clip := rampClip("once", 1, "chest")

	act, _ := m.Play(clip, Options{Loop: LoopOnce, Clamp: true})
	for i := 0; i < 15; i++ {
		m.Update(0.1)
	}
	if !act.Finished() {
		t.Fatal("Expected action to finish")
	}
	if act.Time() != 1 {
		t.Errorf("Expected clamped time at duration, got %v", act.Time())
	}

	// Clamped action keeps writing its last pose
	bone, _ := rig.Bone(avatar.BoneChest)
	bone.SetRotation(avatar.Vec3{})
	m.Update(0.1)
	if got := bone.Rotation().X; math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected clamped pose X 1, got %v", got)
	}
}

func TestLoopRepeatCountsCycles(t *testing.T) {
	m, _ := newTestMixer()
	clip := rampClip("twice", 1, "chest")

	act, _ := m.Play(clip, Options{Loop: LoopRepeat, Repetitions: 2})
	for i := 0; i < 25; i++ {
		m.Update(0.1)
	}
	if act.Time() > 1 {
		t.Errorf("Expected wrapped clock, got %v", act.Time())
	}
	if !act.Finished() {
		t.Error("Expected two-rep action to finish")
	}

	forever, _ := m.Play(rampClip("forever", 1, "chest"), Options{Loop: LoopRepeat})
	for i := 0; i < 50; i++ {
		m.Update(0.1)
	}
	if forever.Finished() {
		t.Error("Expected zero-rep loop to run forever")
	}
}

func TestExcludeBonesLeavesThemUntouched(t *testing.T) {
	m, rig := newTestMixer()

	clip := &clips.Clip{
		Name: "full", Duration: 1,
		Tracks: []clips.Track{
			{Node: "chest", Times: []float64{0}, Rotations: [][3]float64{{1, 0, 0}}},
			{Node: "neck", Times: []float64{0}, Rotations: [][3]float64{{1, 0, 0}}},
		},
	}

	neck, _ := rig.Bone(avatar.BoneNeck)
	neck.SetRotation(avatar.Vec3{X: 0.25})

	m.Play(clip, Options{ExcludeBones: []string{"neck"}})
	m.Update(0.1)

	if got := neck.Rotation().X; got != 0.25 {
		t.Errorf("Expected excluded neck untouched at 0.25, got %v", got)
	}
	chest, _ := rig.Bone(avatar.BoneChest)
	if got := chest.Rotation().X; math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected chest driven to 1, got %v", got)
	}
}

func TestStopClearsState(t *testing.T) {
	m, _ := newTestMixer()
	m.Play(rampClip("x", 1, "chest"), m.DefaultOptions())
	m.Stop()

	if m.IsPlaying() {
		t.Error("Expected stopped mixer to report not playing")
	}
	if m.CurrentLabel() != "" {
		t.Errorf("Expected empty label, got %q", m.CurrentLabel())
	}
	if s := m.State(); s.ActionID != "" {
		t.Errorf("Expected empty state action id, got %q", s.ActionID)
	}
}
