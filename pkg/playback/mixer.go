// Package playback owns the shared animation mixer.
//
// Exactly one action is authoritative on the mixer at a time; starting a
// new one cross-fades the previous action out. All other controllers
// submit play requests and never touch the playback state directly.
package playback

import (
	"math"

	"github.com/google/uuid"

	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
)

// Options configures a single Play call. Build from DefaultOptions so an
// unset Fade keeps the mixer's default; an explicit zero is a hard cut.
type Options struct {
	Fade         float64  // cross-fade seconds against the previous action
	Sync         bool     // phase-synchronize with the current action
	Loop         LoopMode // loop behavior
	Repetitions  int      // loop count for LoopRepeat; 0 = forever
	Clamp        bool     // freeze the last pose when finished
	ExcludeBones []string // bone nodes to strip before playing
	Label        string   // debug label; defaults to the clip name
}

// State is the single mutable record of what is authoritative on the
// mixer, snapshot for introspection.
type State struct {
	ActionID    string  `json:"action_id"`
	Label       string  `json:"label"`
	DefaultFade float64 `json:"default_fade"`
}

// fadeOut tracks the previous action blending away under the new one.
type fadeOut struct {
	action   *Action
	duration float64
	elapsed  float64
}

// Mixer plays clips onto the avatar's bones.
type Mixer struct {
	rig   avatar.Provider
	bones *avatar.BoneCache

	defaultFade float64
	current     *Action
	out         *fadeOut
}

// NewMixer creates a mixer over the given avatar provider.
func NewMixer(rig avatar.Provider, defaultFade float64) *Mixer {
	return &Mixer{
		rig:         rig,
		bones:       avatar.NewBoneCache(rig),
		defaultFade: defaultFade,
	}
}

// DefaultOptions returns Options carrying the mixer's default fade.
func (m *Mixer) DefaultOptions() Options {
	return Options{Fade: m.defaultFade}
}

// Play schedules a clip. The returned bool is false when no avatar or
// clip is present (the call was a no-op). Requesting the clip that is
// already current returns the existing action without restarting it.
func (m *Mixer) Play(clip *clips.Clip, opts Options) (*Action, bool) {
	if clip == nil || m.rig() == nil {
		return nil, false
	}

	label := opts.Label
	if label == "" {
		label = clip.Name
	}

	if m.current != nil && m.current.label == label && !m.current.finished {
		return m.current, true
	}

	played := clip.Filtered(opts.ExcludeBones)

	a := &Action{
		id:     uuid.NewString(),
		clip:   played,
		label:  label,
		loop:   opts.Loop,
		reps:   opts.Repetitions,
		clamp:  opts.Clamp,
		weight: 1,
	}

	if opts.Sync && m.current != nil && played.Duration > 0 {
		// Keep footstep cadence continuous across the switch.
		a.time = math.Mod(m.current.time, played.Duration)
	}

	if m.current != nil {
		if opts.Fade > 0 {
			m.out = &fadeOut{action: m.current, duration: opts.Fade}
		} else {
			m.out = nil // hard cut
		}
	}

	m.current = a
	return a, true
}

// Stop halts all playback and clears the mixer state.
func (m *Mixer) Stop() {
	m.current = nil
	m.out = nil
}

// Update advances the mixer clock by dt seconds and writes the blended
// base pose onto the avatar's bones. Call exactly once per tick, before
// any controller reads or adjusts bone poses.
func (m *Mixer) Update(dt float64) {
	if m.current != nil {
		m.current.advance(dt)
	}
	if m.out != nil {
		m.out.action.advance(dt)
		m.out.elapsed += dt
		if m.out.elapsed >= m.out.duration {
			m.out = nil
		}
	}

	m.applyPose()
}

// applyPose samples the authoritative clip (blended against any
// outgoing fade) and writes bone rotations.
func (m *Mixer) applyPose() {
	if m.current == nil {
		return
	}
	if m.current.finished && !m.current.clamp {
		return
	}
	if m.rig() == nil {
		return
	}

	alpha := 1.0
	if m.out != nil && m.out.duration > 0 {
		alpha = m.out.elapsed / m.out.duration
		if alpha > 1 {
			alpha = 1
		}
	}

	for _, tr := range m.current.clip.Tracks {
		role, ok := avatar.RoleForNode(tr.Node)
		if !ok {
			continue
		}
		bone, ok := m.bones.Resolve(role)
		if !ok {
			continue
		}

		rot, _ := m.current.clip.Sample(tr.Node, m.current.time)
		if m.out != nil {
			if outRot, has := m.out.action.clip.Sample(tr.Node, m.out.action.time); has {
				for i := 0; i < 3; i++ {
					rot[i] = outRot[i] + (rot[i]-outRot[i])*alpha
				}
			}
		}

		bone.SetRotation(avatar.Vec3{X: rot[0], Y: rot[1], Z: rot[2]})
	}
}

// CurrentAction returns the authoritative action, or nil.
func (m *Mixer) CurrentAction() *Action { return m.current }

// CurrentLabel returns the authoritative action's label, or "".
func (m *Mixer) CurrentLabel() string {
	if m.current == nil {
		return ""
	}
	return m.current.label
}

// IsPlaying reports whether an unfinished action is on the mixer.
func (m *Mixer) IsPlaying() bool {
	return m.current != nil && !m.current.finished
}

// State returns the playback state snapshot.
func (m *Mixer) State() State {
	s := State{DefaultFade: m.defaultFade}
	if m.current != nil {
		s.ActionID = m.current.id
		s.Label = m.current.label
	}
	return s
}

// ResetBones drops cached bone lookups after an avatar swap.
func (m *Mixer) ResetBones() {
	m.bones.Invalidate()
}
