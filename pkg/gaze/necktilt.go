package gaze

import (
	"math"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
)

// enableEpsilon is the smallest target angle that counts as engaged.
const enableEpsilon = 1e-3

// neckWeights distributes the tilt across bones. The sum is 1 so the
// clamped target is the total applied rotation.
var neckWeights = map[avatar.BoneRole]float64{
	avatar.BoneNeck: 0.6,
	avatar.BoneHead: 0.4,
}

// NeckTilt applies a smoothed additive pitch offset to the neck and
// head bones, independent of whatever base pose the mixer produced.
// Offsets are tracked as desired-minus-applied so repeated application
// never compounds.
type NeckTilt struct {
	bones  *avatar.BoneCache
	tuning *config.Tuning

	target  float64 // clamped, radians
	enabled bool

	current float64                      // smoothed angle
	applied map[avatar.BoneRole]float64 // offset currently on each bone
}

// NewNeckTilt wires a neck-tilt controller.
func NewNeckTilt(rig avatar.Provider, tuning *config.Tuning) *NeckTilt {
	return &NeckTilt{
		bones:   avatar.NewBoneCache(rig),
		tuning:  tuning,
		applied: make(map[avatar.BoneRole]float64),
	}
}

// SetTarget sets the desired tilt in radians, clamped to the configured
// range. Returns the applied (clamped) angle.
func (n *NeckTilt) SetTarget(rad float64) float64 {
	limit := n.tuning.NeckClamp()
	if rad > limit {
		rad = limit
	}
	if rad < -limit {
		rad = -limit
	}

	n.target = rad
	n.enabled = math.Abs(rad) > enableEpsilon
	return rad
}

// Target returns the clamped target angle.
func (n *NeckTilt) Target() float64 { return n.target }

// Enabled reports whether a tilt is engaged.
func (n *NeckTilt) Enabled() bool { return n.enabled }

// Update blends the applied offset toward the target and writes the
// delta on top of the base rotation. Engaging uses a faster time
// constant than releasing.
func (n *NeckTilt) Update(dt float64) {
	desired := 0.0
	if n.enabled {
		desired = n.target
	}

	if !n.enabled && math.Abs(n.current) <= enableEpsilon && len(n.applied) == 0 {
		return
	}

	tau := n.tuning.NeckReleaseTau
	if math.Abs(desired) > math.Abs(n.current) {
		tau = n.tuning.NeckEngageTau
	}
	alpha := 1 - math.Exp(-dt/tau)
	n.current += (desired - n.current) * alpha

	for role, weight := range neckWeights {
		bone, ok := n.bones.Resolve(role)
		if !ok {
			continue
		}

		want := n.current * weight
		delta := want - n.applied[role]
		if delta == 0 {
			continue
		}

		rot := bone.Rotation()
		rot.X += delta
		bone.SetRotation(rot)
		n.applied[role] = want
	}

	// Fully released: drop bookkeeping so the controller goes quiet.
	if !n.enabled && math.Abs(n.current) <= enableEpsilon {
		n.current = 0
		n.applied = make(map[avatar.BoneRole]float64)
	}
}

// Reset clears interpolated state and invalidates the bone cache. Call
// whenever the underlying avatar changes.
func (n *NeckTilt) Reset() {
	n.target = 0
	n.enabled = false
	n.current = 0
	n.applied = make(map[avatar.BoneRole]float64)
	n.bones.Invalidate()
}
