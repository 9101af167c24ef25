package avatar

// SimRig is an in-memory avatar used by tests and the headless
// simulator. It records every write so scenarios can assert on the
// final transform, gaze target and eyelid state.
type SimRig struct {
	Pos     Vec3
	Heading float64

	bones map[BoneRole]*SimBone

	GazeTarget    Vec3
	GazeTargetSet bool
	Eyelid        float64

	missing map[BoneRole]bool
}

// SimBone is a mutable bone transform.
type SimBone struct {
	Rot Vec3
}

// Rotation returns the bone's current rotation.
func (b *SimBone) Rotation() Vec3 { return b.Rot }

// SetRotation replaces the bone's rotation.
func (b *SimBone) SetRotation(r Vec3) { b.Rot = r }

// NewSimRig creates a rig with the full standard bone set.
func NewSimRig() *SimRig {
	r := &SimRig{
		bones:   make(map[BoneRole]*SimBone),
		missing: make(map[BoneRole]bool),
	}
	for role := range boneNames {
		r.bones[role] = &SimBone{}
	}
	return r
}

// RemoveBone simulates a model missing a bone.
func (r *SimRig) RemoveBone(role BoneRole) {
	r.missing[role] = true
}

// Position returns the rig's rendered position.
func (r *SimRig) Position() Vec3 { return r.Pos }

// SetPosition moves the rig.
func (r *SimRig) SetPosition(p Vec3) { r.Pos = p }

// Yaw returns the rig's heading.
func (r *SimRig) Yaw() float64 { return r.Heading }

// SetYaw sets the rig's heading.
func (r *SimRig) SetYaw(y float64) { r.Heading = y }

// Bone returns the bone for a role.
func (r *SimRig) Bone(role BoneRole) (Bone, bool) {
	if r.missing[role] {
		return nil, false
	}
	bone, ok := r.bones[role]
	return bone, ok
}

// SetGazeTarget records the eye-tracking target.
func (r *SimRig) SetGazeTarget(p Vec3) {
	r.GazeTarget = p
	r.GazeTargetSet = true
}

// SetEyelidClosure records the eyelid scalar.
func (r *SimRig) SetEyelidClosure(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	r.Eyelid = v
}

// bareHandle hides the gaze and expression capabilities of a SimRig.
type bareHandle struct {
	inner *SimRig
}

// Bare returns a Handle view of the rig without gaze or expression
// support, for exercising the degraded paths.
func (r *SimRig) Bare() Handle {
	return bareHandle{inner: r}
}

func (h bareHandle) Position() Vec3              { return h.inner.Position() }
func (h bareHandle) SetPosition(p Vec3)          { h.inner.SetPosition(p) }
func (h bareHandle) Yaw() float64                { return h.inner.Yaw() }
func (h bareHandle) SetYaw(y float64)            { h.inner.SetYaw(y) }
func (h bareHandle) Bone(r BoneRole) (Bone, bool) { return h.inner.Bone(r) }

var (
	_ Handle           = (*SimRig)(nil)
	_ GazeTargeter     = (*SimRig)(nil)
	_ ExpressionDriver = (*SimRig)(nil)
	_ Handle           = bareHandle{}
)
