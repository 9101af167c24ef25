// Package avatar abstracts the loaded 3D character the engine drives.
//
// The engine never owns the model; it receives a Handle from the loader
// and mutates the root transform and bone rotations through it. Small
// capability interfaces keep consumers depending only on what they use:
// gaze targeting and eyelid expressions are optional, and controllers
// probe for them with type assertions and degrade gracefully.
package avatar

// BoneRole names the skeletal bones the engine cares about. Roles are
// resolved to bone transforms once per avatar and cached; string bone
// names never leak past the rig boundary.
type BoneRole int

const (
	BoneHips BoneRole = iota
	BoneSpine
	BoneChest
	BoneNeck
	BoneHead
	BoneLeftEye
	BoneRightEye
)

var boneNames = map[BoneRole]string{
	BoneHips:     "hips",
	BoneSpine:    "spine",
	BoneChest:    "chest",
	BoneNeck:     "neck",
	BoneHead:     "head",
	BoneLeftEye:  "leftEye",
	BoneRightEye: "rightEye",
}

// String returns the canonical node name for the role.
func (r BoneRole) String() string {
	if name, ok := boneNames[r]; ok {
		return name
	}
	return "unknown"
}

// RoleForNode maps a clip track's node name back to a bone role.
func RoleForNode(node string) (BoneRole, bool) {
	for role, name := range boneNames {
		if name == node {
			return role, true
		}
	}
	return 0, false
}

// Bone is a single bone transform. Rotations are XYZ Euler radians.
type Bone interface {
	Rotation() Vec3
	SetRotation(Vec3)
}

// Handle is the engine's view of a loaded avatar: root transform plus
// bone lookup. It exists from model-load completion until teardown and
// is not owned by the engine.
type Handle interface {
	Position() Vec3
	SetPosition(Vec3)
	Yaw() float64
	SetYaw(float64)
	Bone(role BoneRole) (Bone, bool)
}

// GazeTargeter is implemented by rigs whose eyes can track a point.
type GazeTargeter interface {
	SetGazeTarget(Vec3)
}

// ExpressionDriver is implemented by rigs with facial expressions.
// Eyelid closure runs from 0 (open) to 1 (fully closed).
type ExpressionDriver interface {
	SetEyelidClosure(float64)
}

// Provider hands out the current avatar handle, or nil while no model
// is loaded. The engine re-fetches it every tick.
type Provider func() Handle
