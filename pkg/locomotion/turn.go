package locomotion

import "github.com/carl0967/vrm-chat-space/pkg/avatar"

// TurnState is a timed yaw interpolation. Locomotion uses it for the
// pre-walk turn-in-place; the gaze controller reuses the same shape for
// body turns toward the viewer.
type TurnState struct {
	Active   bool
	Start    float64 // yaw at turn start
	Target   float64 // yaw to reach
	Duration float64 // seconds
	Elapsed  float64
}

// Begin arms the turn.
func (t *TurnState) Begin(start, target, duration float64) {
	t.Active = true
	t.Start = start
	t.Target = target
	t.Duration = duration
	t.Elapsed = 0
}

// Advance steps the turn by dt and returns the eased yaw. done is true
// on the tick the turn resolves; the state deactivates itself.
func (t *TurnState) Advance(dt float64) (yaw float64, done bool) {
	if !t.Active {
		return t.Target, true
	}

	t.Elapsed += dt
	if t.Elapsed >= t.Duration {
		t.Active = false
		return t.Target, true
	}

	delta := avatar.AngleDelta(t.Start, t.Target)
	return t.Start + delta*smoothstep(t.Elapsed/t.Duration), false
}

// Clear cancels the turn.
func (t *TurnState) Clear() {
	*t = TurnState{}
}

// smoothstep provides smooth easing (slow start/end).
func smoothstep(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}
