// Package config holds the engine's tunable constants.
//
// Every threshold, duration and speed the behavior controllers use lives
// in Tuning. The defaults are the shipped behavior; a YAML file can
// override individual values, and Watch reloads the file on change so the
// embedding application can tune the avatar live.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds all named numeric constants for the behavior engine.
type Tuning struct {
	// Locomotion
	WalkSpeed        float64 `yaml:"walk_speed"`         // m/s
	StopDistance     float64 `yaml:"stop_distance"`      // arrival tolerance, meters
	TurnThresholdDeg float64 `yaml:"turn_threshold_deg"` // pre-walk turn-in-place threshold
	TurnMinSeconds   float64 `yaml:"turn_min_seconds"`
	TurnMaxSeconds   float64 `yaml:"turn_max_seconds"`

	// Playback
	DefaultFadeSeconds float64 `yaml:"default_fade_seconds"`

	// Idle cycle
	IdleOverlapSeconds float64 `yaml:"idle_overlap_seconds"`

	// Autonomous wandering
	WanderRange    float64 `yaml:"wander_range"`    // half-width of the square, meters
	WanderWait     float64 `yaml:"wander_wait"`     // seconds spent waiting after arrival
	GestureChance  float64 `yaml:"gesture_chance"`  // probability of a mid-wait gesture
	GestureLeadIn  float64 `yaml:"gesture_lead_in"` // earliest gesture offset into the wait
	GestureTailOut float64 `yaml:"gesture_tail_out"` // gesture must start this long before wait end

	// Gaze
	GazeTurnThresholdDeg float64 `yaml:"gaze_turn_threshold_deg"`

	// Neck tilt
	NeckClampDeg   float64 `yaml:"neck_clamp_deg"`
	NeckEngageTau  float64 `yaml:"neck_engage_tau"`  // seconds
	NeckReleaseTau float64 `yaml:"neck_release_tau"` // seconds

	// Blink
	BlinkCloseSeconds float64 `yaml:"blink_close_seconds"`
	BlinkHoldSeconds  float64 `yaml:"blink_hold_seconds"`
	BlinkOpenSeconds  float64 `yaml:"blink_open_seconds"`
	AutoBlinkMin      float64 `yaml:"auto_blink_min"` // seconds
	AutoBlinkMax      float64 `yaml:"auto_blink_max"` // seconds

	// Front approach. FrontOffset is the standoff from the viewer; the
	// skip radius is intentionally a separate constant (the source keeps
	// both, and merging them changes behavior near the viewer).
	FrontOffset      float64 `yaml:"front_offset"`       // meters from viewer
	FrontSkipRadius  float64 `yaml:"front_skip_radius"`  // skip the walk inside this
	LowViewerHeight  float64 `yaml:"low_viewer_height"`  // meters; below this, tilt the neck
	FrontTiltDeg     float64 `yaml:"front_tilt_deg"`     // downward tilt for low viewers
	LookAtNeckTiltDeg float64 `yaml:"look_at_neck_tilt_deg"`

	// Tick loop
	TickRate float64 `yaml:"tick_rate"` // Hz
}

// Default returns the shipped tuning values.
func Default() Tuning {
	return Tuning{
		WalkSpeed:        1.2,
		StopDistance:     0.1,
		TurnThresholdDeg: 120,
		TurnMinSeconds:   0.35,
		TurnMaxSeconds:   0.8,

		DefaultFadeSeconds: 0.5,
		IdleOverlapSeconds: 0.5,

		WanderRange:    3.0,
		WanderWait:     6.0,
		GestureChance:  0.5,
		GestureLeadIn:  0.5,
		GestureTailOut: 1.0,

		GazeTurnThresholdDeg: 90,

		NeckClampDeg:   45,
		NeckEngageTau:  0.12,
		NeckReleaseTau: 0.25,

		BlinkCloseSeconds: 0.1,
		BlinkHoldSeconds:  0.05,
		BlinkOpenSeconds:  0.15,
		AutoBlinkMin:      2.0,
		AutoBlinkMax:      8.0,

		FrontOffset:       1.5,
		FrontSkipRadius:   1.0,
		LowViewerHeight:   1.2,
		FrontTiltDeg:      20,
		LookAtNeckTiltDeg: 15,

		TickRate: 60,
	}
}

// Load reads a YAML file and merges it over the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("failed to read tuning file: %w", err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return Default(), err
	}
	return t, nil
}

// Validate rejects values the controllers cannot work with.
func (t Tuning) Validate() error {
	if t.WalkSpeed <= 0 {
		return fmt.Errorf("walk_speed must be positive, got %v", t.WalkSpeed)
	}
	if t.StopDistance <= 0 {
		return fmt.Errorf("stop_distance must be positive, got %v", t.StopDistance)
	}
	if t.TurnMinSeconds > t.TurnMaxSeconds {
		return fmt.Errorf("turn_min_seconds %v exceeds turn_max_seconds %v", t.TurnMinSeconds, t.TurnMaxSeconds)
	}
	if t.AutoBlinkMin > t.AutoBlinkMax {
		return fmt.Errorf("auto_blink_min %v exceeds auto_blink_max %v", t.AutoBlinkMin, t.AutoBlinkMax)
	}
	if t.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %v", t.TickRate)
	}
	return nil
}

// TurnThreshold returns the locomotion pre-turn threshold in radians.
func (t Tuning) TurnThreshold() float64 {
	return t.TurnThresholdDeg * math.Pi / 180
}

// GazeTurnThreshold returns the gaze body-turn threshold in radians.
func (t Tuning) GazeTurnThreshold() float64 {
	return t.GazeTurnThresholdDeg * math.Pi / 180
}

// NeckClamp returns the neck tilt clamp in radians.
func (t Tuning) NeckClamp() float64 {
	return t.NeckClampDeg * math.Pi / 180
}

// TurnDuration scales a turn's duration with its angle: a full half-turn
// takes TurnMaxSeconds, smaller angles proportionally less, clamped to
// [TurnMinSeconds, TurnMaxSeconds].
func (t Tuning) TurnDuration(deltaRad float64) float64 {
	d := t.TurnMaxSeconds * math.Abs(deltaRad) / math.Pi
	if d < t.TurnMinSeconds {
		return t.TurnMinSeconds
	}
	if d > t.TurnMaxSeconds {
		return t.TurnMaxSeconds
	}
	return d
}
