package avatar

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestHeadingTo(t *testing.T) {
	origin := Vec3{}

	cases := []struct {
		name   string
		target Vec3
		want   float64
	}{
		{"forward", Vec3{Z: 1}, 0},
		{"right", Vec3{X: 1}, math.Pi / 2},
		{"left", Vec3{X: -1}, -math.Pi / 2},
		{"behind", Vec3{Z: -1}, math.Pi},
		{"diagonal", Vec3{X: 1, Z: 1}, math.Pi / 4},
	}
	for _, c := range cases {
		got := origin.HeadingTo(c.target)
		if !almostEqual(got, c.want) {
			t.Errorf("%s: Expected heading %v, got %v", c.name, c.want, got)
		}
	}
}

func TestHeadingIgnoresHeight(t *testing.T) {
	a := Vec3{Y: 0}
	b := Vec3{Y: 5, Z: 1}
	if !almostEqual(a.HeadingTo(b), 0) {
		t.Errorf("Expected height-independent heading 0, got %v", a.HeadingTo(b))
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4 * math.Pi, 0},
	}
	for _, c := range cases {
		if got := NormalizeAngle(c.in); !almostEqual(got, c.want) {
			t.Errorf("NormalizeAngle(%v): Expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestAngleDeltaShortestPath(t *testing.T) {
	// Crossing the pi boundary should go the short way
	got := AngleDelta(3, -3)
	want := 2*math.Pi - 6
	if !almostEqual(got, want) {
		t.Errorf("Expected shortest delta %v, got %v", want, got)
	}
	if got := AngleDelta(-3, 3); !almostEqual(got, -(2*math.Pi - 6)) {
		t.Errorf("Expected shortest delta %v, got %v", -(2*math.Pi - 6), got)
	}
}

func TestDistXZ(t *testing.T) {
	a := Vec3{X: 1, Y: 10, Z: 1}
	b := Vec3{X: 4, Y: -2, Z: 5}
	if !almostEqual(a.DistXZ(b), 5) {
		t.Errorf("Expected distance 5, got %v", a.DistXZ(b))
	}
}

func TestBoneCacheCachesMiss(t *testing.T) {
	rig := NewSimRig()
	rig.RemoveBone(BoneNeck)

	calls := 0
	cache := NewBoneCache(func() Handle {
		calls++
		return rig
	})

	if _, ok := cache.Resolve(BoneNeck); ok {
		t.Fatal("Expected miss for removed bone")
	}
	cache.Resolve(BoneNeck)
	cache.Resolve(BoneNeck)
	if calls != 1 {
		t.Errorf("Expected 1 provider call after cached miss, got %d", calls)
	}

	cache.Invalidate()
	if _, ok := cache.Resolve(BoneHips); !ok {
		t.Error("Expected hips bone to resolve after invalidate")
	}
}
