package avatar

// BoneCache resolves bone roles once and remembers the handles.
// Invalidate must be called whenever the underlying avatar changes,
// otherwise stale bones from a torn-down model would be mutated.
type BoneCache struct {
	provider Provider
	bones    map[BoneRole]Bone
	misses   map[BoneRole]bool
}

// NewBoneCache creates a cache over the given avatar provider.
func NewBoneCache(provider Provider) *BoneCache {
	return &BoneCache{
		provider: provider,
		bones:    make(map[BoneRole]Bone),
		misses:   make(map[BoneRole]bool),
	}
}

// Resolve returns the bone for a role, looking it up on first use.
// Roles the rig does not expose are remembered as misses so the lookup
// is not repeated every tick.
func (c *BoneCache) Resolve(role BoneRole) (Bone, bool) {
	if bone, ok := c.bones[role]; ok {
		return bone, true
	}
	if c.misses[role] {
		return nil, false
	}

	rig := c.provider()
	if rig == nil {
		return nil, false
	}

	bone, ok := rig.Bone(role)
	if !ok {
		c.misses[role] = true
		return nil, false
	}
	c.bones[role] = bone
	return bone, true
}

// Invalidate drops all cached bones and misses.
func (c *BoneCache) Invalidate() {
	c.bones = make(map[BoneRole]Bone)
	c.misses = make(map[BoneRole]bool)
}
