package plugin

// Descriptor is the canonical, flattened representation of one plugin's
// install-time configuration. Descriptors are immutable once produced by
// normalization; Config is copied, never aliased.
type Descriptor struct {
	// Source is the resolved, absolute fetch URL.
	Source string

	// BranchOverride pins a specific branch, tag, or version to track.
	// Empty means the repository's default is used.
	BranchOverride string

	// Config holds passthrough fields forwarded to the installer unchanged.
	Config map[string]any
}

// CloneConfig returns a copy of the passthrough configuration so callers
// cannot mutate a descriptor through the returned map.
func (d Descriptor) CloneConfig() map[string]any {
	if d.Config == nil {
		return nil
	}
	out := make(map[string]any, len(d.Config))
	for k, v := range d.Config {
		out[k] = v
	}
	return out
}
