// Package spec turns heterogeneous plugin sources into canonical descriptors
// and derives stable plugin identities. Everything here is a pure
// transformation: no network, no filesystem, no shared state.
package spec

import (
	"strings"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
)

// DefaultHost is prefixed to owner/repo shorthand identifiers.
const DefaultHost = "https://github.com"

// Normalize flattens one source value into an ordered sequence of canonical
// descriptors. Group members are expanded recursively and concatenated in
// declared order. A zero source yields nil, not an error.
func Normalize(src plugin.Source) []plugin.Descriptor {
	switch src.Kind() {
	case plugin.KindIdentifier:
		return []plugin.Descriptor{{Source: ExpandSource(src.Ident())}}
	case plugin.KindSingle:
		return []plugin.Descriptor{NormalizeSingle(src.Single())}
	case plugin.KindGroup:
		var out []plugin.Descriptor
		for _, member := range src.Members() {
			out = append(out, Normalize(member)...)
		}
		return out
	default:
		return nil
	}
}

// NormalizeSingle converts one single-plugin spec into its canonical
// descriptor. Passthrough configuration is copied unchanged; a declared
// version is both kept in the config and recorded as the branch override.
func NormalizeSingle(s plugin.Single) plugin.Descriptor {
	d := plugin.Descriptor{
		Source:         ExpandSource(s.Source),
		BranchOverride: s.Version,
	}
	if len(s.Config) > 0 || s.Version != "" {
		d.Config = make(map[string]any, len(s.Config)+1)
		for k, v := range s.Config {
			d.Config[k] = v
		}
		if s.Version != "" {
			d.Config["version"] = s.Version
		}
	}
	return d
}

// ExpandSource resolves a raw source string to an absolute fetch URL.
// Strings that already carry a URL scheme are kept as-is; anything else is
// treated as owner/repo shorthand and prefixed with the default host.
func ExpandSource(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if hasScheme(raw) {
		return raw
	}
	return DefaultHost + "/" + strings.Trim(raw, "/")
}

func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return false
	}
	// A scheme is alphanumeric; a slash before "://" means the marker sits
	// inside a path component, not a scheme.
	return !strings.ContainsAny(raw[:i], "/ ")
}
