package spec

import (
	"net/url"
	"strings"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
)

// Identity derives the stable plugin identity from a raw source string or
// URL: the path portion after the host, i.e. "owner/repo". It fails softly —
// ok is false when no identity can be derived — and callers must treat that
// as "unidentifiable, skip".
func Identity(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if hasScheme(raw) {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		raw = u.Path
	}
	id := strings.Trim(raw, "/")
	id = strings.TrimSuffix(id, ".git")
	if id == "" {
		return "", false
	}
	return id, true
}

// IdentityOf derives the identity from any source shape: a bare identifier,
// a single-plugin spec, or a group whose first member carries a source.
func IdentityOf(src plugin.Source) (string, bool) {
	switch src.Kind() {
	case plugin.KindIdentifier:
		return Identity(src.Ident())
	case plugin.KindSingle:
		return Identity(src.Single().Source)
	case plugin.KindGroup:
		members := src.Members()
		if len(members) == 0 {
			return "", false
		}
		return IdentityOf(members[0])
	default:
		return "", false
	}
}

// IdentityOfDescriptor derives the identity from a normalized descriptor.
func IdentityOfDescriptor(d plugin.Descriptor) (string, bool) {
	return Identity(d.Source)
}
