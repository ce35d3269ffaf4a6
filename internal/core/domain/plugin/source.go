package plugin

// SourceKind discriminates the three shapes a registered plugin source can take.
type SourceKind int

const (
	// KindZero is the zero value of Source; normalizing it yields nothing.
	KindZero SourceKind = iota

	// KindIdentifier is a bare repository identifier or URL, e.g. "owner/repo".
	KindIdentifier

	// KindSingle is a fully specified single-plugin source.
	KindSingle

	// KindGroup is an ordered collection of sources, possibly nested.
	KindGroup
)

// Single is one fully specified plugin source. Only Source is required.
type Single struct {
	// Source is the repository identifier or URL.
	Source string

	// Version pins a specific branch, tag, or version to track. It is both
	// forwarded to the installer and recorded as the branch override for
	// update reconciliation.
	Version string

	// Config holds passthrough configuration the engine does not interpret.
	// It is forwarded unchanged to the installer.
	Config map[string]any

	// Requires lists plugin sources that must be installed and set up
	// before this plugin's setup hook runs.
	Requires []Source

	// Setup is an optional hook invoked once after installation, in
	// dependency order. Nil means the plugin needs no setup.
	Setup func()

	// Events names runtime events that defer Setup until the first firing.
	// Empty means Setup runs immediately after install.
	Events []string
}

// Source is a tagged union over the shapes a plugin source may take:
// a bare identifier, a single-plugin spec, or an ordered group of sources.
// The shape is fixed at construction, so consumers switch on Kind instead
// of probing values at runtime.
type Source struct {
	kind   SourceKind
	ident  string
	single Single
	group  []Source
}

// Identifier builds a source from a bare repository identifier or URL.
func Identifier(raw string) Source {
	return Source{kind: KindIdentifier, ident: raw}
}

// SinglePlugin builds a source from a fully specified single-plugin spec.
func SinglePlugin(s Single) Source {
	return Source{kind: KindSingle, single: s}
}

// Group builds an ordered group of sources. Order is significant: it is
// preserved through flattening into install order.
func Group(members ...Source) Source {
	return Source{kind: KindGroup, group: members}
}

// Kind reports which shape this source carries.
func (s Source) Kind() SourceKind { return s.kind }

// Ident returns the bare identifier for KindIdentifier sources.
func (s Source) Ident() string { return s.ident }

// Single returns the single-plugin spec for KindSingle sources.
func (s Source) Single() Single { return s.single }

// Members returns the group members for KindGroup sources.
func (s Source) Members() []Source { return s.group }
