package plugin

// InstalledPackage describes one package currently present on disk, as
// reported by the installer.
type InstalledPackage struct {
	// Identity is the stable plugin identity (owner/repo).
	Identity string

	// Path is the package's checkout directory.
	Path string

	// Branch is the configured branch or tag override, if any.
	Branch string
}

// UpdateRecord reports one package whose local and remote revisions diverge.
// A record is only produced when both revisions resolved successfully and
// differ.
type UpdateRecord struct {
	Identity       string
	Path           string
	LocalRevision  string
	RemoteRevision string
}
