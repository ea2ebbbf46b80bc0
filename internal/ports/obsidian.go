package ports

// ObsidianOpener hands a vault document over to the Obsidian app
type ObsidianOpener interface {
	// OpenFile opens a vault-relative or absolute path through an obsidian://open URI
	OpenFile(path string) error

	// BuildURI returns the URI OpenFile would launch
	BuildURI(path string) (string, error)
}
