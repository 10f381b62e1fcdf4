package gateway

// Config defines gateway listener and upstream settings.
type Config struct {
	// Addr is the listen address, e.g. ":27490".
	Addr string
	// UpstreamURL is the workspace service the gateway forwards to.
	UpstreamURL string
	// BaseURL is the externally visible root, used only for logging.
	BaseURL string
	// BasePath mounts the gateway under a path prefix.
	BasePath string
}
