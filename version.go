package svcwrap

// Version is the current version of the svcwrap library
const Version = "0.3.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Platform is the native service manager binding for this build
	Platform string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:  Version,
		Platform: DefaultPlatform().Name(),
	}
}
