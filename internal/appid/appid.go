// Package appid holds the application identity used for help text, config
// discovery and environment variable prefixes.
package appid

// Identity describes the binary.
type Identity struct {
	BinaryName  string
	ConfigName  string
	EnvPrefix   string
	Description string
}

var identity = Identity{
	BinaryName:  "mxprobe",
	ConfigName:  "mxprobe",
	EnvPrefix:   "MXPROBE",
	Description: "Rate-limited email deliverability verification",
}

// Get returns the application identity.
func Get() Identity {
	return identity
}
