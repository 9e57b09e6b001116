package capability

import "runtime"

// Platform describes the host the process runs on.
type Platform struct {
	OS   string
	Arch string
}

// Current returns the running platform.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// OnTarget reports whether p is the 32-bit ARM Linux board the real drivers
// are written for.
func (p Platform) OnTarget() bool {
	return p.OS == "linux" && p.Arch == "arm"
}

// DetectPlatform reports whether real hardware drivers should be used.
func DetectPlatform() bool {
	return Current().OnTarget()
}

// Probe decides between real and mock implementations.
type Probe func() bool
