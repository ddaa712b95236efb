// Package platform resolves which sync backends exist on a given platform.
// Downstream components consult the capability set before touching a
// backend; using an unavailable backend is a programming error, not a
// runtime failure.
package platform

// Backend identifies one of the three storage/sync targets.
type Backend string

const (
	// BackendLocal is the embedded on-device database.
	BackendLocal Backend = "local"
	// BackendRemote is the cloud document store.
	BackendRemote Backend = "remote"
	// BackendRecord is the secondary best-effort record store.
	BackendRecord Backend = "record"
)

// Platform tags recognized by the resolver. Unknown tags resolve like a
// general platform.
const (
	IOS      = "ios"
	MacOS    = "macos"
	WatchOS  = "watchos"
	TVOS     = "tvos"
	VisionOS = "visionos"
)

// Set is the subset of backends usable on a platform.
type Set map[Backend]struct{}

// Has reports whether the backend is in the set.
func (s Set) Has(b Backend) bool {
	_, ok := s[b]
	return ok
}

// Backends returns the capability set for the platform. The constrained
// spatial platform runs without the remote document store; every other
// platform has all three backends.
func Backends(platform string) Set {
	if platform == VisionOS {
		return Set{BackendLocal: {}, BackendRecord: {}}
	}
	return Set{BackendLocal: {}, BackendRemote: {}, BackendRecord: {}}
}

var (
	generalPromoCodes  = []string{"INFINITUM2025", "HORIZONFREE", "PREMIUM2025", "UNLOCKALL"}
	visionosPromoCodes = []string{"VISIONOS2025", "SPATIAL", "PREMIUM"}
)

// PromoCodes returns the fixed premium allow-list for the platform.
// Matching is case-insensitive and done by the caller.
func PromoCodes(platform string) []string {
	if platform == VisionOS {
		return visionosPromoCodes
	}
	return generalPromoCodes
}
