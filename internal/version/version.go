// ABOUTME: Build identity constants
// ABOUTME: Reported in startup logs and control status replies
package version

const (
	// Version is the software version stamped into status replies.
	Version = "0.3.0"

	// Product is the user-visible product name.
	Product = "Soundless"

	// Manufacturer identifies the project.
	Manufacturer = "Soundless Audio"
)
