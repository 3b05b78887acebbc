/*Package camera describes the set of interfaces used to drive a single camera
through a capture, and provides two implementations: Mock, which keeps
everything in memory, and Remote, which talks to a camera bridge over TCP or a
serial line.

The interfaces are small so that HTTP wrappers and tests can depend on only
what they use.  Gateway contains all of them and is what a capture needs.
*/
package camera

import "github.com/moonlab/bracket/exposure"

// SessionStarter can open a fresh session (device handle) with the camera
type SessionStarter interface {
	// StartSession obtains a fresh handle to the camera.  Calling it again
	// replaces the previous handle.
	StartSession() error
}

// Configurer can push exposure settings to the camera
type Configurer interface {
	// ApplySettings sets ISO, aperture, shutter speed and white balance.
	// The camera may reject values it does not support.
	ApplySettings(exposure.Settings) error
}

// PictureTaker describes an interface to a camera which can capture images
type PictureTaker interface {
	// TakePicture triggers one exposure and blocks until it is acknowledged.
	// If saveOnDevice is true the image stays on the camera's card, otherwise
	// it is transferred to the directory given to PrepareDownload.
	TakePicture(saveOnDevice bool) error
}

// Focuser can drive the focus motor
type Focuser interface {
	// AdjustFocus moves the focus motor.  The sign of step is the direction
	// (positive moves away from the near limit), its magnitude is the speed, 1..3.
	// A zero step is a neutral centering move.
	AdjustFocus(step int) error
}

// Downloader can count and transfer the images on the camera's card
type Downloader interface {
	// CountImages returns the number of images on the camera's card
	CountImages() (int, error)

	// PrepareDownload sets the directory images shot with saveOnDevice=false
	// are transferred to
	PrepareDownload(dir string) error

	// Download transfers up to max of the most recent images on the card to
	// dir and returns their paths, newest first
	Download(dir string, max int) ([]string, error)
}

// Gateway is everything a capture needs from a camera
type Gateway interface {
	SessionStarter
	Configurer
	PictureTaker
	Focuser
	Downloader
}
