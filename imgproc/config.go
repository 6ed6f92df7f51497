package imgproc

// Wait times between frames in the preview window, in milliseconds.
const (
	VideoWaitTime  = 0  // wait for a key press
	CameraWaitTime = 10
)

// KeyEscape stops the run when pressed in the preview window.
const KeyEscape = 27

type Config struct {
	VideoPath    string // Input video file, the camera is used when empty
	CameraID     int    // Camera device index
	ShowGUI      bool   // Show a preview window with the overlays
	ShowRejected bool   // Outline rejected marker candidates in the preview
	WindowName   string
}

// waitTime returns how long the preview waits for a key between frames.
func waitTime(fromVideo bool) int {
	if fromVideo {
		return VideoWaitTime
	}
	return CameraWaitTime
}
