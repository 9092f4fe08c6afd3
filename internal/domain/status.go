package domain

// Status is the human-readable outcome of processing one frame
type Status string

const (
	StatusWaiting          Status = "waiting_for_face"
	StatusNoFace           Status = "no_face"
	StatusMultipleFaces    Status = "multiple_faces"
	StatusCheckingLiveness Status = "checking_liveness"
	StatusRecognized       Status = "recognized"
	StatusNotRecognized    Status = "not_recognized"
	StatusNoIdentities     Status = "no_identities"
	StatusExtractionFailed Status = "extraction_failed"
	StatusIdentifyFailed   Status = "identification_failed"
	StatusDetectionFailed  Status = "detection_failed"
	StatusCoolingDown      Status = "cooling_down"
)

var statusMessages = map[Status]string{
	StatusWaiting:          "Position your face within the oval",
	StatusNoFace:           "No face detected. Position your face within the oval.",
	StatusMultipleFaces:    "Multiple faces detected. Please ensure only one face is visible.",
	StatusCheckingLiveness: "Liveness check in progress",
	StatusRecognized:       "Attendance recorded",
	StatusNotRecognized:    "Face not recognized. Please register or try again.",
	StatusNoIdentities:     "No registered employees found. Please register faces first.",
	StatusExtractionFailed: "Failed to extract face features. Please try again.",
	StatusIdentifyFailed:   "Identification failed. Please try again.",
	StatusDetectionFailed:  "Face detection failed. Please try again.",
	StatusCoolingDown:      "Please wait",
}

// Message returns the text shown on the kiosk for the status
func (s Status) Message() string {
	if m, ok := statusMessages[s]; ok {
		return m
	}
	return string(s)
}

// Terminal reports whether the status ends an identification attempt
func (s Status) Terminal() bool {
	switch s {
	case StatusRecognized, StatusNotRecognized, StatusNoIdentities, StatusExtractionFailed, StatusIdentifyFailed:
		return true
	}
	return false
}
