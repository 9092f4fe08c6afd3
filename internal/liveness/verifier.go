package liveness

import (
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// State is the position of a session in the liveness protocol
type State int

const (
	WaitingForFace State = iota
	CheckingLiveness
	Identifying
	Completed
)

func (s State) String() string {
	switch s {
	case WaitingForFace:
		return "waiting_for_face"
	case CheckingLiveness:
		return "checking_liveness"
	case Identifying:
		return "identifying"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Thresholds controls when a frame counts as a smile or a blink
type Thresholds struct {
	Smile float64 `yaml:"smile"`
	Blink float64 `yaml:"blink"`
}

// DefaultThresholds returns the calibrated defaults (smile > 0.6, eye open < 0.2)
func DefaultThresholds() Thresholds {
	return Thresholds{
		Smile: 0.6,
		Blink: 0.2,
	}
}

// Session is the liveness state of one identification attempt
type Session struct {
	State     State `json:"state"`
	SmileSeen bool  `json:"smile_seen"`
	BlinkSeen bool  `json:"blink_seen"`
}

// IsLivenessVerified is true once the session reached Identifying
func (s Session) IsLivenessVerified() bool {
	return s.State >= Identifying
}

// Prompt tells the user what the session is still waiting for
func (s Session) Prompt() string {
	switch {
	case s.State == WaitingForFace:
		return "Position your face within the oval"
	case !s.SmileSeen:
		return "Please smile"
	case !s.BlinkSeen:
		return "Please blink your eyes"
	default:
		return "Liveness verified!"
	}
}

// Process advances s by one single-face signal and returns the new session.
// It has no side effects and never clears a flag that is already set.
func Process(s Session, signal domain.FaceSignal, th Thresholds) Session {
	switch s.State {
	case WaitingForFace:
		return Session{State: CheckingLiveness}

	case CheckingLiveness:
		if signal.SmileProbability != nil && *signal.SmileProbability > th.Smile {
			s.SmileSeen = true
		}

		// Both eyes must be classified, a single missing value never counts as a blink
		if signal.LeftEyeOpen != nil && signal.RightEyeOpen != nil {
			if *signal.LeftEyeOpen < th.Blink || *signal.RightEyeOpen < th.Blink {
				s.BlinkSeen = true
			}
		}

		if s.SmileSeen && s.BlinkSeen {
			s.State = Identifying
		}
		return s
	}

	// Identifying and Completed hold until the orchestrator moves them
	return s
}

// Verifier owns the session of one kiosk. It is not safe for concurrent use;
// the orchestrator serializes access.
type Verifier struct {
	session    Session
	thresholds Thresholds
	resetAfter int
	missed     int
}

// NewVerifier creates a verifier that discards an unfinished session after
// resetAfter consecutive frames without a face (minimum 1).
func NewVerifier(th Thresholds, resetAfter int) *Verifier {
	if resetAfter < 1 {
		resetAfter = 1
	}
	return &Verifier{
		thresholds: th,
		resetAfter: resetAfter,
	}
}

// ProcessFace feeds one eligible face signal into the session
func (v *Verifier) ProcessFace(signal domain.FaceSignal) Session {
	v.missed = 0
	v.session = Process(v.session, signal, v.thresholds)
	return v.session
}

// NoFace records a frame without a face. Sessions still collecting evidence
// fall back to WaitingForFace once the miss budget is used up.
func (v *Verifier) NoFace() Session {
	if v.session.State > CheckingLiveness {
		return v.session
	}
	v.missed++
	if v.missed >= v.resetAfter {
		v.session = Session{State: WaitingForFace}
		v.missed = 0
	}
	return v.session
}

// Complete moves a verified session into Completed
func (v *Verifier) Complete() Session {
	if v.session.State == Identifying {
		v.session.State = Completed
	}
	return v.session
}

// Reset starts over from WaitingForFace with cleared flags
func (v *Verifier) Reset() {
	v.session = Session{State: WaitingForFace}
	v.missed = 0
}

// SetThresholds replaces the thresholds used by subsequent frames
func (v *Verifier) SetThresholds(th Thresholds) {
	v.thresholds = th
}

func (v *Verifier) Session() Session {
	return v.session
}

func (v *Verifier) IsLivenessVerified() bool {
	return v.session.IsLivenessVerified()
}
