package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

func prob(v float64) *float64 {
	return &v
}

func face(smile, left, right *float64) domain.FaceSignal {
	return domain.FaceSignal{
		BoundingBox:      domain.BoundingBox{X: 10, Y: 10, Width: 100, Height: 100},
		SmileProbability: smile,
		LeftEyeOpen:      left,
		RightEyeOpen:     right,
	}
}

func TestProcess_FirstFaceOpensSession(t *testing.T) {
	th := DefaultThresholds()
	s := Process(Session{State: WaitingForFace, SmileSeen: true, BlinkSeen: true}, face(prob(0.9), prob(0.1), prob(0.1)), th)

	assert.Equal(t, CheckingLiveness, s.State)
	assert.False(t, s.SmileSeen, "flags are reset when a session opens")
	assert.False(t, s.BlinkSeen, "flags are reset when a session opens")
}

func TestProcess_ReachesIdentifyingOnThirdSignal(t *testing.T) {
	th := DefaultThresholds()
	signals := []domain.FaceSignal{
		face(nil, nil, nil),
		face(prob(0.8), nil, nil),
		face(prob(0.8), prob(0.1), prob(0.9)),
	}
	want := []State{CheckingLiveness, CheckingLiveness, Identifying}

	s := Session{}
	for i, sig := range signals {
		s = Process(s, sig, th)
		assert.Equal(t, want[i], s.State, "after signal %d", i+1)
		assert.Equal(t, i == 2, s.IsLivenessVerified(), "after signal %d", i+1)
	}
	assert.True(t, s.SmileSeen)
	assert.True(t, s.BlinkSeen)
}

func TestProcess_BlinkRequiresBothEyeValues(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name      string
		left      *float64
		right     *float64
		wantBlink bool
	}{
		{"both present, left closed", prob(0.1), prob(0.9), true},
		{"both present, right closed", prob(0.9), prob(0.05), true},
		{"both present, both open", prob(0.9), prob(0.9), false},
		{"left absent, right closed", nil, prob(0.05), false},
		{"right absent, left closed", prob(0.05), nil, false},
		{"both absent", nil, nil, false},
		{"exactly at threshold", prob(0.2), prob(0.2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Process(Session{State: CheckingLiveness}, face(nil, tt.left, tt.right), th)
			assert.Equal(t, tt.wantBlink, s.BlinkSeen)
		})
	}
}

func TestProcess_SmileThresholdIsStrict(t *testing.T) {
	th := DefaultThresholds()

	s := Process(Session{State: CheckingLiveness}, face(prob(0.6), nil, nil), th)
	assert.False(t, s.SmileSeen)

	s = Process(s, face(prob(0.61), nil, nil), th)
	assert.True(t, s.SmileSeen)
}

func TestProcess_FlagsNeverRegress(t *testing.T) {
	th := DefaultThresholds()
	s := Process(Session{State: CheckingLiveness}, face(prob(0.9), nil, nil), th)
	require.True(t, s.SmileSeen)

	// Neutral face with open eyes must not clear the smile
	s = Process(s, face(prob(0.0), prob(1.0), prob(1.0)), th)
	assert.True(t, s.SmileSeen)
	assert.False(t, s.BlinkSeen)
	assert.Equal(t, CheckingLiveness, s.State)
}

func TestProcess_BlinkBeforeSmile(t *testing.T) {
	th := DefaultThresholds()
	s := Process(Session{State: CheckingLiveness}, face(nil, prob(0.1), prob(0.1)), th)
	assert.True(t, s.BlinkSeen)
	assert.Equal(t, CheckingLiveness, s.State)

	s = Process(s, face(prob(0.7), prob(0.9), prob(0.9)), th)
	assert.Equal(t, Identifying, s.State)
}

func TestProcess_HoldStates(t *testing.T) {
	th := DefaultThresholds()
	for _, st := range []State{Identifying, Completed} {
		in := Session{State: st, SmileSeen: true, BlinkSeen: true}
		out := Process(in, face(prob(0), prob(1), prob(1)), th)
		assert.Equal(t, in, out, "state %s must hold", st)
	}
}

func TestSession_Prompt(t *testing.T) {
	assert.Equal(t, "Position your face within the oval", Session{}.Prompt())
	assert.Equal(t, "Please smile", Session{State: CheckingLiveness}.Prompt())
	assert.Equal(t, "Please blink your eyes", Session{State: CheckingLiveness, SmileSeen: true}.Prompt())
	assert.Equal(t, "Liveness verified!", Session{State: Identifying, SmileSeen: true, BlinkSeen: true}.Prompt())
}

func TestVerifier_Lifecycle(t *testing.T) {
	v := NewVerifier(DefaultThresholds(), 1)

	v.ProcessFace(face(nil, nil, nil))
	v.ProcessFace(face(prob(0.9), nil, nil))
	s := v.ProcessFace(face(nil, prob(0.1), prob(0.1)))
	require.Equal(t, Identifying, s.State)
	assert.True(t, v.IsLivenessVerified())

	// No-face frames do not disturb an attempt that is already identifying
	assert.Equal(t, Identifying, v.NoFace().State)

	assert.Equal(t, Completed, v.Complete().State)
	assert.True(t, v.IsLivenessVerified())

	v.Reset()
	assert.Equal(t, Session{State: WaitingForFace}, v.Session())
}

func TestVerifier_NoFaceBudget(t *testing.T) {
	v := NewVerifier(DefaultThresholds(), 3)
	v.ProcessFace(face(nil, nil, nil))
	v.ProcessFace(face(prob(0.9), nil, nil))

	assert.Equal(t, CheckingLiveness, v.NoFace().State)
	assert.Equal(t, CheckingLiveness, v.NoFace().State)

	// A face in between resets the miss counter
	v.ProcessFace(face(nil, nil, nil))
	assert.Equal(t, CheckingLiveness, v.NoFace().State)
	assert.Equal(t, CheckingLiveness, v.NoFace().State)
	s := v.NoFace()
	assert.Equal(t, WaitingForFace, s.State)
	assert.False(t, s.SmileSeen)
}

func TestVerifier_CompleteOnlyFromIdentifying(t *testing.T) {
	v := NewVerifier(DefaultThresholds(), 0)
	assert.Equal(t, WaitingForFace, v.Complete().State)

	v.ProcessFace(face(nil, nil, nil))
	assert.Equal(t, CheckingLiveness, v.Complete().State)
}

func TestVerifier_SetThresholds(t *testing.T) {
	v := NewVerifier(DefaultThresholds(), 1)
	v.SetThresholds(Thresholds{Smile: 0.95, Blink: 0.2})
	v.ProcessFace(face(nil, nil, nil))

	s := v.ProcessFace(face(prob(0.9), nil, nil))
	assert.False(t, s.SmileSeen)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "waiting_for_face", WaitingForFace.String())
	assert.Equal(t, "checking_liveness", CheckingLiveness.String())
	assert.Equal(t, "identifying", Identifying.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "unknown", State(42).String())
}
