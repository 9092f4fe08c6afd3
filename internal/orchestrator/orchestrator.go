package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
	"github.com/saturnino-fabrica-de-software/ponto/internal/liveness"
	"github.com/saturnino-fabrica-de-software/ponto/internal/match"
	"github.com/saturnino-fabrica-de-software/ponto/internal/metrics"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

// Registry is the read side of the enrolled identity store
type Registry interface {
	ListIdentities(ctx context.Context) ([]domain.EnrolledIdentity, error)
}

// Extractor produces an embedding for the face inside box
type Extractor interface {
	Extract(ctx context.Context, img image.Image, box domain.BoundingBox, rotationDegrees int) (*embedding.Result, error)
}

// Recorder emits the attendance event of a positive identification
type Recorder interface {
	RecordAttendance(ctx context.Context, identity *domain.EnrolledIdentity, score float64, evidence []byte) (*domain.AttendanceEvent, error)
}

// Config controls the attempt lifecycle
type Config struct {
	Cooldown          time.Duration
	NoFaceResetFrames int
}

func DefaultConfig() Config {
	return Config{
		Cooldown:          2 * time.Second,
		NoFaceResetFrames: 1,
	}
}

// Update is the outcome of one processed frame, pushed to status listeners
type Update struct {
	Status       domain.Status    `json:"status"`
	Message      string           `json:"message"`
	Session      liveness.Session `json:"session"`
	State        string           `json:"state"`
	IdentityID   string           `json:"identity_id,omitempty"`
	DisplayName  string           `json:"display_name,omitempty"`
	Score        float64          `json:"score,omitempty"`
	AttendanceID *uuid.UUID       `json:"attendance_id,omitempty"`
	Delivered    bool             `json:"delivered,omitempty"`
	At           time.Time        `json:"at"`
}

// Orchestrator drives one kiosk through detection, liveness, extraction,
// matching and dispatch. Only one frame is processed at a time; frames that
// arrive while another is in flight are dropped.
type Orchestrator struct {
	detector  provider.SignalDetector
	extractor Extractor
	registry  Registry
	recorder  Recorder
	audit     audit.Logger
	logger    *slog.Logger
	config    Config

	calibration atomic.Pointer[config.Calibration]
	busy        atomic.Bool
	mailbox     chan domain.Frame

	mu            sync.Mutex
	verifier      *liveness.Verifier
	generation    uint64
	cooldown      *time.Timer
	cancelAttempt context.CancelFunc
	// calibration of the running session, fixed when the session opens
	sessionCal config.Calibration

	listenersMu sync.RWMutex
	listeners   []func(Update)

	now func() time.Time
}

func New(
	detector provider.SignalDetector,
	extractor Extractor,
	registry Registry,
	recorder Recorder,
	auditLogger audit.Logger,
	cal config.Calibration,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}

	o := &Orchestrator{
		detector:   detector,
		extractor:  extractor,
		registry:   registry,
		recorder:   recorder,
		audit:      auditLogger,
		logger:     logger.With("component", "orchestrator"),
		config:     cfg,
		mailbox:    make(chan domain.Frame, 1),
		verifier:   liveness.NewVerifier(cal.Liveness, cfg.NoFaceResetFrames),
		sessionCal: cal,
		now:        time.Now,
	}
	o.calibration.Store(&cal)
	return o
}

// SetCalibration replaces the thresholds. A running session keeps the
// values it started with; the next session picks up cal.
func (o *Orchestrator) SetCalibration(cal config.Calibration) {
	o.calibration.Store(&cal)
}

func (o *Orchestrator) Calibration() config.Calibration {
	return *o.calibration.Load()
}

// OnUpdate registers a listener for every frame outcome and state change.
// Listeners are called from the worker, from Reset callers and from the
// cooldown timer, possibly at the same time. They must be safe for
// concurrent use and must not block.
func (o *Orchestrator) OnUpdate(fn func(Update)) {
	o.listenersMu.Lock()
	defer o.listenersMu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// Session returns a snapshot of the current liveness session
func (o *Orchestrator) Session() liveness.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verifier.Session()
}

// Submit hands a frame to the worker without blocking. A frame still waiting
// in the mailbox is replaced by the newer one. It reports whether an older
// frame was discarded.
func (o *Orchestrator) Submit(frame domain.Frame) bool {
	select {
	case o.mailbox <- frame:
		return false
	default:
	}

	replaced := false
	select {
	case <-o.mailbox:
		replaced = true
		metrics.FramesDropped.Inc()
	default:
	}

	select {
	case o.mailbox <- frame:
	default:
		// another submitter won the slot
		metrics.FramesDropped.Inc()
		replaced = true
	}
	return replaced
}

// Run processes submitted frames until ctx is cancelled
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started")
	defer o.logger.Info("orchestrator stopped")

	for {
		select {
		case <-ctx.Done():
			o.Reset()
			return ctx.Err()
		case frame := <-o.mailbox:
			if _, err := o.ProcessFrame(ctx, frame); err != nil && !errors.Is(err, domain.ErrFrameDropped) {
				o.logger.Error("frame processing failed", "error", err)
			}
		}
	}
}

// ProcessFrame runs one frame through the pipeline. It returns
// domain.ErrFrameDropped without doing any work when another frame is in flight.
func (o *Orchestrator) ProcessFrame(ctx context.Context, frame domain.Frame) (Update, error) {
	if !o.busy.CompareAndSwap(false, true) {
		metrics.FramesDropped.Inc()
		return Update{}, domain.ErrFrameDropped
	}
	defer o.busy.Store(false)

	metrics.FramesReceived.Inc()
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = o.now()
	}

	u, err := o.process(ctx, frame)
	if err != nil {
		return u, err
	}
	o.emit(u)
	return u, nil
}

// Reset abandons the current attempt, cancels a pending cooldown and starts
// a new session in WaitingForFace
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.resetLocked()
	session := o.verifier.Session()
	o.mu.Unlock()

	o.emit(o.update(domain.StatusWaiting, session))
}

// must hold o.mu
func (o *Orchestrator) resetLocked() {
	if o.cooldown != nil {
		o.cooldown.Stop()
		o.cooldown = nil
	}
	if o.cancelAttempt != nil {
		o.cancelAttempt()
		o.cancelAttempt = nil
	}
	o.generation++
	o.verifier.Reset()
}

func (o *Orchestrator) process(ctx context.Context, frame domain.Frame) (Update, error) {
	o.mu.Lock()
	if o.verifier.Session().State == liveness.Completed {
		session := o.verifier.Session()
		o.mu.Unlock()
		return o.update(domain.StatusCoolingDown, session), nil
	}
	gen := o.generation
	attemptCtx, cancel := context.WithCancel(ctx)
	o.cancelAttempt = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		if gen == o.generation {
			o.cancelAttempt = nil
		}
		o.mu.Unlock()
	}()

	signals, err := o.detector.Detect(attemptCtx, frame)
	if err != nil {
		o.logger.Warn("face detection failed", "error", err)
		return o.update(domain.StatusDetectionFailed, o.Session()), nil
	}

	o.mu.Lock()
	if gen != o.generation {
		session := o.verifier.Session()
		o.mu.Unlock()
		return o.update(domain.StatusWaiting, session), nil
	}

	switch len(signals) {
	case 0:
		session := o.verifier.NoFace()
		o.mu.Unlock()
		return o.update(domain.StatusNoFace, session), nil
	case 1:
	default:
		session := o.verifier.Session()
		o.mu.Unlock()
		return o.update(domain.StatusMultipleFaces, session), nil
	}

	if o.verifier.Session().State == liveness.WaitingForFace {
		o.sessionCal = *o.calibration.Load()
		o.verifier.SetThresholds(o.sessionCal.Liveness)
	}
	session := o.verifier.ProcessFace(signals[0])
	cal := o.sessionCal
	o.mu.Unlock()

	if session.State != liveness.Identifying {
		return o.update(domain.StatusCheckingLiveness, session), nil
	}

	u := o.identify(attemptCtx, frame, signals[0], cal)
	return o.finish(gen, u), nil
}

// identify runs extraction, matching and dispatch for a verified session
func (o *Orchestrator) identify(ctx context.Context, frame domain.Frame, signal domain.FaceSignal, cal config.Calibration) Update {
	registry, err := o.registry.ListIdentities(ctx)
	if err != nil {
		o.logger.Error("failed to read registry", "error", err)
		return o.attemptFailed(ctx, domain.StatusIdentifyFailed, err)
	}
	if len(registry) == 0 {
		return o.attemptFailed(ctx, domain.StatusNoIdentities, nil)
	}

	start := time.Now()
	res, err := o.extractor.Extract(ctx, frame.Image, signal.BoundingBox, frame.RotationDegrees)
	metrics.InferenceDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		o.logger.Warn("embedding extraction failed", "error", err)
		return o.attemptFailed(ctx, domain.StatusExtractionFailed, err)
	}

	identity, score, err := match.NewEngine(cal.MatchThreshold).FindBestMatch(res.Embedding, registry)
	if err != nil {
		o.logger.Error("match failed", "error", err)
		return o.attemptFailed(ctx, domain.StatusIdentifyFailed, err)
	}
	metrics.MatchScore.Observe(score)

	if identity == nil {
		u := o.update(domain.StatusNotRecognized, liveness.Session{})
		u.Score = score
		o.logAudit(ctx, audit.Event{
			EventType: audit.EventAttemptNotRecognized,
			Status:    string(u.Status),
			Score:     score,
			Metadata:  map[string]string{"registry_size": strconv.Itoa(len(registry))},
		})
		return u
	}

	evidence, err := embedding.EncodeEvidence(res.Face)
	if err != nil {
		o.logger.Warn("evidence image dropped", "error", err)
	}

	event, err := o.recorder.RecordAttendance(ctx, identity, score, evidence)
	if event == nil {
		o.logger.Error("attendance could not be recorded", "identity_id", identity.ID, "error", err)
		return o.attemptFailed(ctx, domain.StatusIdentifyFailed, err)
	}
	if err != nil && !errors.Is(err, domain.ErrDeliveryDeferred) {
		o.logger.Warn("attendance recorded with error", "event_id", event.ID, "error", err)
	}

	u := o.update(domain.StatusRecognized, liveness.Session{})
	u.IdentityID = identity.ID
	u.DisplayName = identity.DisplayName
	u.Score = score
	u.AttendanceID = &event.ID
	u.Delivered = event.Delivered
	u.Message = fmt.Sprintf("Attendance recorded for %s", identity.DisplayName)

	o.logAudit(ctx, audit.Event{
		EventType:    audit.EventAttemptRecognized,
		Status:       string(u.Status),
		IdentityID:   identity.ID,
		AttendanceID: event.ID.String(),
		Score:        score,
		Success:      true,
		Metadata:     map[string]string{"delivered": strconv.FormatBool(event.Delivered)},
	})
	return u
}

func (o *Orchestrator) attemptFailed(ctx context.Context, status domain.Status, cause error) Update {
	ev := audit.Event{
		EventType: audit.EventAttemptFailed,
		Status:    string(status),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	o.logAudit(ctx, ev)
	return o.update(status, liveness.Session{})
}

// finish completes the session and schedules the cooldown unless the
// session was reset while the attempt ran
func (o *Orchestrator) finish(gen uint64, u Update) Update {
	metrics.Attempts.WithLabelValues(string(u.Status)).Inc()

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		o.logger.Info("attempt finished after reset, outcome not applied", "status", u.Status)
		u.Session = o.verifier.Session()
		u.State = u.Session.State.String()
		return u
	}

	u.Session = o.verifier.Complete()
	u.State = u.Session.State.String()

	if o.cooldown != nil {
		o.cooldown.Stop()
	}
	o.cooldown = time.AfterFunc(o.config.Cooldown, func() { o.endCooldown(gen) })
	return u
}

func (o *Orchestrator) endCooldown(gen uint64) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.cooldown = nil
	o.generation++
	o.verifier.Reset()
	session := o.verifier.Session()
	o.mu.Unlock()

	o.emit(o.update(domain.StatusWaiting, session))
}

func (o *Orchestrator) update(status domain.Status, session liveness.Session) Update {
	msg := status.Message()
	if status == domain.StatusCheckingLiveness || status == domain.StatusWaiting {
		msg = session.Prompt()
	}
	return Update{
		Status:  status,
		Message: msg,
		Session: session,
		State:   session.State.String(),
		At:      o.now(),
	}
}

func (o *Orchestrator) emit(u Update) {
	o.listenersMu.RLock()
	listeners := make([]func(Update), len(o.listeners))
	copy(listeners, o.listeners)
	o.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(u)
	}
}

func (o *Orchestrator) logAudit(ctx context.Context, ev audit.Event) {
	if err := o.audit.Log(context.WithoutCancel(ctx), ev); err != nil {
		o.logger.Warn("audit log failed", "error", err)
	}
}
