package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/repository/memory"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type failingQueue struct {
	*memory.Queue
	err error
}

func (f failingQueue) Append(ctx context.Context, event *domain.AttendanceEvent) error {
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	fixedNow = time.Date(2024, 5, 17, 11, 4, 9, 0, time.FixedZone("BRT", -3*60*60))
	ana      = &domain.EnrolledIdentity{ID: "E-001", DisplayName: "Ana Souza"}
)

func clock() time.Time { return fixedNow }

func TestPayload_WireFormat(t *testing.T) {
	event := &domain.AttendanceEvent{
		ID:            uuid.New(),
		IdentityID:    "E-001",
		DisplayName:   "Ana Souza",
		Timestamp:     fixedNow,
		Score:         0.91,
		EvidenceImage: []byte("jpeg"),
	}

	data, err := Encode(event)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"employeeId": "E-001",
		"employeeName": "Ana Souza",
		"timestamp": "2024-05-17 14:04:09",
		"faceBase64": "anBlZw=="
	}`, string(data))
}

func TestRecordAttendance_Delivered(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	queue := memory.NewQueue()

	var sent []byte
	pub.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).([]byte)
	}).Return(nil).Once()

	d := NewDispatcher(pub, queue, testLogger(), WithClock(clock))
	event, err := d.RecordAttendance(ctx, ana, 0.93, []byte{0xff, 0xd8})
	require.NoError(t, err)

	assert.True(t, event.Delivered)
	require.NotNil(t, event.DeliveredAt)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
	assert.Equal(t, "E-001", event.IdentityID)
	assert.Equal(t, 0.93, event.Score)

	var p Payload
	require.NoError(t, json.Unmarshal(sent, &p))
	assert.Equal(t, "2024-05-17 14:04:09", p.Timestamp)
	assert.Equal(t, "Ana Souza", p.EmployeeName)

	// Archived but never pending
	pending, err := queue.ListUndelivered(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	all, err := queue.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Delivered)

	pub.AssertExpectations(t)
}

func TestRecordAttendance_FailureIsQueued(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	queue := memory.NewQueue()
	brokerErr := errors.New("broker unreachable")

	pub.On("Publish", mock.Anything, mock.Anything).Return(brokerErr).Once()

	d := NewDispatcher(pub, queue, testLogger(), WithClock(clock))
	event, err := d.RecordAttendance(ctx, ana, 0.8, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeliveryDeferred)
	assert.ErrorIs(t, err, brokerErr)
	require.NotNil(t, event)
	assert.False(t, event.Delivered)

	pending, err := queue.ListUndelivered(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.ID, pending[0].ID)

	require.NoError(t, queue.MarkDelivered(ctx, event.ID))
	require.NoError(t, queue.MarkDelivered(ctx, event.ID))

	n, err := queue.CountUndelivered(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Exactly one publish attempt, no retry loop
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestRecordAttendance_QueueFailure(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("offline"))

	queue := failingQueue{Queue: memory.NewQueue(), err: errors.New("disk full")}
	d := NewDispatcher(pub, queue, testLogger())

	event, err := d.RecordAttendance(context.Background(), ana, 0.8, nil)
	assert.Nil(t, event)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDeliveryDeferred)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRecordAttendance_ArchiveFailureStillDelivered(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	queue := failingQueue{Queue: memory.NewQueue(), err: errors.New("disk full")}
	d := NewDispatcher(pub, queue, testLogger())

	event, err := d.RecordAttendance(context.Background(), ana, 0.8, nil)
	require.NoError(t, err)
	assert.True(t, event.Delivered)
}

func TestRecordAttendance_PublishIsBounded(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, ok := ctx.Deadline()
		assert.True(t, ok, "publish must run with a deadline")
	}).Return(nil)

	d := NewDispatcher(pub, memory.NewQueue(), testLogger(), WithTimeout(time.Second))
	_, err := d.RecordAttendance(context.Background(), ana, 0.8, nil)
	require.NoError(t, err)
}

func seedPending(t *testing.T, q *memory.Queue, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Append(context.Background(), &domain.AttendanceEvent{
			ID:         ids[i],
			IdentityID: "E-00" + string(rune('1'+i)),
			Timestamp:  fixedNow.Add(time.Duration(i) * time.Minute),
		}))
	}
	return ids
}

func TestResyncer_DeliversInOrder(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue()
	seedPending(t, queue, 3)

	var order []string
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		var p Payload
		require.NoError(t, json.Unmarshal(args.Get(1).([]byte), &p))
		order = append(order, p.EmployeeID)
	}).Return(nil)

	r := NewResyncer(pub, queue, time.Minute, time.Second, testLogger())
	n, err := r.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"E-001", "E-002", "E-003"}, order)

	left, err := queue.CountUndelivered(ctx)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestResyncer_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue()
	ids := seedPending(t, queue, 3)

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()

	r := NewResyncer(pub, queue, time.Minute, time.Second, testLogger())
	n, err := r.SyncOnce(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	pub.AssertNumberOfCalls(t, "Publish", 2)

	pending, err := queue.ListUndelivered(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[1], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)
}

func TestResyncer_EmptyQueue(t *testing.T) {
	pub := new(MockPublisher)
	r := NewResyncer(pub, memory.NewQueue(), 0, 0, testLogger())

	n, err := r.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 30*time.Second, r.interval)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestResyncer_RunStops(t *testing.T) {
	r := NewResyncer(new(MockPublisher), memory.NewQueue(), time.Hour, 0, testLogger())

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	r.Stop()
	r.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("resync worker did not stop")
	}
}
