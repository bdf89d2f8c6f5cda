package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/events"
	"github.com/campusperks/realtime-service/internal/model"
)

type fakeCreator struct {
	created []*model.Notification
	err     error
	calls   int
}

func (f *fakeCreator) Create(_ context.Context, n *model.Notification) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

type fakeEmitter struct {
	emitted []events.Event
}

func (f *fakeEmitter) Emit(ev events.Event) error {
	f.emitted = append(f.emitted, ev)
	return nil
}

type fakeDLQ struct {
	pushed [][]byte
}

func (f *fakeDLQ) Publish(_ context.Context, raw []byte) error {
	f.pushed = append(f.pushed, raw)
	return nil
}

func newHandler(c *fakeCreator, e *fakeEmitter, d *fakeDLQ) *Handler {
	return NewHandler(c, e, d, 2, 1, zap.NewNop().Sugar())
}

func TestNotificationEventPersists(t *testing.T) {
	c := &fakeCreator{}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	raw := []byte(`{"kind":"notification","notification":{"title":"New offer","message":"hi","type":"offer","isGlobal":true}}`)
	require.NoError(t, h.HandleEvent(context.Background(), raw))
	require.Len(t, c.created, 1)
	assert.Equal(t, "New offer", c.created[0].Title)
	assert.Empty(t, d.pushed)
}

func TestStatusChangeEmitsToTarget(t *testing.T) {
	c := &fakeCreator{}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	raw := []byte(`{"kind":"approval-changed","target":{"studentId":"S123"},"payload":{"subjectId":"S123","newStatus":"approved","message":"done"}}`)
	require.NoError(t, h.HandleEvent(context.Background(), raw))
	require.Len(t, e.emitted, 1)
	assert.Equal(t, events.EvtApprovalChanged, e.emitted[0].Name)
	assert.Equal(t, "S123", e.emitted[0].Target.StudentID)
	assert.Empty(t, c.created)
}

func TestOfferCreatedEmits(t *testing.T) {
	c := &fakeCreator{}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	raw := []byte(`{"kind":"offer-created","target":{"broadcast":true},"payload":{"offerId":"O1","vendorId":"V1","title":"halfprice"}}`)
	require.NoError(t, h.HandleEvent(context.Background(), raw))
	require.Len(t, e.emitted, 1)
	assert.Equal(t, events.EvtOfferCreated, e.emitted[0].Name)
	assert.True(t, e.emitted[0].Target.Broadcast)
}

func TestMalformedEventGoesStraightToDLQ(t *testing.T) {
	c := &fakeCreator{}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	err := h.HandleEvent(context.Background(), []byte(`{not json`))
	assert.NoError(t, err)
	assert.Len(t, d.pushed, 1)
}

func TestBadAddressingNotRetried(t *testing.T) {
	c := &fakeCreator{err: model.ErrAmbiguousAddressing}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	raw := []byte(`{"kind":"notification","notification":{"title":"x","type":"offer","isGlobal":true,"studentId":"S1"}}`)
	err := h.HandleEvent(context.Background(), raw)
	assert.ErrorIs(t, err, model.ErrAmbiguousAddressing)
	assert.Equal(t, 1, c.calls)
	assert.Len(t, d.pushed, 1)
}

func TestTransientErrorRetriedThenDLQ(t *testing.T) {
	c := &fakeCreator{err: errors.New("store down")}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	raw := []byte(`{"kind":"notification","notification":{"title":"x","type":"offer","isGlobal":true}}`)
	err := h.HandleEvent(context.Background(), raw)
	assert.Error(t, err)
	assert.Equal(t, 3, c.calls) // initial + 2 retries
	assert.Len(t, d.pushed, 1)
}

func TestUnknownKindGoesToDLQ(t *testing.T) {
	c := &fakeCreator{}
	e := &fakeEmitter{}
	d := &fakeDLQ{}
	h := newHandler(c, e, d)

	err := h.HandleEvent(context.Background(), []byte(`{"kind":"mystery"}`))
	assert.ErrorIs(t, err, errUnknownKind)
	assert.Len(t, d.pushed, 1)
}
