package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/model"
)

func TestRouteFirstMatch(t *testing.T) {
	cases := []struct {
		name   string
		target Target
		room   string
	}{
		{"broadcast", Target{Broadcast: true}, "all-students"},
		{"student", Target{StudentID: "S123"}, "student:S123"},
		{"vendor", Target{VendorID: "V1"}, "vendor-notifications:V1"},
		{"admin", Target{AdminID: "A1"}, "admin-notifications:A1"},
		// broadcast wins over any targeted id
		{"broadcast beats student", Target{Broadcast: true, StudentID: "S1"}, "all-students"},
		{"student beats vendor", Target{StudentID: "S1", VendorID: "V1"}, "student:S1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room, err := Route(tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.room, room)
		})
	}
}

func TestRouteEmptyTarget(t *testing.T) {
	_, err := Route(Target{})
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestTargetFor(t *testing.T) {
	n := &model.Notification{Type: model.TypeOffer, IsGlobal: true}
	room, err := Route(TargetFor(n))
	require.NoError(t, err)
	assert.Equal(t, RoomAllStudents, room)

	n = &model.Notification{Type: model.TypeGeneral, VendorID: "V9"}
	room, err = Route(TargetFor(n))
	require.NoError(t, err)
	assert.Equal(t, "vendor-notifications:V9", room)
}

type fakeSender struct {
	room string
	msg  []byte
	n    int
}

func (f *fakeSender) Broadcast(room string, msg []byte) int {
	f.room = room
	f.msg = msg
	return f.n
}

func TestEmitRoutesToSingleRoom(t *testing.T) {
	s := &fakeSender{n: 3}
	e := NewEmitter(s, zap.NewNop().Sugar())

	err := e.Emit(Event{
		Name:    EvtApprovalChanged,
		Target:  Target{StudentID: "S123"},
		Payload: StatusChangePayload{SubjectID: "S123", NewStatus: "approved"},
	})
	require.NoError(t, err)
	assert.Equal(t, "student:S123", s.room)

	var env Envelope
	require.NoError(t, json.Unmarshal(s.msg, &env))
	assert.Equal(t, EvtApprovalChanged, env.Event)

	var p StatusChangePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "approved", p.NewStatus)
}

func TestEmitWithoutTargetDropped(t *testing.T) {
	s := &fakeSender{}
	e := NewEmitter(s, zap.NewNop().Sugar())
	err := e.Emit(Event{Name: EvtOfferCreated})
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Empty(t, s.room)
}

func TestEmitToEmptyRoomIsNotAnError(t *testing.T) {
	s := &fakeSender{n: 0}
	e := NewEmitter(s, zap.NewNop().Sugar())
	err := e.Emit(Event{Name: EvtOfferCreated, Target: Target{Broadcast: true}, Payload: OfferPayload{OfferID: "O1"}})
	assert.NoError(t, err)
}
