package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusperks/realtime-service/internal/events"
)

func TestRoomsForRole(t *testing.T) {
	assert.Equal(t, []string{"student:S1", "all-students"}, roomsFor("S1", "student"))
	assert.Equal(t, []string{"vendor-notifications:V1"}, roomsFor("V1", "vendor"))
	assert.Equal(t, []string{"admin-notifications:A1"}, roomsFor("A1", "admin"))
}

func TestRoleForJoinEvent(t *testing.T) {
	assert.Equal(t, "student", roleForJoinEvent(events.EvtStudentJoin))
	assert.Equal(t, "vendor", roleForJoinEvent(events.EvtVendorJoin))
	assert.Equal(t, "admin", roleForJoinEvent(events.EvtAdminJoin))
}
