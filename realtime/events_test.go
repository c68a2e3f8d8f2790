package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegacyAlias(t *testing.T) {
	// 有别名的事件
	alias, ok := LegacyAlias(EventAlertCreated)
	assert.True(t, ok)
	assert.Equal(t, EventName("new_alert"), alias)

	alias, ok = LegacyAlias(EventVitalsUpdate)
	assert.True(t, ok)
	assert.Equal(t, EventName("vitals"), alias)

	// acknowledge 和 resolve 共用同一个旧别名
	ackAlias, _ := LegacyAlias(EventAlertAcknowledged)
	resAlias, _ := LegacyAlias(EventAlertResolved)
	assert.Equal(t, ackAlias, resAlias)

	// 没有别名的事件
	_, ok = LegacyAlias(EventHeartbeat)
	assert.False(t, ok)
	_, ok = LegacyAlias(EventWebRTCOffer)
	assert.False(t, ok)
}

func TestPatientRoom(t *testing.T) {
	assert.Equal(t, "patient:42", PatientRoom(42))

	id, ok := ParsePatientRoom("patient:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ParsePatientRoom("staff")
	assert.False(t, ok)
	_, ok = ParsePatientRoom("patient:")
	assert.False(t, ok)
	_, ok = ParsePatientRoom("patient:abc")
	assert.False(t, ok)

	// 数字后带尾缀不是患者房间，否则同一患者ID会派生出影子房间
	_, ok = ParsePatientRoom("patient:12abc")
	assert.False(t, ok)
	_, ok = ParsePatientRoom("patient:12 ")
	assert.False(t, ok)
	_, ok = ParsePatientRoom("patient:-12")
	assert.False(t, ok)
}

func TestEmitOptionsResolveRooms(t *testing.T) {
	// 默认投递到护士站
	rooms := EmitOptions{}.resolveRooms()
	assert.Equal(t, []string{RoomStaff}, rooms)

	// 指定患者时顺序固定: staff -> patient -> additional
	rooms = EmitOptions{
		PatientID:       UintPtr(7),
		AdditionalRooms: []string{"ward:3"},
	}.resolveRooms()
	assert.Equal(t, []string{RoomStaff, "patient:7", "ward:3"}, rooms)

	// 关闭护士站投递
	rooms = EmitOptions{
		PatientID:    UintPtr(7),
		IncludeStaff: BoolPtr(false),
	}.resolveRooms()
	assert.Equal(t, []string{"patient:7"}, rooms)
}

func TestEmitOptionsDefaults(t *testing.T) {
	opts := EmitOptions{}
	assert.True(t, opts.includeStaff())
	assert.True(t, opts.legacy())

	opts = EmitOptions{IncludeStaff: BoolPtr(false), Legacy: BoolPtr(false)}
	assert.False(t, opts.includeStaff())
	assert.False(t, opts.legacy())
}
