package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain 读取会话已收到的全部消息并反序列化
func drain(t *testing.T, s *Session) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case raw := <-s.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

// events 提取消息的事件名序列
func events(envelopes []Envelope) []EventName {
	names := make([]EventName, 0, len(envelopes))
	for _, e := range envelopes {
		names = append(names, e.Event)
	}
	return names
}

func TestRegisterDefaultRooms(t *testing.T) {
	hub := NewHub(time.Minute)

	nurse := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(nurse)
	assert.ElementsMatch(t, []string{RoomStaff}, nurse.Rooms())

	doctor := NewSession(nil, 2, RoleDoctor, nil)
	hub.Register(doctor)
	assert.ElementsMatch(t, []string{RoomStaff}, doctor.Rooms())
	assert.Equal(t, 2, hub.RoomSize(RoomStaff))

	patient := NewSession(nil, 7, RolePatient, UintPtr(7))
	hub.Register(patient)
	assert.ElementsMatch(t, []string{"patient:7"}, patient.Rooms())

	admin := NewSession(nil, 3, RoleAdmin, nil)
	hub.Register(admin)
	assert.ElementsMatch(t, []string{RoomStaff}, admin.Rooms())
	assert.Equal(t, 3, hub.RoomSize(RoomStaff))

	family := NewSession(nil, 30, RoleFamily, UintPtr(7))
	hub.Register(family)
	assert.ElementsMatch(t, []string{"patient:7"}, family.Rooms())
	assert.Equal(t, 2, hub.RoomSize("patient:7"))

	// 没绑定患者的家属不进任何房间
	orphan := NewSession(nil, 31, RoleFamily, nil)
	hub.Register(orphan)
	assert.Empty(t, orphan.Rooms())
}

func TestJoinLeaveIdempotent(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(s)

	hub.Join(s, "patient:5")
	hub.Join(s, "patient:5")
	assert.Equal(t, 1, hub.RoomSize("patient:5"))

	hub.Leave(s, "patient:5")
	hub.Leave(s, "patient:5")
	assert.Equal(t, 0, hub.RoomSize("patient:5"))

	// 退出不存在的房间也是空操作
	hub.Leave(s, "patient:99")
}

func TestBroadcastRoomIsolation(t *testing.T) {
	hub := NewHub(time.Minute)

	nurse := NewSession(nil, 1, RoleStaff, nil)
	patientA := NewSession(nil, 7, RolePatient, UintPtr(7))
	patientB := NewSession(nil, 8, RolePatient, UintPtr(8))
	hub.Register(nurse)
	hub.Register(patientA)
	hub.Register(patientB)

	hub.Broadcast("patient:7", EventVitalsUpdate, map[string]interface{}{"patient_id": 7})

	assert.Len(t, drain(t, patientA), 1)
	assert.Empty(t, drain(t, patientB))
	assert.Empty(t, drain(t, nurse))
}

func TestBroadcastEmptyRoomNoop(t *testing.T) {
	hub := NewHub(time.Minute)
	// 空房间广播不报错不阻塞
	hub.Broadcast("patient:404", EventVitalsUpdate, nil)
}

func TestUnregisterClosesSession(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(s)
	hub.Join(s, "patient:5")

	hub.Unregister(s)
	assert.Equal(t, 0, hub.SessionCount())
	assert.Equal(t, 0, hub.RoomSize(RoomStaff))
	assert.Equal(t, 0, hub.RoomSize("patient:5"))

	// send 通道已关闭
	_, open := <-s.send
	assert.False(t, open)

	// 重复注销是空操作
	hub.Unregister(s)
}

func TestBroadcastDuringUnregister(t *testing.T) {
	// 广播与断开并发时不得向已关闭的发送通道投递
	for round := 0; round < 50; round++ {
		hub := NewHub(time.Minute)

		sessions := make([]*Session, 0, 100)
		for i := 0; i < 100; i++ {
			s := NewSession(nil, uint(i+1), RoleStaff, nil)
			hub.Register(s)
			sessions = append(sessions, s)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Broadcast(RoomStaff, EventHistoryUpdate, map[string]interface{}{"round": round})
		}()
		go func() {
			defer wg.Done()
			for _, s := range sessions {
				hub.Unregister(s)
			}
		}()
		wg.Wait()

		assert.Equal(t, 0, hub.SessionCount())
	}
}

func TestDeliverAfterCloseIsDropped(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(s)
	hub.Unregister(s)

	// 注销后的投递安全丢弃
	assert.False(t, s.deliver([]byte(`{}`)))
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(time.Minute)
	nurse := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(nurse)

	ok := hub.SendToUser(1, EventHistoryUpdate, map[string]interface{}{"x": 1})
	assert.True(t, ok)
	assert.Len(t, drain(t, nurse), 1)

	// 不在线的用户投递失败
	assert.False(t, hub.SendToUser(99, EventHistoryUpdate, nil))
}

func TestEmitLegacyDualSend(t *testing.T) {
	hub := NewHub(time.Minute)
	nurse := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(nurse)

	// 默认开启legacy：标准事件名 + 旧别名各一条
	hub.Emit(EventAlertCreated, map[string]interface{}{"id": 1}, EmitOptions{})
	got := events(drain(t, nurse))
	assert.Equal(t, []EventName{EventAlertCreated, "new_alert"}, got)

	// 关闭legacy只发标准事件名
	hub.Emit(EventAlertCreated, map[string]interface{}{"id": 2}, EmitOptions{Legacy: BoolPtr(false)})
	got = events(drain(t, nurse))
	assert.Equal(t, []EventName{EventAlertCreated}, got)

	// 没有别名的事件不受legacy开关影响
	hub.Emit(EventHistoryUpdate, nil, EmitOptions{})
	got = events(drain(t, nurse))
	assert.Equal(t, []EventName{EventHistoryUpdate}, got)
}

func TestEmitToPatientAndStaff(t *testing.T) {
	hub := NewHub(time.Minute)
	nurse := NewSession(nil, 1, RoleStaff, nil)
	patient := NewSession(nil, 7, RolePatient, UintPtr(7))
	other := NewSession(nil, 8, RolePatient, UintPtr(8))
	hub.Register(nurse)
	hub.Register(patient)
	hub.Register(other)

	hub.Emit(EventVitalsUpdate, map[string]interface{}{"patient_id": 7}, EmitOptions{
		PatientID: UintPtr(7),
		Legacy:    BoolPtr(false),
	})

	assert.Len(t, drain(t, nurse), 1)
	assert.Len(t, drain(t, patient), 1)
	assert.Empty(t, drain(t, other))
}

func TestHeartbeatBroadcast(t *testing.T) {
	hub := NewHub(20 * time.Millisecond)
	s := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(s)

	hub.StartHeartbeat()
	defer hub.StopHeartbeat()

	// 等两个周期以上，应收到心跳
	time.Sleep(70 * time.Millisecond)
	got := drain(t, s)
	require.NotEmpty(t, got)
	for _, env := range got {
		assert.Equal(t, EventHeartbeat, env.Event)
	}
}

func TestCanJoinRoom(t *testing.T) {
	hub := NewHub(time.Minute)

	nurse := NewSession(nil, 1, RoleStaff, nil)
	doctor := NewSession(nil, 2, RoleDoctor, nil)
	admin := NewSession(nil, 3, RoleAdmin, nil)
	patient := NewSession(nil, 7, RolePatient, UintPtr(7))
	family := NewSession(nil, 30, RoleFamily, UintPtr(7))

	// 护士站房间仅医护(含管理员)可进
	assert.True(t, hub.CanJoinRoom(nurse, RoomStaff))
	assert.True(t, hub.CanJoinRoom(doctor, RoomStaff))
	assert.True(t, hub.CanJoinRoom(admin, RoomStaff))
	assert.False(t, hub.CanJoinRoom(patient, RoomStaff))
	assert.False(t, hub.CanJoinRoom(family, RoomStaff))

	// 患者房间：医护任意，患者仅本人，家属仅关联患者
	assert.True(t, hub.CanJoinRoom(nurse, "patient:7"))
	assert.True(t, hub.CanJoinRoom(nurse, "patient:8"))
	assert.True(t, hub.CanJoinRoom(admin, "patient:7"))
	assert.True(t, hub.CanJoinRoom(patient, "patient:7"))
	assert.False(t, hub.CanJoinRoom(patient, "patient:8"))
	assert.True(t, hub.CanJoinRoom(family, "patient:7"))
	assert.False(t, hub.CanJoinRoom(family, "patient:8"))

	// 无法解析的房间名一律拒绝
	assert.False(t, hub.CanJoinRoom(nurse, "random-room"))
}

func TestSendBufferDropOnFull(t *testing.T) {
	hub := NewHub(time.Minute)
	s := NewSession(nil, 1, RoleStaff, nil)
	hub.Register(s)

	// 写满缓冲后继续投递不阻塞
	for i := 0; i < sessionSendBuffer+10; i++ {
		hub.Broadcast(RoomStaff, EventHistoryUpdate, map[string]interface{}{"seq": i})
	}
	assert.Len(t, drain(t, s), sessionSendBuffer)
}
