package realtime

import (
	"fmt"
	"strconv"
	"strings"
)

// EventName 标准事件名。事件名是一个封闭集合，新增事件必须在这里定义，
// 避免散落在各处的字符串匹配。
type EventName string

// 服务端推送事件
const (
	// 系统事件
	EventHeartbeat EventName = "server_heartbeat"
	EventError     EventName = "error"

	// 告警事件
	EventAlertCreated      EventName = "alert_created"
	EventAlertAcknowledged EventName = "alert_acknowledged"
	EventAlertResolved     EventName = "alert_resolved"

	// 生命体征事件
	EventVitalsUpdate EventName = "vitals_update"

	// 历史与审计事件
	EventHistoryUpdate EventName = "history_update"

	// WebRTC 信令事件
	EventWebRTCReady        EventName = "webrtc_ready"
	EventWebRTCOffer        EventName = "webrtc_offer"
	EventWebRTCAnswer       EventName = "webrtc_answer"
	EventWebRTCICECandidate EventName = "webrtc_ice_candidate"
)

// 客户端上行事件
const (
	EventJoinRoom          EventName = "join_room"
	EventSubscribeVitals   EventName = "subscribe_vitals"
	EventUnsubscribeVitals EventName = "unsubscribe_vitals"
)

// legacyAliases 标准事件名 -> 旧事件名。别名仅用于向旧客户端双发，
// 单向映射，新客户端一律使用标准事件名。
var legacyAliases = map[EventName]EventName{
	EventAlertCreated:      "new_alert",
	EventAlertAcknowledged: "alert_updated",
	EventAlertResolved:     "alert_updated",
	EventVitalsUpdate:      "vitals",
}

// LegacyAlias 返回事件的旧别名；没有别名或别名与标准名相同时返回 false
func LegacyAlias(event EventName) (EventName, bool) {
	alias, ok := legacyAliases[event]
	if !ok || alias == event {
		return "", false
	}
	return alias, true
}

// 房间命名
const (
	// RoomStaff 全局护士站房间，staff/doctor 角色默认加入
	RoomStaff = "staff"

	patientRoomPrefix = "patient:"
)

// PatientRoom 返回患者房间名
func PatientRoom(patientID uint) string {
	return fmt.Sprintf("%s%d", patientRoomPrefix, patientID)
}

// ParsePatientRoom 解析患者房间名，返回患者ID；不是患者房间时返回 false。
// 前缀后必须整体是一个数字，带尾缀的字符串不算患者房间。
func ParsePatientRoom(room string) (uint, bool) {
	suffix, ok := strings.CutPrefix(room, patientRoomPrefix)
	if !ok || suffix == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(suffix, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// EmitOptions 控制标准化事件的广播目标
type EmitOptions struct {
	// PatientID 不为空时同时投递到该患者的房间
	PatientID *uint
	// IncludeStaff 是否投递到护士站房间，默认 true
	IncludeStaff *bool
	// AdditionalRooms 额外的显式目标房间
	AdditionalRooms []string
	// Legacy 是否同时以旧事件名双发，默认 true
	Legacy *bool
}

func (o EmitOptions) includeStaff() bool {
	return o.IncludeStaff == nil || *o.IncludeStaff
}

func (o EmitOptions) legacy() bool {
	return o.Legacy == nil || *o.Legacy
}

// resolveRooms 解析目标房间，顺序固定: staff -> patient -> additional。
// 顺序只影响日志可读性，不构成跨房间投递顺序保证。
func (o EmitOptions) resolveRooms() []string {
	rooms := make([]string, 0, 2+len(o.AdditionalRooms))
	if o.includeStaff() {
		rooms = append(rooms, RoomStaff)
	}
	if o.PatientID != nil {
		rooms = append(rooms, PatientRoom(*o.PatientID))
	}
	rooms = append(rooms, o.AdditionalRooms...)
	return rooms
}

// BoolPtr 用于填写 EmitOptions 中的可选布尔项
func BoolPtr(b bool) *bool { return &b }

// UintPtr 用于填写 EmitOptions 中的可选ID项
func UintPtr(u uint) *uint { return &u }
