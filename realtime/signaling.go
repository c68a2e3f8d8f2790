package realtime

import (
	"encoding/json"
	"fmt"
	"log"
)

// 信令中继：在同一房间内的发布端与观看端之间透传连接协商消息。
// 中继不理解负载内容，转发完成后立即丢弃，不做任何持久化。

// SignalMessage 客户端上行的信令消息体
type SignalMessage struct {
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// signalEvents 允许中继的信令事件集合
var signalEvents = map[EventName]struct{}{
	EventWebRTCReady:        {},
	EventWebRTCOffer:        {},
	EventWebRTCAnswer:       {},
	EventWebRTCICECandidate: {},
}

// JoinSignalRoom 处理 join_room：做准入检查后把会话加入信令房间。
// 房间号可以从患者号推导出来，所以这里必须校验会话身份与目标患者的
// 关系，仅"已认证"不构成加入资格。
func (h *Hub) JoinSignalRoom(s *Session, roomID string) error {
	if roomID == "" {
		return fmt.Errorf("%w: room_id is required", ErrValidation)
	}
	if !h.CanJoinRoom(s, roomID) {
		log.Printf("[WebRTC] 拒绝加入房间: session=%s user=%d role=%s room=%s", s.ID, s.UserID, s.Role, roomID)
		return fmt.Errorf("%w: %s", ErrRoomForbidden, roomID)
	}

	h.Join(s, roomID)
	log.Printf("[WebRTC] 会话加入信令房间: session=%s room=%s", s.ID, roomID)
	return nil
}

// RelaySignal 把一条信令消息转发给房间内除发送者外的所有会话。
// 消息永远不会回显给发送者；负载原样透传并附带发送者会话ID。
func (h *Hub) RelaySignal(sender *Session, event EventName, msg SignalMessage) error {
	if _, ok := signalEvents[event]; !ok {
		return fmt.Errorf("%w: unsupported signal event %q", ErrValidation, event)
	}
	if msg.RoomID == "" {
		return fmt.Errorf("%w: room_id is required", ErrValidation)
	}

	h.mu.RLock()
	_, member := h.rooms[msg.RoomID][sender.ID]
	peers := make([]*Session, 0, len(h.rooms[msg.RoomID]))
	for _, s := range h.rooms[msg.RoomID] {
		if s.ID != sender.ID {
			peers = append(peers, s)
		}
	}
	h.mu.RUnlock()

	if !member {
		return fmt.Errorf("%w: %s", ErrNotInRoom, msg.RoomID)
	}

	data, err := json.Marshal(Envelope{Event: event, Data: map[string]interface{}{
		"from":    sender.ID,
		"room_id": msg.RoomID,
		"payload": msg.Payload,
	}})
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	for _, peer := range peers {
		peer.deliver(data)
	}

	log.Printf("[WebRTC] 信令已转发: event=%s room=%s from=%s peers=%d", event, msg.RoomID, sender.ID, len(peers))
	return nil
}
