package realtime

import "errors"

var (
	// ErrAuthentication 连接凭证缺失或无效，连接必须被拒绝
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation 客户端消息格式错误或越权，丢弃该消息但保留会话
	ErrValidation = errors.New("invalid message")

	// ErrNotInRoom 会话不在目标房间内，信令消息被丢弃
	ErrNotInRoom = errors.New("session is not a member of the room")

	// ErrRoomForbidden 会话无权加入目标患者房间
	ErrRoomForbidden = errors.New("session is not allowed to join the room")
)
