package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub 连接注册表与房间路由器。
//
// 会话与房间状态只属于当前进程实例，横向扩容需要外部共享 pub/sub
// 作为跨实例转发层，这里不做。房间在第一次 Join 时隐式创建，
// 最后一个成员离开时隐式回收。
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session            // sessionID -> session
	users    map[uint]*Session              // userID -> session（同一用户后连接的覆盖先连接的）
	rooms    map[string]map[string]*Session // roomName -> sessionID -> session

	heartbeatInterval time.Duration
	heartbeatStop     chan struct{}
	heartbeatOnce     sync.Once
}

// NewHub 创建连接注册表
func NewHub(heartbeatInterval time.Duration) *Hub {
	return &Hub{
		sessions:          make(map[string]*Session),
		users:             make(map[uint]*Session),
		rooms:             make(map[string]map[string]*Session),
		heartbeatInterval: heartbeatInterval,
		heartbeatStop:     make(chan struct{}),
	}
}

// Register 登记会话并按角色加入默认房间。
// 调用方必须先完成令牌校验，未认证的连接不允许走到这里。
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.users[s.UserID] = s

	// 角色默认房间: 医护(含管理员)进入护士站房间，患者/家属进入对应患者房间
	switch s.Role {
	case RoleStaff, RoleDoctor, RoleAdmin:
		h.joinLocked(s, RoomStaff)
	case RolePatient:
		h.joinLocked(s, PatientRoom(s.UserID))
	case RoleFamily:
		if s.PatientID != nil {
			h.joinLocked(s, PatientRoom(*s.PatientID))
		}
	}
	h.mu.Unlock()

	log.Printf("[WS] 会话已连接: session=%s user=%d role=%s", s.ID, s.UserID, s.Role)
}

// Unregister 注销会话：退出所有房间、关闭发送通道。
// 不触发任何依赖数据清理（告警、审计日志与连接生命周期无关）。
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.ID)
	if cur, ok := h.users[s.UserID]; ok && cur.ID == s.ID {
		delete(h.users, s.UserID)
	}
	for room := range s.rooms {
		h.leaveLocked(s, room)
	}
	s.close()
	h.mu.Unlock()

	log.Printf("[WS] 会话已断开: session=%s user=%d", s.ID, s.UserID)
}

// Join 将会话加入房间，重复加入为幂等空操作
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	h.joinLocked(s, room)
	h.mu.Unlock()
}

// Leave 将会话移出房间，不在房间内时为幂等空操作
func (h *Hub) Leave(s *Session, room string) {
	h.mu.Lock()
	h.leaveLocked(s, room)
	h.mu.Unlock()
}

func (h *Hub) joinLocked(s *Session, room string) {
	if _, ok := s.rooms[room]; ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		h.rooms[room] = members
	}
	members[s.ID] = s
	s.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(s *Session, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, s.ID)
	delete(s.rooms, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Lookup 按用户ID查找在线会话，用于点对点投递
func (h *Hub) Lookup(userID uint) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.users[userID]
	return s, ok
}

// SendToUser 向指定用户的在线会话点对点投递事件，用户不在线时返回 false
func (h *Hub) SendToUser(userID uint, event EventName, data interface{}) bool {
	s, ok := h.Lookup(userID)
	if !ok {
		return false
	}
	s.Send(event, data)
	return true
}

// RoomSize 返回房间当前成员数
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// SessionCount 返回当前在线会话数
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast 向房间内的所有会话投递事件。
// 空房间是静默空操作。同一房间内的投递顺序与调用顺序一致。
func (h *Hub) Broadcast(room string, event EventName, data interface{}) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[WS] 序列化广播消息失败: event=%s err=%v", event, err)
		return
	}

	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[room]))
	for _, s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		s.deliver(msg)
	}
}

// BroadcastAll 向所有在线会话投递事件，不看房间归属
func (h *Hub) BroadcastAll(event EventName, data interface{}) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[WS] 序列化广播消息失败: event=%s err=%v", event, err)
		return
	}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.deliver(msg)
	}
}

// Emit 按标准化规则广播事件：解析目标房间（staff -> patient -> additional），
// 对每个房间投递标准事件，存在旧别名且开启 legacy 时再以别名双发。
func (h *Hub) Emit(event EventName, data interface{}, opts EmitOptions) {
	rooms := opts.resolveRooms()

	for _, room := range rooms {
		h.Broadcast(room, event, data)

		if opts.legacy() {
			if alias, ok := LegacyAlias(event); ok {
				h.Broadcast(room, alias, data)
			}
		}
	}

	log.Printf("[WS] 事件已广播: event=%s rooms=%v", event, rooms)
}

// StartHeartbeat 启动全员心跳，所有在线会话每个周期都会收到
// server_heartbeat，用于客户端判断传输层健康
func (h *Hub) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(h.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.BroadcastAll(EventHeartbeat, map[string]interface{}{
					"timestamp": time.Now().UnixMilli(),
				})
			case <-h.heartbeatStop:
				return
			}
		}
	}()
	log.Printf("[WS] 心跳已启动: interval=%s", h.heartbeatInterval)
}

// StopHeartbeat 停止心跳广播
func (h *Hub) StopHeartbeat() {
	h.heartbeatOnce.Do(func() {
		close(h.heartbeatStop)
	})
}

// CanJoinRoom 校验会话是否有权加入房间。
// 房间ID可由患者ID推导，必须在 join 前做准入检查，
// 否则任何已认证会话都能枚举房间号旁听别人的信令交换。
func (h *Hub) CanJoinRoom(s *Session, room string) bool {
	if room == RoomStaff {
		return s.Role == RoleStaff || s.Role == RoleDoctor || s.Role == RoleAdmin
	}

	patientID, ok := ParsePatientRoom(room)
	if !ok {
		return false
	}

	switch s.Role {
	case RoleStaff, RoleDoctor, RoleAdmin:
		return true
	case RolePatient:
		return s.UserID == patientID
	case RoleFamily:
		return s.PatientID != nil && *s.PatientID == patientID
	}
	return false
}
