package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 会话角色
const (
	RoleStaff   = "staff"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
	RolePatient = "patient"
	RoleFamily  = "family"
)

const (
	// 单个会话的发送缓冲大小，写满说明客户端消费过慢
	sessionSendBuffer = 64

	// 单条消息的写超时
	writeWait = 10 * time.Second
)

// Envelope 实时消息信封，所有下行消息统一为 {event, data}
type Envelope struct {
	Event EventName   `json:"event"`
	Data  interface{} `json:"data"`
}

// Session 一条已认证的实时连接及其房间成员关系。
// 会话完全属于当前进程，断开即销毁，不做任何持久化。
type Session struct {
	ID        string
	UserID    uint
	Role      string
	PatientID *uint // 患者本人为自己的ID，家属为关联患者的ID

	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{} // 由 Hub 持锁维护，会话自身不加锁

	// 发送通道由会话自己持锁守护：广播快照和注销并发时，
	// 投递方可能在通道关闭后才执行到发送
	sendMu sync.Mutex
	closed bool
}

// NewSession 创建一个新会话并启动写泵。conn 为 nil 时不启动写泵（测试用）。
func NewSession(conn *websocket.Conn, userID uint, role string, patientID *uint) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		PatientID: patientID,
		conn:      conn,
		send:      make(chan []byte, sessionSendBuffer),
		rooms:     make(map[string]struct{}),
	}
	if conn != nil {
		go s.writePump()
	}
	return s
}

// writePump 串行地把发送缓冲写到连接上，通道关闭时关闭连接
func (s *Session) writePump() {
	defer s.conn.Close()
	for msg := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// deliver 以非阻塞方式投递消息；缓冲已满时丢弃，避免拖慢整个房间。
// 会话已关闭时静默丢弃，绝不向已关闭的通道发送。
func (s *Session) deliver(msg []byte) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		log.Printf("[WS] 会话发送缓冲已满，丢弃消息: session=%s user=%d", s.ID, s.UserID)
		return false
	}
}

// close 关闭发送通道，幂等。之后的 deliver 全部丢弃。
func (s *Session) close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Send 序列化并投递一条消息到该会话
func (s *Session) Send(event EventName, data interface{}) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[WS] 序列化消息失败: event=%s err=%v", event, err)
		return
	}
	s.deliver(msg)
}

// SendError 向会话推送一条错误事件（消息级错误不断开连接）
func (s *Session) SendError(reason string) {
	s.Send(EventError, map[string]interface{}{
		"message":   reason,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Rooms 返回会话当前加入的房间名快照（仅用于日志与测试）
func (s *Session) Rooms() []string {
	rooms := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}
