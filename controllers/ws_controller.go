package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"auracare-backend/realtime"
	"auracare-backend/services"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// upgrader WebSocket升级器。跨域校验交给前置的CORS中间件
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage 客户端上行消息，统一 {event, data} 信封
type clientMessage struct {
	Event realtime.EventName `json:"event"`
	Data  json.RawMessage    `json:"data"`
}

// subscribeRequest subscribe_vitals / unsubscribe_vitals 的消息体
type subscribeRequest struct {
	PatientID uint `json:"patient_id"`
}

// joinRoomRequest join_room 的消息体
type joinRoomRequest struct {
	RoomID string `json:"room_id"`
}

// WSController 处理实时连接的建立与消息分发
type WSController struct {
	Container *container.ServiceContainer
}

// NewWSController 创建一个新的实时连接控制器
func NewWSController(container *container.ServiceContainer) *WSController {
	return &WSController{Container: container}
}

// HandleWSFunc 返回实时连接入口的Gin处理函数
func HandleWSFunc(container *container.ServiceContainer) gin.HandlerFunc {
	controller := NewWSController(container)
	return controller.Connect
}

// Connect 建立实时连接。
// 令牌校验在协议升级之前完成：校验失败直接返回 401，连接不会升级。
// @Summary      Realtime WebSocket endpoint
// @Description  Upgrade to WebSocket after token validation; token via query parameter or Authorization header
// @Tags         Realtime
// @Param        token query string false "JWT token"
// @Success      101 "Switching Protocols"
// @Failure      401 {object} ErrorResponse
// @Router       /ws [get]
func (c *WSController) Connect(ctx *gin.Context) {
	token := ctx.Query("token")
	if token == "" {
		auth := ctx.GetHeader("Authorization")
		if len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "token is required",
			"data":    nil,
		})
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	claims, err := jwtService.ExtractClaims(token)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "invalid token",
			"data":    nil,
		})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Printf("[WS] 协议升级失败: %v", err)
		return
	}

	hub := c.Container.GetHub()
	session := realtime.NewSession(conn, claims.UserID, claims.Role, claims.PatientID)
	hub.Register(session)
	defer hub.Unregister(session)

	c.readLoop(session, conn)
}

// readLoop 逐条读取并分发上行消息，读失败即结束会话。
// 消息级错误只回推 error 事件，不断开连接。
func (c *WSController) readLoop(session *realtime.Session, conn *websocket.Conn) {
	hub := c.Container.GetHub()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] 连接异常断开: session=%s err=%v", session.ID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			session.SendError("invalid message format")
			continue
		}

		switch msg.Event {
		case realtime.EventSubscribeVitals:
			c.handleSubscribe(hub, session, msg.Data, true)
		case realtime.EventUnsubscribeVitals:
			c.handleSubscribe(hub, session, msg.Data, false)
		case realtime.EventJoinRoom:
			c.handleJoinRoom(hub, session, msg.Data)
		case realtime.EventWebRTCReady, realtime.EventWebRTCOffer,
			realtime.EventWebRTCAnswer, realtime.EventWebRTCICECandidate:
			c.handleSignal(hub, session, msg.Event, msg.Data)
		default:
			session.SendError("unsupported event: " + string(msg.Event))
		}
	}
}

// handleSubscribe 处理体征订阅与退订
func (c *WSController) handleSubscribe(hub *realtime.Hub, session *realtime.Session, data json.RawMessage, subscribe bool) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil || req.PatientID == 0 {
		session.SendError("patient_id is required")
		return
	}

	room := realtime.PatientRoom(req.PatientID)
	if !subscribe {
		hub.Leave(session, room)
		return
	}

	if !hub.CanJoinRoom(session, room) {
		session.SendError("not allowed to subscribe patient " + room)
		return
	}
	hub.Join(session, room)

	// 订阅后立即推一次缓存里的最新快照，不必等下一轮轮询
	redisService := c.Container.GetService("redis").(services.InterfaceRedisService)
	if cached, err := redisService.GetCachedVitals(req.PatientID); err == nil && cached != nil {
		session.Send(realtime.EventVitalsUpdate, map[string]interface{}{
			"patient_id": req.PatientID,
			"vitals":     cached,
			"stale":      cached.Stale,
			"timestamp":  cached.Timestamp.UnixMilli(),
		})
	}
}

// handleJoinRoom 处理信令房间加入
func (c *WSController) handleJoinRoom(hub *realtime.Hub, session *realtime.Session, data json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		session.SendError("invalid join_room message")
		return
	}

	if err := hub.JoinSignalRoom(session, req.RoomID); err != nil {
		session.SendError(err.Error())
	}
}

// handleSignal 处理WebRTC信令转发
func (c *WSController) handleSignal(hub *realtime.Hub, session *realtime.Session, event realtime.EventName, data json.RawMessage) {
	var msg realtime.SignalMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		session.SendError("invalid signal message")
		return
	}

	if err := hub.RelaySignal(session, event, msg); err != nil {
		if errors.Is(err, realtime.ErrNotInRoom) || errors.Is(err, realtime.ErrValidation) {
			session.SendError(err.Error())
			return
		}
		log.Printf("[WebRTC] 信令转发失败: session=%s event=%s err=%v", session.ID, event, err)
	}
}
