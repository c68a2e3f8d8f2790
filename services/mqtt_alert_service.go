package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"auracare-backend/config"
	"auracare-backend/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// 告警推送主题
const (
	TopicAlertCritical = "auracare/alerts/critical"
	TopicSystemStatus  = "auracare/system/status"
)

// InterfaceMQTTAlertService 定义MQTT告警推送服务接口。
// 用于把危急告警推送给院内广播终端等非 WebSocket 订阅方，
// 未启用时所有方法都是空操作。
type InterfaceMQTTAlertService interface {
	Connect() error
	Disconnect()
	PublishCriticalAlert(alert *models.Alert) error
	PublishSystemStatus(status map[string]interface{}) error
}

// AlertPushMessage 推送到MQTT的告警消息结构
type AlertPushMessage struct {
	AlertID    uint    `json:"alert_id"`
	PatientID  uint    `json:"patient_id"`
	RoomNumber string  `json:"room_number,omitempty"`
	Severity   string  `json:"severity"`
	VitalType  string  `json:"vital_type"`
	VitalValue float64 `json:"vital_value"`
	Message    string  `json:"message"`
	Timestamp  int64   `json:"timestamp"`
}

// MQTTAlertService MQTT告警推送服务实现
type MQTTAlertService struct {
	Config  *config.Config
	Client  mqtt.Client
	enabled bool
}

// NewMQTTAlertService 创建一个新的MQTT告警推送服务
func NewMQTTAlertService(cfg *config.Config) InterfaceMQTTAlertService {
	service := &MQTTAlertService{
		Config:  cfg,
		enabled: cfg.MQTTEnabled,
	}
	if service.enabled {
		service.setupMQTTClient()
	}
	return service
}

// setupMQTTClient 设置MQTT客户端
func (s *MQTTAlertService) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Config.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", s.Config.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Second * 30)
	opts.SetKeepAlive(time.Second * 60)
	opts.SetPingTimeout(time.Second * 10)
	opts.SetCleanSession(true)

	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] 连接丢失: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("[MQTT] 成功连接到 %s", s.Config.MQTTBrokerURL)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		log.Println("[MQTT] 正在尝试重连...")
	})

	s.Client = mqtt.NewClient(opts)
}

// Connect 连接到MQTT服务器
func (s *MQTTAlertService) Connect() error {
	if !s.enabled {
		return nil
	}
	token := s.Client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("连接MQTT服务器超时")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("连接MQTT服务器失败: %v", err)
	}
	return nil
}

// Disconnect 断开MQTT连接
func (s *MQTTAlertService) Disconnect() {
	if !s.enabled || s.Client == nil {
		return
	}
	s.Client.Disconnect(250)
}

// PublishCriticalAlert 推送危急告警，QoS 1 确保至少送达一次
func (s *MQTTAlertService) PublishCriticalAlert(alert *models.Alert) error {
	if !s.enabled {
		return nil
	}
	if !s.Client.IsConnected() {
		return fmt.Errorf("MQTT客户端未连接")
	}

	msg := AlertPushMessage{
		AlertID:    alert.ID,
		PatientID:  alert.PatientID,
		Severity:   string(alert.Severity),
		VitalType:  alert.VitalType,
		VitalValue: alert.VitalValue,
		Message:    alert.Message,
		Timestamp:  time.Now().UnixMilli(),
	}
	if alert.Patient != nil {
		msg.RoomNumber = alert.Patient.RoomNumber
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	token := s.Client.Publish(TopicAlertCritical, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("推送告警消息超时")
	}
	return token.Error()
}

// PublishSystemStatus 推送系统状态消息
func (s *MQTTAlertService) PublishSystemStatus(status map[string]interface{}) error {
	if !s.enabled {
		return nil
	}
	if !s.Client.IsConnected() {
		return fmt.Errorf("MQTT客户端未连接")
	}

	status["timestamp"] = time.Now().UnixMilli()
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}

	token := s.Client.Publish(TopicSystemStatus, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("推送系统状态超时")
	}
	return token.Error()
}
