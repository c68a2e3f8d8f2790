package services

import (
	"errors"
	"time"
)

var (
	// ErrExternalService 外部体征服务不可用或超时，该患者本轮跳过，循环继续
	ErrExternalService = errors.New("external vitals service unavailable")

	// ErrPersistence 告警/审计写入失败，记录日志后吞掉，不阻断实时广播
	ErrPersistence = errors.New("persistence failure")
)

// 体征类型标识，与外部体征服务及前端字段保持一致
const (
	VitalSpo2        = "spo2"
	VitalHeartRate   = "heartRate"
	VitalSystolicBp  = "systolicBp"
	VitalDiastolicBp = "diastolicBp"
	VitalTemperature = "temperature"
)

// VitalTypes 固定的体征检查顺序
var VitalTypes = []string{VitalSpo2, VitalHeartRate, VitalSystolicBp, VitalDiastolicBp, VitalTemperature}

// BloodPressure 血压读数
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// VitalsSnapshot 一个患者某一时刻的体征读数。
// 仅保留在内存与短TTL缓存中，本服务从不持久化。
type VitalsSnapshot struct {
	HeartRate        float64       `json:"heartRate"`
	BloodPressure    BloodPressure `json:"bloodPressure"`
	OxygenSaturation float64       `json:"oxygenSaturation"`
	Temperature      float64       `json:"temperature"` // 摄氏度
	RespiratoryRate  float64       `json:"respiratoryRate"`
	Timestamp        time.Time     `json:"timestamp"`
	RoomNumber       string        `json:"roomNumber"`
	Status           string        `json:"status"`          // normal / warning / critical
	Stale            bool          `json:"stale,omitempty"` // 外部拉取失败后回放的旧数据
}

// Value 按体征类型取读数
func (s *VitalsSnapshot) Value(vitalType string) (float64, bool) {
	switch vitalType {
	case VitalSpo2:
		return s.OxygenSaturation, true
	case VitalHeartRate:
		return s.HeartRate, true
	case VitalSystolicBp:
		return s.BloodPressure.Systolic, true
	case VitalDiastolicBp:
		return s.BloodPressure.Diastolic, true
	case VitalTemperature:
		return s.Temperature, true
	}
	return 0, false
}

// VitalsUpdate 手动覆写请求，零值字段不参与覆写
type VitalsUpdate struct {
	HeartRate        *float64       `json:"heartRate,omitempty"`
	BloodPressure    *BloodPressure `json:"bloodPressure,omitempty"`
	OxygenSaturation *float64       `json:"oxygenSaturation,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	RespiratoryRate  *float64       `json:"respiratoryRate,omitempty"`
}

// Threshold 单个体征类型的静态上下限
type Threshold struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Thresholds 各体征类型的异常判定上下限（配置常量）
var Thresholds = map[string]Threshold{
	VitalSpo2:        {Min: 90, Max: 100},
	VitalHeartRate:   {Min: 60, Max: 100},
	VitalSystolicBp:  {Min: 90, Max: 140},
	VitalDiastolicBp: {Min: 60, Max: 90},
	VitalTemperature: {Min: 36.1, Max: 37.2}, // Celsius
}

// Sensitivity 各体征类型的显著变化灵敏度，用于持续异常时的告警去重门控
var Sensitivity = map[string]float64{
	VitalSpo2:        2,   // 2% change
	VitalHeartRate:   5,   // 5 bpm change
	VitalSystolicBp:  10,  // 10 mmHg change
	VitalDiastolicBp: 5,   // 5 mmHg change
	VitalTemperature: 0.3, // 0.3°C change
}
