package services

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimulatorVitalsSource 合成体征生成器。
// 没有外部体征服务可用时作为兜底数据源：每个病房随机分配一种病情
// 模式（normal/critical/recovering），在基准值附近叠加正弦波动、
// 随机噪声和缓慢趋势，并收敛到该模式的取值区间内。
type SimulatorVitalsSource struct {
	mu        sync.Mutex
	patterns  map[string]*roomPattern
	overrides map[string]*VitalsSnapshot // 手动覆写的快照，按病房号
	rng       *rand.Rand
}

// vitalRange 单个体征的基准与区间
type vitalRange struct {
	min, max, base float64
}

// conditionProfile 一种病情模式下各体征的区间表
type conditionProfile struct {
	heartRate       vitalRange
	systolic        vitalRange
	diastolic       vitalRange
	oxygen          vitalRange
	temperature     vitalRange
	respiratoryRate vitalRange
}

// 病情模式表，取值区间与外部体征服务保持一致（体温为摄氏度）
var patientConditions = map[string]conditionProfile{
	"normal": {
		heartRate:       vitalRange{60, 100, 75},
		systolic:        vitalRange{90, 140, 120},
		diastolic:       vitalRange{60, 90, 80},
		oxygen:          vitalRange{95, 100, 98},
		temperature:     vitalRange{36.1, 37.5, 36.8},
		respiratoryRate: vitalRange{12, 20, 16},
	},
	"critical": {
		heartRate:       vitalRange{40, 150, 110},
		systolic:        vitalRange{70, 200, 160},
		diastolic:       vitalRange{40, 120, 100},
		oxygen:          vitalRange{85, 95, 92},
		temperature:     vitalRange{35.0, 40.0, 38.6},
		respiratoryRate: vitalRange{8, 35, 25},
	},
	"recovering": {
		heartRate:       vitalRange{65, 110, 85},
		systolic:        vitalRange{100, 160, 135},
		diastolic:       vitalRange{65, 95, 85},
		oxygen:          vitalRange{92, 99, 96},
		temperature:     vitalRange{36.4, 38.1, 37.3},
		respiratoryRate: vitalRange{14, 24, 18},
	},
}

var conditionNames = []string{"normal", "critical", "recovering"}

// roomPattern 每个病房独立的波形参数
type roomPattern struct {
	condition   string
	phaseOffset float64 // 随机相位
	noiseFactor float64 // 随机噪声幅度
	trendFactor float64 // 每小时的缓慢趋势
	createdAt   time.Time
}

// NewSimulatorVitalsSource 创建合成体征生成器
func NewSimulatorVitalsSource() *SimulatorVitalsSource {
	return &SimulatorVitalsSource{
		patterns:  make(map[string]*roomPattern),
		overrides: make(map[string]*VitalsSnapshot),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// pattern 取出病房的波形参数，首次访问时随机初始化
func (s *SimulatorVitalsSource) pattern(roomNumber string) *roomPattern {
	p, ok := s.patterns[roomNumber]
	if !ok {
		p = &roomPattern{
			condition:   conditionNames[s.rng.Intn(len(conditionNames))],
			phaseOffset: s.rng.Float64() * 2 * math.Pi,
			noiseFactor: 0.05 + s.rng.Float64()*0.10,
			trendFactor: -0.1 + s.rng.Float64()*0.2,
			createdAt:   time.Now(),
		}
		s.patterns[roomNumber] = p
	}
	return p
}

// Fetch 生成指定病房的体征快照；存在手动覆写时优先返回覆写值
func (s *SimulatorVitalsSource) Fetch(_ context.Context, roomNumber string) (*VitalsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if override, ok := s.overrides[roomNumber]; ok {
		snap := *override
		snap.Timestamp = time.Now()
		return &snap, nil
	}

	return s.generateLocked(roomNumber), nil
}

// Update 记录手动覆写值，之后的 Fetch 返回覆写后的快照
func (s *SimulatorVitalsSource) Update(_ context.Context, roomNumber string, update *VitalsUpdate) (*VitalsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.generateLocked(roomNumber)
	if update.HeartRate != nil {
		snap.HeartRate = *update.HeartRate
	}
	if update.BloodPressure != nil {
		snap.BloodPressure = *update.BloodPressure
	}
	if update.OxygenSaturation != nil {
		snap.OxygenSaturation = *update.OxygenSaturation
	}
	if update.Temperature != nil {
		snap.Temperature = *update.Temperature
	}
	if update.RespiratoryRate != nil {
		snap.RespiratoryRate = *update.RespiratoryRate
	}
	snap.Status = vitalsStatus(snap)
	snap.Timestamp = time.Now()

	s.overrides[roomNumber] = snap
	out := *snap
	return &out, nil
}

// ClearOverride 清除病房的手动覆写，恢复自动生成
func (s *SimulatorVitalsSource) ClearOverride(roomNumber string) {
	s.mu.Lock()
	delete(s.overrides, roomNumber)
	s.mu.Unlock()
}

// Condition 返回病房被分配到的病情模式（便于测试与诊断接口）
func (s *SimulatorVitalsSource) Condition(roomNumber string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pattern(roomNumber).condition
}

func (s *SimulatorVitalsSource) generateLocked(roomNumber string) *VitalsSnapshot {
	p := s.pattern(roomNumber)
	profile := patientConditions[p.condition]

	now := time.Now()
	timeFactor := float64(now.UnixMilli()) / 1000 * 0.1
	sineWave := math.Sin(timeFactor + p.phaseOffset)
	cosineWave := math.Cos(timeFactor*0.5 + p.phaseOffset)
	trend := p.trendFactor * now.Sub(p.createdAt).Hours()

	gen := func(r vitalRange, waveFactor float64) float64 {
		variation := (sineWave*0.6 + cosineWave*0.4) * waveFactor
		noise := -p.noiseFactor + s.rng.Float64()*2*p.noiseFactor
		value := r.base + variation*(r.max-r.min)*0.1 + noise + trend
		return clamp(value, r.min, r.max)
	}

	snap := &VitalsSnapshot{
		HeartRate: round1(gen(profile.heartRate, 1.2)),
		BloodPressure: BloodPressure{
			Systolic:  round1(gen(profile.systolic, 0.8)),
			Diastolic: round1(gen(profile.diastolic, 0.8)),
		},
		OxygenSaturation: round1(gen(profile.oxygen, 0.5)),
		Temperature:      round1(gen(profile.temperature, 0.3)),
		RespiratoryRate:  round1(gen(profile.respiratoryRate, 1.0)),
		Timestamp:        now,
		RoomNumber:       roomNumber,
	}
	snap.Status = vitalsStatus(snap)
	return snap
}

// vitalsStatus 根据读数计算整体状态
func vitalsStatus(s *VitalsSnapshot) string {
	status := "normal"
	if s.HeartRate > 100 || s.HeartRate < 60 ||
		s.BloodPressure.Systolic > 140 || s.BloodPressure.Diastolic > 90 ||
		s.OxygenSaturation < 95 || s.Temperature > 38.0 || s.RespiratoryRate > 20 {
		status = "warning"
	}
	if s.HeartRate > 120 || s.HeartRate < 50 ||
		s.BloodPressure.Systolic > 160 || s.BloodPressure.Diastolic > 100 ||
		s.OxygenSaturation < 90 || s.Temperature > 38.9 || s.RespiratoryRate > 25 {
		status = "critical"
	}
	return status
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
