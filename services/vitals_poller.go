package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"auracare-backend/config"
	"auracare-backend/models"
	"auracare-backend/realtime"

	"golang.org/x/sync/errgroup"
)

// Emitter 事件广播出口，由 realtime.Hub 实现
type Emitter interface {
	Emit(event realtime.EventName, data interface{}, opts realtime.EmitOptions)
}

// PollerStats 轮询引擎的累计统计
type PollerStats struct {
	Ticks     int64      `json:"ticks"`
	Successes int64      `json:"successes"`
	Failures  int64      `json:"failures"`
	Fallbacks int64      `json:"fallbacks"`
	Alerts    int64      `json:"alerts"`
	LastTick  *time.Time `json:"last_tick,omitempty"`
}

// vitalAlertState 单个病人单个体征的告警门控状态。
// 越限后并不是每一轮都重复告警：只有首次越限、读数较上次告警
// 继续偏移超过该体征的敏感度、或严重度升级时才再次告警。
type vitalAlertState struct {
	abnormal       bool
	severity       models.AlertSeverity
	lastAlertValue float64
}

// VitalsPoller 周期性拉取所有在院病人的生命体征，广播更新并
// 按阈值生成告警。
type VitalsPoller struct {
	Config    *config.Config
	Patients  InterfacePatientService
	Vitals    InterfaceVitalsService
	Redis     InterfaceRedisService
	Alerts    InterfaceAlertService
	AuditLogs InterfaceAuditLogService
	MQTT      InterfaceMQTTAlertService
	Emitter   Emitter

	mu         sync.Mutex
	alertState map[uint]map[string]*vitalAlertState // patientID -> vitalType -> state
	lastGood   map[uint]*VitalsSnapshot             // 本地兜底快照，Redis不可用时使用

	ticks     int64
	successes int64
	failures  int64
	alerts    int64
	lastTick  atomic.Value // time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewVitalsPoller 创建轮询引擎
func NewVitalsPoller(
	cfg *config.Config,
	patients InterfacePatientService,
	vitals InterfaceVitalsService,
	redis InterfaceRedisService,
	alerts InterfaceAlertService,
	auditLogs InterfaceAuditLogService,
	mqttAlerts InterfaceMQTTAlertService,
	emitter Emitter,
) *VitalsPoller {
	return &VitalsPoller{
		Config:     cfg,
		Patients:   patients,
		Vitals:     vitals,
		Redis:      redis,
		Alerts:     alerts,
		AuditLogs:  auditLogs,
		MQTT:       mqttAlerts,
		Emitter:    emitter,
		alertState: make(map[uint]map[string]*vitalAlertState),
		lastGood:   make(map[uint]*VitalsSnapshot),
	}
}

// Start 启动轮询，返回后轮询在后台运行直到 Stop 或父级 ctx 取消
func (p *VitalsPoller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	if err := p.MQTT.PublishSystemStatus(map[string]interface{}{
		"status":        "polling",
		"poll_interval": p.Config.PollInterval.String(),
		"mode":          p.Vitals.Mode(),
	}); err != nil {
		config.Warning("[Poller] 推送系统状态失败: %v", err)
	}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.Config.PollInterval)
		defer ticker.Stop()

		config.Info("[Poller] 启动体征轮询: interval=%s mode=%s", p.Config.PollInterval, p.Vitals.Mode())
		for {
			select {
			case <-ctx.Done():
				config.Info("[Poller] 体征轮询已停止")
				return
			case <-ticker.C:
				p.Tick(ctx)
			}
		}
	}()
}

// Stop 停止轮询并等待当前一轮结束
func (p *VitalsPoller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	if p.done != nil {
		<-p.done
	}

	stats := p.Stats()
	if err := p.MQTT.PublishSystemStatus(map[string]interface{}{
		"status": "stopped",
		"ticks":  stats.Ticks,
		"alerts": stats.Alerts,
	}); err != nil {
		config.Warning("[Poller] 推送系统状态失败: %v", err)
	}
}

// Stats 返回累计统计快照
func (p *VitalsPoller) Stats() PollerStats {
	stats := PollerStats{
		Ticks:     atomic.LoadInt64(&p.ticks),
		Successes: atomic.LoadInt64(&p.successes),
		Failures:  atomic.LoadInt64(&p.failures),
		Fallbacks: p.Vitals.FallbackCount(),
		Alerts:    atomic.LoadInt64(&p.alerts),
	}
	if t, ok := p.lastTick.Load().(time.Time); ok {
		stats.LastTick = &t
	}
	return stats
}

// Tick 执行一轮拉取。单个病人的失败不影响其他病人。
func (p *VitalsPoller) Tick(ctx context.Context) {
	atomic.AddInt64(&p.ticks, 1)
	p.lastTick.Store(time.Now())

	patients, err := p.Patients.GetActivePatients()
	if err != nil {
		config.Error("[Poller] 获取在院病人失败: %v", err)
		return
	}
	if len(patients) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Config.PollConcurrency)
	for i := range patients {
		patient := patients[i]
		g.Go(func() error {
			p.pollPatient(gctx, &patient)
			return nil
		})
	}
	g.Wait()
}

// pollPatient 处理单个病人：拉取 -> 缓存 -> 广播 -> 阈值检查
func (p *VitalsPoller) pollPatient(ctx context.Context, patient *models.Patient) {
	snap, err := p.Vitals.GetVitals(ctx, patient.RoomNumber)
	if err != nil {
		atomic.AddInt64(&p.failures, 1)
		config.Warning("[Poller] 拉取体征失败: patient=%d room=%s err=%v", patient.ID, patient.RoomNumber, err)

		// 用上一份有效快照兜底，并标记为过期数据
		stale := p.staleSnapshot(patient.ID)
		if stale == nil {
			return
		}
		p.Emitter.Emit(realtime.EventVitalsUpdate, p.vitalsPayload(patient, stale), realtime.EmitOptions{
			PatientID: realtime.UintPtr(patient.ID),
		})
		return
	}
	atomic.AddInt64(&p.successes, 1)
	snap.Stale = false

	p.rememberSnapshot(patient.ID, snap)

	p.Emitter.Emit(realtime.EventVitalsUpdate, p.vitalsPayload(patient, snap), realtime.EmitOptions{
		PatientID: realtime.UintPtr(patient.ID),
	})

	p.checkThresholds(patient, snap)
}

// rememberSnapshot 写入Redis缓存和本地兜底快照
func (p *VitalsPoller) rememberSnapshot(patientID uint, snap *VitalsSnapshot) {
	p.mu.Lock()
	copied := *snap
	p.lastGood[patientID] = &copied
	p.mu.Unlock()

	if err := p.Redis.CacheVitals(patientID, snap); err != nil {
		config.Warning("[Poller] 写入体征缓存失败: patient=%d err=%v", patientID, err)
	}
}

// staleSnapshot 取上一份有效快照并标记 Stale，优先本地，其次Redis
func (p *VitalsPoller) staleSnapshot(patientID uint) *VitalsSnapshot {
	p.mu.Lock()
	last := p.lastGood[patientID]
	p.mu.Unlock()

	if last == nil {
		cached, err := p.Redis.GetCachedVitals(patientID)
		if err != nil || cached == nil {
			return nil
		}
		last = cached
	}

	stale := *last
	stale.Stale = true
	return &stale
}

// vitalsPayload 组装体征广播消息
func (p *VitalsPoller) vitalsPayload(patient *models.Patient, snap *VitalsSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"patient_id":  patient.ID,
		"room_number": patient.RoomNumber,
		"vitals":      snap,
		"stale":       snap.Stale,
		"timestamp":   snap.Timestamp.UnixMilli(),
	}
}

// checkThresholds 对快照的每个体征做阈值检查并按门控生成告警
func (p *VitalsPoller) checkThresholds(patient *models.Patient, snap *VitalsSnapshot) {
	for _, vitalType := range VitalTypes {
		value, ok := snap.Value(vitalType)
		if !ok {
			continue
		}
		threshold := Thresholds[vitalType]

		if value >= threshold.Min && value <= threshold.Max {
			p.clearAlertState(patient.ID, vitalType)
			continue
		}

		severity := alertSeverityFor(value, threshold)
		if !p.shouldAlert(patient.ID, vitalType, value, severity) {
			continue
		}
		p.raiseAlert(patient, vitalType, value, threshold, severity)
	}
}

// alertSeverityFor 根据越限幅度判定严重度：
// 相对最近一侧边界偏离超过 20% 视为危急
func alertSeverityFor(value float64, threshold Threshold) models.AlertSeverity {
	var deviation float64
	if value < threshold.Min {
		deviation = (threshold.Min - value) / threshold.Min
	} else {
		deviation = (value - threshold.Max) / threshold.Max
	}
	if deviation > 0.2 {
		return models.AlertSeverityCritical
	}
	return models.AlertSeverityWarning
}

// shouldAlert 告警门控，决定本次越限是否需要新告警
func (p *VitalsPoller) shouldAlert(patientID uint, vitalType string, value float64, severity models.AlertSeverity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	states, ok := p.alertState[patientID]
	if !ok {
		states = make(map[string]*vitalAlertState)
		p.alertState[patientID] = states
	}

	state, ok := states[vitalType]
	if !ok || !state.abnormal {
		// 首次越限
		states[vitalType] = &vitalAlertState{abnormal: true, severity: severity, lastAlertValue: value}
		return true
	}

	// 严重度升级
	if state.severity == models.AlertSeverityWarning && severity == models.AlertSeverityCritical {
		state.severity = severity
		state.lastAlertValue = value
		return true
	}

	// 读数较上次告警继续偏移超过敏感度
	if diff := value - state.lastAlertValue; diff >= Sensitivity[vitalType] || -diff >= Sensitivity[vitalType] {
		state.severity = severity
		state.lastAlertValue = value
		return true
	}

	return false
}

// clearAlertState 读数回到正常范围后重置门控
func (p *VitalsPoller) clearAlertState(patientID uint, vitalType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if states, ok := p.alertState[patientID]; ok {
		delete(states, vitalType)
	}
}

// raiseAlert 持久化告警和审计记录并广播。持久化失败只记日志，
// 不影响其他体征和病人的处理；门控状态回滚以便下一轮重试。
func (p *VitalsPoller) raiseAlert(patient *models.Patient, vitalType string, value float64, threshold Threshold, severity models.AlertSeverity) {
	alert, err := p.Alerts.CreateVitalAlert(patient, vitalType, value, threshold, severity)
	if err != nil {
		config.Error("[Poller] 持久化告警失败: patient=%d vital=%s err=%v", patient.ID, vitalType, err)
		p.clearAlertState(patient.ID, vitalType)
		return
	}
	atomic.AddInt64(&p.alerts, 1)

	if _, err := p.AuditLogs.Record("vital_anomaly", "alert", &alert.ID, patient.ID, nil, map[string]interface{}{
		"vital_type": vitalType,
		"value":      value,
		"min":        threshold.Min,
		"max":        threshold.Max,
		"severity":   severity,
	}); err != nil {
		config.Error("[Poller] 写入审计记录失败: alert=%d err=%v", alert.ID, err)
	}

	p.Emitter.Emit(realtime.EventAlertCreated, alert, realtime.EmitOptions{
		PatientID: realtime.UintPtr(patient.ID),
	})
	p.Emitter.Emit(realtime.EventHistoryUpdate, map[string]interface{}{
		"patient_id": patient.ID,
		"action":     "vital_anomaly",
		"alert_id":   alert.ID,
	}, realtime.EmitOptions{
		PatientID: realtime.UintPtr(patient.ID),
	})

	if severity == models.AlertSeverityCritical {
		if err := p.MQTT.PublishCriticalAlert(alert); err != nil {
			config.Warning("[Poller] MQTT推送危急告警失败: alert=%d err=%v", alert.ID, err)
		}
	}
}
