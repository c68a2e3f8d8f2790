package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auracare-backend/config"
	"auracare-backend/models"
	"auracare-backend/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- 测试替身 ----

type fakePatients struct {
	active []models.Patient
	err    error
}

func (f *fakePatients) GetAllPatients() ([]models.Patient, error)    { return f.active, f.err }
func (f *fakePatients) GetActivePatients() ([]models.Patient, error) { return f.active, f.err }
func (f *fakePatients) GetPatientByID(id uint) (*models.Patient, error) {
	for i := range f.active {
		if f.active[i].ID == id {
			return &f.active[i], nil
		}
	}
	return nil, errors.New("病人不存在")
}
func (f *fakePatients) CreatePatient(p *models.Patient) error { return nil }
func (f *fakePatients) UpdatePatient(id uint, updates map[string]interface{}) (*models.Patient, error) {
	return nil, nil
}
func (f *fakePatients) SetPatientActive(id uint, active bool) (*models.Patient, error) {
	return nil, nil
}
func (f *fakePatients) GetFamilyMembers(patientID uint) ([]models.FamilyMember, error) {
	return nil, nil
}
func (f *fakePatients) IsFamilyOf(familyMemberID, patientID uint) (bool, error) { return false, nil }

type fakeVitals struct {
	mu    sync.Mutex
	snaps map[string]*VitalsSnapshot
	errs  map[string]error
}

func (f *fakeVitals) GetVitals(_ context.Context, room string) (*VitalsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[room]; err != nil {
		return nil, err
	}
	snap := *f.snaps[room]
	return &snap, nil
}
func (f *fakeVitals) UpdateVitals(_ context.Context, room string, _ *VitalsUpdate) (*VitalsSnapshot, error) {
	return f.GetVitals(context.Background(), room)
}
func (f *fakeVitals) FallbackCount() int64 { return 0 }
func (f *fakeVitals) Mode() string         { return "simulator" }

func (f *fakeVitals) set(room string, snap *VitalsSnapshot) {
	f.mu.Lock()
	f.snaps[room] = snap
	delete(f.errs, room)
	f.mu.Unlock()
}

func (f *fakeVitals) fail(room string, err error) {
	f.mu.Lock()
	f.errs[room] = err
	f.mu.Unlock()
}

type fakeRedis struct {
	mu    sync.Mutex
	cache map[uint]*VitalsSnapshot
}

func (f *fakeRedis) Set(string, interface{}, time.Duration) error { return nil }
func (f *fakeRedis) Get(string, interface{}) error                { return errors.New("cache miss") }
func (f *fakeRedis) Delete(string) error                          { return nil }
func (f *fakeRedis) CacheVitals(patientID uint, snap *VitalsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[uint]*VitalsSnapshot)
	}
	copied := *snap
	f.cache[patientID] = &copied
	return nil
}
func (f *fakeRedis) GetCachedVitals(patientID uint) (*VitalsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap, ok := f.cache[patientID]; ok {
		copied := *snap
		return &copied, nil
	}
	return nil, errors.New("cache miss")
}

type createdAlert struct {
	patientID uint
	vitalType string
	value     float64
	severity  models.AlertSeverity
}

type fakeAlerts struct {
	mu      sync.Mutex
	created []createdAlert
	nextID  uint
	err     error
}

func (f *fakeAlerts) CreateVitalAlert(p *models.Patient, vitalType string, value float64, threshold Threshold, severity models.AlertSeverity) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	f.created = append(f.created, createdAlert{p.ID, vitalType, value, severity})
	return &models.Alert{
		ID:        f.nextID,
		PatientID: p.ID,
		Severity:  severity,
		VitalType: vitalType,
		Patient:   p,
	}, nil
}
func (f *fakeAlerts) GetAlerts(*models.PaginationQuery, models.AlertStatus, uint) ([]models.Alert, models.PaginationResult, error) {
	return nil, models.PaginationResult{}, nil
}
func (f *fakeAlerts) GetActiveAlerts(uint) ([]models.Alert, error)  { return nil, nil }
func (f *fakeAlerts) GetAlertByID(uint) (*models.Alert, error)      { return nil, nil }
func (f *fakeAlerts) CreatePatientRequestAlert(uint, string) (*models.Alert, error) {
	return nil, nil
}
func (f *fakeAlerts) AcknowledgeAlert(uint, uint) (*models.Alert, error) { return nil, nil }
func (f *fakeAlerts) ResolveAlert(uint, uint) (*models.Alert, error)     { return nil, nil }

func (f *fakeAlerts) all() []createdAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createdAlert(nil), f.created...)
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
	err     error
}

func (f *fakeAudit) Record(action, entity string, entityID *uint, patientID uint, performedBy *uint, details interface{}) (*models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.actions = append(f.actions, action)
	return &models.AuditLog{Action: action}, nil
}
func (f *fakeAudit) GetLogs(*models.PaginationQuery, uint, string) ([]models.AuditLog, models.PaginationResult, error) {
	return nil, models.PaginationResult{}, nil
}

type fakeMQTT struct {
	mu        sync.Mutex
	published []uint
	statuses  []map[string]interface{}
}

func (f *fakeMQTT) Connect() error { return nil }
func (f *fakeMQTT) Disconnect()    {}
func (f *fakeMQTT) PublishCriticalAlert(alert *models.Alert) error {
	f.mu.Lock()
	f.published = append(f.published, alert.ID)
	f.mu.Unlock()
	return nil
}
func (f *fakeMQTT) PublishSystemStatus(status map[string]interface{}) error {
	f.mu.Lock()
	f.statuses = append(f.statuses, status)
	f.mu.Unlock()
	return nil
}

type emittedEvent struct {
	event realtime.EventName
	data  interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeEmitter) Emit(event realtime.EventName, data interface{}, opts realtime.EmitOptions) {
	f.mu.Lock()
	f.events = append(f.events, emittedEvent{event, data})
	f.mu.Unlock()
}

func (f *fakeEmitter) byName(name realtime.EventName) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.events {
		if e.event == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

// ---- 测试脚手架 ----

func healthySnapshot(room string) *VitalsSnapshot {
	return &VitalsSnapshot{
		HeartRate:        75,
		BloodPressure:    BloodPressure{Systolic: 120, Diastolic: 80},
		OxygenSaturation: 97,
		Temperature:      36.8,
		RespiratoryRate:  16,
		Timestamp:        time.Now(),
		RoomNumber:       room,
		Status:           "normal",
	}
}

type pollerFixture struct {
	poller  *VitalsPoller
	vitals  *fakeVitals
	alerts  *fakeAlerts
	audit   *fakeAudit
	mqtt    *fakeMQTT
	emitter *fakeEmitter
}

func newPollerFixture(patients ...models.Patient) *pollerFixture {
	cfg := &config.Config{
		PollInterval:    time.Second,
		PollConcurrency: 4,
	}
	f := &pollerFixture{
		vitals:  &fakeVitals{snaps: make(map[string]*VitalsSnapshot), errs: make(map[string]error)},
		alerts:  &fakeAlerts{},
		audit:   &fakeAudit{},
		mqtt:    &fakeMQTT{},
		emitter: &fakeEmitter{},
	}
	f.poller = NewVitalsPoller(
		cfg,
		&fakePatients{active: patients},
		f.vitals,
		&fakeRedis{},
		f.alerts,
		f.audit,
		f.mqtt,
		f.emitter,
	)
	return f
}

// ---- 用例 ----

func TestTickBroadcastsVitalsWithoutAlert(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)
	f.vitals.set("301", healthySnapshot("301"))

	f.poller.Tick(context.Background())

	updates := f.emitter.byName(realtime.EventVitalsUpdate)
	require.Len(t, updates, 1)
	payload := updates[0].data.(map[string]interface{})
	assert.Equal(t, uint(1), payload["patient_id"])
	assert.Equal(t, false, payload["stale"])

	assert.Empty(t, f.emitter.byName(realtime.EventAlertCreated))
	assert.Empty(t, f.alerts.all())

	stats := f.poller.Stats()
	assert.Equal(t, int64(1), stats.Ticks)
	assert.Equal(t, int64(1), stats.Successes)
	assert.Equal(t, int64(0), stats.Failures)
}

func TestTickCreatesAlertOnThresholdBreach(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)

	snap := healthySnapshot("301")
	snap.OxygenSaturation = 88 // 低于下限90
	f.vitals.set("301", snap)

	f.poller.Tick(context.Background())

	created := f.alerts.all()
	require.Len(t, created, 1)
	assert.Equal(t, VitalSpo2, created[0].vitalType)
	assert.Equal(t, models.AlertSeverityWarning, created[0].severity)

	assert.Len(t, f.emitter.byName(realtime.EventAlertCreated), 1)
	assert.Len(t, f.emitter.byName(realtime.EventHistoryUpdate), 1)
	assert.Equal(t, []string{"vital_anomaly"}, f.audit.actions)
	// warning 级别不走MQTT
	assert.Empty(t, f.mqtt.published)
}

func TestTickSuppressesDuplicateAlerts(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)

	snap := healthySnapshot("301")
	snap.OxygenSaturation = 88
	f.vitals.set("301", snap)

	// 连续三轮同样的读数只告警一次
	f.poller.Tick(context.Background())
	f.poller.Tick(context.Background())
	f.poller.Tick(context.Background())
	assert.Len(t, f.alerts.all(), 1)

	// 读数继续恶化超过敏感度(spo2敏感度为2)后再次告警
	snap2 := healthySnapshot("301")
	snap2.OxygenSaturation = 85
	f.vitals.set("301", snap2)
	f.poller.Tick(context.Background())
	assert.Len(t, f.alerts.all(), 2)

	// 敏感度以内的波动不告警
	snap3 := healthySnapshot("301")
	snap3.OxygenSaturation = 84.5
	f.vitals.set("301", snap3)
	f.poller.Tick(context.Background())
	assert.Len(t, f.alerts.all(), 2)
}

func TestTickRealertsAfterRecovery(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)

	low := healthySnapshot("301")
	low.OxygenSaturation = 88
	f.vitals.set("301", low)
	f.poller.Tick(context.Background())
	require.Len(t, f.alerts.all(), 1)

	// 回到正常范围后门控重置
	f.vitals.set("301", healthySnapshot("301"))
	f.poller.Tick(context.Background())

	// 再次越限视为新异常
	low2 := healthySnapshot("301")
	low2.OxygenSaturation = 89
	f.vitals.set("301", low2)
	f.poller.Tick(context.Background())
	assert.Len(t, f.alerts.all(), 2)
}

func TestTickEscalatesSeverity(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)

	// 心率104：偏离上限4%，warning
	snap := healthySnapshot("301")
	snap.HeartRate = 104
	f.vitals.set("301", snap)
	f.poller.Tick(context.Background())

	created := f.alerts.all()
	require.Len(t, created, 1)
	assert.Equal(t, models.AlertSeverityWarning, created[0].severity)

	// 心率130：偏离上限30%，升级为critical并再次告警
	snap2 := healthySnapshot("301")
	snap2.HeartRate = 130
	f.vitals.set("301", snap2)
	f.poller.Tick(context.Background())

	created = f.alerts.all()
	require.Len(t, created, 2)
	assert.Equal(t, models.AlertSeverityCritical, created[1].severity)

	// critical 告警推送到MQTT
	assert.Len(t, f.mqtt.published, 1)
}

func TestTickEmitsStaleSnapshotOnFetchFailure(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)
	f.vitals.set("301", healthySnapshot("301"))

	// 第一轮成功，记住快照
	f.poller.Tick(context.Background())
	f.emitter.reset()

	// 第二轮失败，回放旧快照并标记stale
	f.vitals.fail("301", errors.New("connection refused"))
	f.poller.Tick(context.Background())

	updates := f.emitter.byName(realtime.EventVitalsUpdate)
	require.Len(t, updates, 1)
	payload := updates[0].data.(map[string]interface{})
	assert.Equal(t, true, payload["stale"])

	stats := f.poller.Stats()
	assert.Equal(t, int64(1), stats.Failures)
}

func TestTickFirstFetchFailureIsSilent(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)
	f.vitals.fail("301", errors.New("connection refused"))

	// 没有任何历史快照可回放时不广播
	f.poller.Tick(context.Background())
	assert.Empty(t, f.emitter.byName(realtime.EventVitalsUpdate))
}

func TestTickIsolatesPersistenceFailure(t *testing.T) {
	patientA := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	patientB := models.Patient{ID: 2, RoomNumber: "302", IsActive: true}
	f := newPollerFixture(patientA, patientB)

	low := healthySnapshot("301")
	low.OxygenSaturation = 88
	f.vitals.set("301", low)
	f.vitals.set("302", healthySnapshot("302"))

	// 告警持久化失败：不广播告警，但体征更新照常
	f.alerts.err = errors.New("database is down")
	f.poller.Tick(context.Background())

	assert.Empty(t, f.emitter.byName(realtime.EventAlertCreated))
	assert.Len(t, f.emitter.byName(realtime.EventVitalsUpdate), 2)

	// 数据库恢复后下一轮重新告警（门控已回滚）
	f.alerts.err = nil
	f.poller.Tick(context.Background())
	assert.Len(t, f.alerts.all(), 1)
}

func TestStartStop(t *testing.T) {
	patient := models.Patient{ID: 1, RoomNumber: "301", IsActive: true}
	f := newPollerFixture(patient)
	f.vitals.set("301", healthySnapshot("301"))
	f.poller.Config.PollInterval = 10 * time.Millisecond

	f.poller.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	f.poller.Stop()

	stats := f.poller.Stats()
	assert.Greater(t, stats.Ticks, int64(0))
	require.NotNil(t, stats.LastTick)

	// Stop 之后不再产生新的轮次
	ticks := stats.Ticks
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ticks, f.poller.Stats().Ticks)

	// 启动和停止各向MQTT推送一次系统状态
	f.mqtt.mu.Lock()
	statuses := f.mqtt.statuses
	f.mqtt.mu.Unlock()
	require.Len(t, statuses, 2)
	assert.Equal(t, "polling", statuses[0]["status"])
	assert.Equal(t, "stopped", statuses[1]["status"])
	assert.Equal(t, stats.Ticks, statuses[1]["ticks"])
}

func TestAlertSeverityFor(t *testing.T) {
	th := Threshold{Min: 90, Max: 100}

	// 刚越限是warning
	assert.Equal(t, models.AlertSeverityWarning, alertSeverityFor(89, th))
	assert.Equal(t, models.AlertSeverityWarning, alertSeverityFor(105, th))

	// 偏离最近一侧边界超过20%是critical
	assert.Equal(t, models.AlertSeverityCritical, alertSeverityFor(70, th))
	assert.Equal(t, models.AlertSeverityCritical, alertSeverityFor(125, th))
}
