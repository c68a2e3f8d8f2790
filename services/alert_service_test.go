package services

import (
	"errors"
	"testing"

	"auracare-backend/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB 基于 sqlmock 构建 gorm 连接
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func activeAlertRow(id uint, status models.AlertStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "patient_id", "severity", "category", "message", "status", "priority",
	}).AddRow(id, 1, "warning", "vital_signs", "血氧 异常", string(status), "medium")
}

func emptyPatientRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"})
}

func TestCreateVitalAlert(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `alerts`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	patient := &models.Patient{ID: 3, Name: "张三", RoomNumber: "A101"}
	alert, err := svc.CreateVitalAlert(patient, "spo2", 85, Threshold{Min: 90, Max: 100}, models.AlertSeverityCritical)
	require.NoError(t, err)

	assert.Equal(t, uint(3), alert.PatientID)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, models.AlertCategoryVitalSigns, alert.Category)
	// 危急告警优先级为 high
	assert.Equal(t, "high", alert.Priority)
	assert.Equal(t, "spo2", alert.VitalType)
	assert.Equal(t, 85.0, alert.VitalValue)
	assert.Equal(t, patient, alert.Patient)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVitalAlertPersistenceError(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `alerts`").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	patient := &models.Patient{ID: 3}
	_, err := svc.CreateVitalAlert(patient, "spo2", 85, Threshold{Min: 90, Max: 100}, models.AlertSeverityWarning)
	require.Error(t, err)
	// 写库失败需要能被上层识别为持久化错误
	assert.True(t, errors.Is(err, ErrPersistence))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePatientRequestAlertDefaultMessage(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `alerts`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	alert, err := svc.CreatePatientRequestAlert(5, "")
	require.NoError(t, err)

	assert.Equal(t, models.AlertCategoryRequest, alert.Category)
	assert.Equal(t, models.AlertSeverityWarning, alert.Severity)
	assert.Equal(t, "病人发起呼叫", alert.Message)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectQuery("SELECT (.+) FROM `alerts`").
		WillReturnRows(activeAlertRow(10, models.AlertStatusActive))
	mock.ExpectQuery("SELECT (.+) FROM `patients`").
		WillReturnRows(emptyPatientRows())
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `alerts`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	alert, err := svc.AcknowledgeAlert(10, 2)
	require.NoError(t, err)

	assert.Equal(t, models.AlertStatusAcknowledged, alert.Status)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, uint(2), *alert.AcknowledgedBy)
	assert.NotNil(t, alert.AcknowledgedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeResolvedAlertFails(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectQuery("SELECT (.+) FROM `alerts`").
		WillReturnRows(activeAlertRow(10, models.AlertStatusResolved))
	mock.ExpectQuery("SELECT (.+) FROM `patients`").
		WillReturnRows(emptyPatientRows())

	// 已处理完毕的告警不能再确认
	_, err := svc.AcknowledgeAlert(10, 2)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlertFillsAcknowledgement(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectQuery("SELECT (.+) FROM `alerts`").
		WillReturnRows(activeAlertRow(10, models.AlertStatusActive))
	mock.ExpectQuery("SELECT (.+) FROM `patients`").
		WillReturnRows(emptyPatientRows())
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `alerts`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	alert, err := svc.ResolveAlert(10, 4)
	require.NoError(t, err)

	assert.Equal(t, models.AlertStatusResolved, alert.Status)
	assert.NotNil(t, alert.ResolvedAt)
	// 未经确认直接处理时补记确认人
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, uint(4), *alert.AcknowledgedBy)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveResolvedAlertIsIdempotent(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	mock.ExpectQuery("SELECT (.+) FROM `alerts`").
		WillReturnRows(activeAlertRow(10, models.AlertStatusResolved))
	mock.ExpectQuery("SELECT (.+) FROM `patients`").
		WillReturnRows(emptyPatientRows())

	alert, err := svc.ResolveAlert(10, 4)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, alert.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveAlerts(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewAlertService(db)

	rows := sqlmock.NewRows([]string{"id", "patient_id", "status"}).
		AddRow(2, 1, "active").
		AddRow(1, 1, "active")
	mock.ExpectQuery("SELECT (.+) FROM `alerts`").
		WithArgs("active", 1).
		WillReturnRows(rows)

	alerts, err := svc.GetActiveAlerts(1)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
	assert.Equal(t, uint(2), alerts[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}
