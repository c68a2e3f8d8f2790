package services

import (
	"testing"

	"auracare-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(&config.Config{JWTSecretKey: "test-secret"})
}

func TestGenerateAndExtractStaffToken(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateToken(5, "doctor", nil)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
	assert.Nil(t, claims.PatientID)
	assert.Equal(t, "auracare-backend", claims.Issuer)
}

func TestGenerateAndExtractFamilyToken(t *testing.T) {
	svc := newTestJWTService()

	patientID := uint(7)
	token, err := svc.GenerateToken(30, "family", &patientID)
	require.NoError(t, err)

	claims, err := svc.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, uint(30), claims.UserID)
	assert.Equal(t, "family", claims.Role)
	require.NotNil(t, claims.PatientID)
	assert.Equal(t, uint(7), *claims.PatientID)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateToken(1, "staff", nil)
	require.NoError(t, err)

	// 篡改后的令牌校验失败
	_, err = svc.ValidateToken(token + "x")
	assert.Error(t, err)

	// 不同密钥签发的令牌校验失败
	other := NewJWTService(&config.Config{JWTSecretKey: "another-secret"})
	foreign, err := other.GenerateToken(1, "staff", nil)
	require.NoError(t, err)
	_, err = svc.ExtractClaims(foreign)
	assert.Error(t, err)
}
