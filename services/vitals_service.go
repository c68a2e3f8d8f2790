package services

import (
	"context"
	"errors"
	"sync/atomic"

	"auracare-backend/config"
)

// InterfaceVitalsService 体征数据服务接口
type InterfaceVitalsService interface {
	// GetVitals 获取病房最新体征
	GetVitals(ctx context.Context, roomNumber string) (*VitalsSnapshot, error)
	// UpdateVitals 手动覆写病房体征（演示/调试用）
	UpdateVitals(ctx context.Context, roomNumber string, update *VitalsUpdate) (*VitalsSnapshot, error)
	// FallbackCount 外部服务失败后回退到模拟器的累计次数
	FallbackCount() int64
	// Mode 当前数据源模式
	Mode() string
}

// VitalsService 按配置选择体征数据源：
//   - external:  只走外部体征服务，失败时原样返回错误
//   - simulator: 只走本地合成生成器
//   - auto:      优先外部服务，失败时回退到合成生成器
type VitalsService struct {
	mode      string
	external  InterfaceVitalsSource
	simulator InterfaceVitalsSource
	fallbacks int64
}

// NewVitalsService 创建体征数据服务
func NewVitalsService(cfg *config.Config) *VitalsService {
	return &VitalsService{
		mode:      cfg.VitalsSourceMode,
		external:  NewHTTPVitalsSource(cfg),
		simulator: NewSimulatorVitalsSource(),
	}
}

// NewVitalsServiceWithSources 注入自定义数据源，测试用
func NewVitalsServiceWithSources(mode string, external, simulator InterfaceVitalsSource) *VitalsService {
	return &VitalsService{mode: mode, external: external, simulator: simulator}
}

func (s *VitalsService) Mode() string { return s.mode }

func (s *VitalsService) FallbackCount() int64 { return atomic.LoadInt64(&s.fallbacks) }

func (s *VitalsService) GetVitals(ctx context.Context, roomNumber string) (*VitalsSnapshot, error) {
	switch s.mode {
	case "external":
		return s.external.Fetch(ctx, roomNumber)
	case "simulator":
		return s.simulator.Fetch(ctx, roomNumber)
	default: // auto
		snap, err := s.external.Fetch(ctx, roomNumber)
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		atomic.AddInt64(&s.fallbacks, 1)
		config.Warning("[VitalsService] 外部体征服务不可用，回退到模拟器: room=%s err=%v", roomNumber, err)
		return s.simulator.Fetch(ctx, roomNumber)
	}
}

func (s *VitalsService) UpdateVitals(ctx context.Context, roomNumber string, update *VitalsUpdate) (*VitalsSnapshot, error) {
	switch s.mode {
	case "external":
		return s.external.Update(ctx, roomNumber, update)
	case "simulator":
		return s.simulator.Update(ctx, roomNumber, update)
	default:
		snap, err := s.external.Update(ctx, roomNumber, update)
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		atomic.AddInt64(&s.fallbacks, 1)
		config.Warning("[VitalsService] 外部体征服务不可用，覆写落到模拟器: room=%s err=%v", roomNumber, err)
		return s.simulator.Update(ctx, roomNumber, update)
	}
}
