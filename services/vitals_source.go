package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"auracare-backend/config"
)

// InterfaceVitalsSource 定义按病房号读写体征快照的数据源接口
type InterfaceVitalsSource interface {
	Fetch(ctx context.Context, roomNumber string) (*VitalsSnapshot, error)
	Update(ctx context.Context, roomNumber string, update *VitalsUpdate) (*VitalsSnapshot, error)
}

// HTTPVitalsSource 外部体征服务(FastAPI)客户端。
// 所有请求受固定超时保护，失败以 ErrExternalService 包装。
type HTTPVitalsSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVitalsSource 创建外部体征服务客户端
func NewHTTPVitalsSource(cfg *config.Config) *HTTPVitalsSource {
	return &HTTPVitalsSource{
		baseURL: cfg.VitalsServiceURL,
		client: &http.Client{
			Timeout: cfg.VitalsFetchTimeout,
		},
	}
}

// Fetch 拉取指定病房的体征快照
func (s *HTTPVitalsSource) Fetch(ctx context.Context, roomNumber string) (*VitalsSnapshot, error) {
	url := fmt.Sprintf("%s/vitals/%s", s.baseURL, roomNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExternalService, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch room %s: %v", ErrExternalService, roomNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch room %s: status %d", ErrExternalService, roomNumber, resp.StatusCode)
	}

	var snapshot VitalsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode room %s: %v", ErrExternalService, roomNumber, err)
	}

	return &snapshot, nil
}

// Update 向外部体征服务写入手动覆写值
func (s *HTTPVitalsSource) Update(ctx context.Context, roomNumber string, update *VitalsUpdate) (*VitalsSnapshot, error) {
	url := fmt.Sprintf("%s/vitals/%s", s.baseURL, roomNumber)

	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("%w: encode update: %v", ErrExternalService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: update room %s: %v", ErrExternalService, roomNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: update room %s: status %d", ErrExternalService, roomNumber, resp.StatusCode)
	}

	var snapshot VitalsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode room %s: %v", ErrExternalService, roomNumber, err)
	}

	return &snapshot, nil
}
