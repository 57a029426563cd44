package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/A2Data/auto-douyin/internal/config"
)

func newStaticTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	config.Config = &config.AppConfig{
		VideoPath:     dir,
		ThumbnailPath: dir,
	}
	return New(nil, nil, nil, nil, nil)
}

func TestStaticRoutes(t *testing.T) {
	// 测试1: 健康检查
	t.Run("health_ok", func(t *testing.T) {
		s := newStaticTestServer(t)
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		resp, err := s.app.Test(req)
		if err != nil {
			t.Fatalf("请求失败: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("状态码错误，期望 200，实际 %d", resp.StatusCode)
		}
	})

	// 测试2: 已存在的素材文件可以访问
	t.Run("serves_existing_video", func(t *testing.T) {
		s := newStaticTestServer(t)
		path := filepath.Join(config.Config.VideoPath, "a.mp4")
		if err := os.WriteFile(path, []byte("fake video"), 0644); err != nil {
			t.Fatalf("写入测试文件失败: %v", err)
		}

		req, _ := http.NewRequest(http.MethodGet, "/videos/a.mp4", nil)
		resp, err := s.app.Test(req)
		if err != nil {
			t.Fatalf("请求失败: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("状态码错误，期望 200，实际 %d", resp.StatusCode)
		}
	})

	// 测试3: 不存在的文件返回404
	t.Run("missing_file_not_found", func(t *testing.T) {
		s := newStaticTestServer(t)
		req, _ := http.NewRequest(http.MethodGet, "/thumbnails/ghost.png", nil)
		resp, err := s.app.Test(req)
		if err != nil {
			t.Fatalf("请求失败: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("状态码错误，期望 404，实际 %d", resp.StatusCode)
		}
	})

	// 测试4: 含..的文件名被拒绝
	t.Run("traversal_name_rejected", func(t *testing.T) {
		s := newStaticTestServer(t)
		req, _ := http.NewRequest(http.MethodGet, "/videos/..hidden.mp4", nil)
		resp, err := s.app.Test(req)
		if err != nil {
			t.Fatalf("请求失败: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("状态码错误，期望 400，实际 %d", resp.StatusCode)
		}
	})
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.mp4", "video/mp4"},
		{"b.MOV", "video/quicktime"},
		{"c.png", "image/png"},
		{"d.jpeg", "image/jpeg"},
		{"e.mkv", "video/x-matroska"},
		{"f.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := contentTypeFor(tt.path); got != tt.want {
				t.Errorf("contentTypeFor(%q) = %q, 期望 %q", tt.path, got, tt.want)
			}
		})
	}
}
