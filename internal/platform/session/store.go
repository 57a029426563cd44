// Package session 负责登录态的存取与校验：凭证文件、接口探测与页面兜底三层。
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/types"
)

// Store 凭证存储接口，保存 playwright 导出的存储状态JSON
type Store interface {
	// Load 读取账号凭证，从未登录（文件缺失或为空）返回 NotLoggedInError
	Load(account string) ([]byte, error)
	// Save 写入（覆盖）账号凭证
	Save(account string, blob []byte) error
	// Path 返回凭证文件路径，浏览器上下文创建时直接加载该文件
	Path(account string) string
	// Delete 删除凭证，文件不存在不算错误
	Delete(account string) error
}

// FileStore 按「douyin_<账号名>.json」落盘的凭证存储
type FileStore struct {
	dir string
}

// NewFileStore 创建文件凭证存储
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Path(account string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", config.PlatformDouyin, account))
}

func (s *FileStore) Load(account string) ([]byte, error) {
	blob, err := os.ReadFile(s.Path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &types.NotLoggedInError{Account: account}
		}
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	if len(blob) == 0 {
		return nil, &types.NotLoggedInError{Account: account}
	}
	return blob, nil
}

func (s *FileStore) Save(account string, blob []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建凭证目录失败: %w", err)
	}
	return os.WriteFile(s.Path(account), blob, 0644)
}

func (s *FileStore) Delete(account string) error {
	err := os.Remove(s.Path(account))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除凭证文件失败: %w", err)
	}
	return nil
}
