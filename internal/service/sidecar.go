package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/types"
)

// Sidecar 视频旁落的元数据：同名txt给标题和标签，同名图片给封面
type Sidecar struct {
	Title     string
	Tags      []string
	Thumbnail string
}

var sidecarImageExts = []string{".png", ".jpg", ".jpeg"}

// LoadSidecar 读取视频旁的元数据文件。
// txt第一行是标题，第二行是空格分隔的标签（#可带可不带）；
// 没有txt时标题退化为文件名（去扩展名）。
func LoadSidecar(videoPath string) (*Sidecar, error) {
	stem := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	sc := &Sidecar{}

	data, err := os.ReadFile(stem + ".txt")
	switch {
	case err == nil:
		lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
		if len(lines) > 0 {
			sc.Title = strings.TrimSpace(lines[0])
		}
		if len(lines) > 1 {
			for _, field := range strings.Fields(lines[1]) {
				tag := strings.TrimPrefix(field, "#")
				if tag != "" {
					sc.Tags = append(sc.Tags, tag)
				}
			}
		}
	case os.IsNotExist(err):
		// 没有元数据文件不算错，后面用文件名兜底
	default:
		return nil, fmt.Errorf("读取元数据文件失败: %w", err)
	}

	if sc.Title == "" {
		sc.Title = filepath.Base(stem)
	}

	for _, ext := range sidecarImageExts {
		if _, err := os.Stat(stem + ext); err == nil {
			sc.Thumbnail = stem + ext
			break
		}
	}
	return sc, nil
}

// ApplySidecar 用旁落元数据补齐任务里缺失的字段，已有字段不覆盖
func ApplySidecar(task *types.VideoTask) error {
	sc, err := LoadSidecar(task.VideoPath)
	if err != nil {
		return err
	}
	if task.Title == "" {
		task.Title = sc.Title
	}
	if len(task.Tags) == 0 {
		task.Tags = sc.Tags
	}
	if task.Thumbnail == "" {
		task.Thumbnail = sc.Thumbnail
	}
	return nil
}

// ValidateVideoFile 确认视频文件存在、非空且格式受支持
func ValidateVideoFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("视频文件不可读: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("路径是目录而不是视频文件: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("视频文件为空: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !config.IsAllowedVideoExt(ext) {
		return fmt.Errorf("不支持的视频格式: %s", ext)
	}
	return nil
}

// CollectVideoTasks 扫描目录构建发布任务，按文件名排序保证批次顺序稳定
func CollectVideoTasks(dir string) ([]*types.VideoTask, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取视频目录失败: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if config.IsAllowedVideoExt(ext) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	tasks := make([]*types.VideoTask, 0, len(paths))
	for _, p := range paths {
		task := &types.VideoTask{VideoPath: p}
		if err := ApplySidecar(task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
