package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/utils"

	"gorm.io/gorm"
)

// FileService 视频素材与封面图的落盘和登记
type FileService struct {
	db *gorm.DB
}

func NewFileService(db *gorm.DB) *FileService {
	return &FileService{db: db}
}

// GetVideos 列出全部已登记素材
func (s *FileService) GetVideos(ctx context.Context) ([]database.Video, error) {
	var videos []database.Video
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("查询视频列表失败: %w", err)
	}
	return videos, nil
}

// GetVideoByID 按主键查找素材
func (s *FileService) GetVideoByID(ctx context.Context, id uint) (*database.Video, error) {
	var video database.Video
	if err := s.db.WithContext(ctx).First(&video, id).Error; err != nil {
		return nil, fmt.Errorf("视频 %d 不存在: %w", id, err)
	}
	return &video, nil
}

// AddVideo 把本地视频复制进素材目录并登记。
// 文件名加时间戳前缀防止重名覆盖。
func (s *FileService) AddVideo(ctx context.Context, srcPath string) (*database.Video, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("视频文件不可读: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("路径是目录而不是视频文件: %s", srcPath)
	}

	ext := strings.ToLower(filepath.Ext(srcPath))
	if !config.IsAllowedVideoExt(ext) {
		return nil, fmt.Errorf("不支持的视频格式: %s", ext)
	}

	name := fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(srcPath))
	destPath := filepath.Join(config.Config.VideoPath, name)
	if err := copyFile(srcPath, destPath); err != nil {
		return nil, fmt.Errorf("复制视频文件失败: %w", err)
	}

	video := &database.Video{
		Path: destPath,
		Name: filepath.Base(srcPath),
		Size: info.Size(),
	}
	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("登记视频失败: %w", err)
	}

	utils.Info(fmt.Sprintf("视频已入库: %s (%d bytes)", video.Name, video.Size))
	return video, nil
}

// SaveUpload 把上传流写入素材目录并登记，供HTTP上传接口使用
func (s *FileService) SaveUpload(ctx context.Context, filename string, r io.Reader) (*database.Video, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !config.IsAllowedVideoExt(ext) {
		return nil, fmt.Errorf("不支持的视频格式: %s", ext)
	}

	name := fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(filename))
	destPath := filepath.Join(config.Config.VideoPath, name)

	dest, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("创建视频文件失败: %w", err)
	}
	written, err := io.Copy(dest, r)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("写入视频文件失败: %w", err)
	}

	video := &database.Video{
		Path: destPath,
		Name: filepath.Base(filename),
		Size: written,
	}
	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("登记视频失败: %w", err)
	}

	utils.Info(fmt.Sprintf("视频已上传: %s (%d bytes)", video.Name, video.Size))
	return video, nil
}

// DeleteVideo 删除素材记录及磁盘上的视频和封面文件
func (s *FileService) DeleteVideo(ctx context.Context, id uint) error {
	video, err := s.GetVideoByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&database.Video{}, id).Error; err != nil {
		return fmt.Errorf("删除视频记录失败: %w", err)
	}

	if video.Path != "" {
		if err := os.Remove(video.Path); err != nil && !os.IsNotExist(err) {
			utils.Warn(fmt.Sprintf("删除视频文件失败: %v", err))
		}
	}
	if video.Thumbnail != "" {
		thumbPath := filepath.Join(config.Config.ThumbnailPath, filepath.Base(video.Thumbnail))
		if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
			utils.Warn(fmt.Sprintf("删除封面文件失败: %v", err))
		}
	}
	return nil
}

// SaveThumbnail 把封面图复制进封面目录并绑定到视频，返回对外访问路径
func (s *FileService) SaveThumbnail(ctx context.Context, videoID uint, srcPath string) (string, error) {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("封面文件不可读: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("封面路径是目录: %s", srcPath)
	}

	ext := strings.ToLower(filepath.Ext(srcPath))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		ext = ".jpg"
	}
	filename := fmt.Sprintf("thumb_%d_%d%s", videoID, time.Now().Unix(), ext)
	destPath := filepath.Join(config.Config.ThumbnailPath, filename)
	if err := copyFile(srcPath, destPath); err != nil {
		return "", fmt.Errorf("复制封面文件失败: %w", err)
	}

	// 存对外URL而不是本地路径，前端和接口直接可用
	url := "/thumbnails/" + filename
	if err := s.db.WithContext(ctx).Model(video).Update("thumbnail", url).Error; err != nil {
		return "", fmt.Errorf("更新封面记录失败: %w", err)
	}
	return url, nil
}

// ExtractAndSaveThumbnail 用ffmpeg从视频抽帧生成封面并绑定
func (s *FileService) ExtractAndSaveThumbnail(ctx context.Context, videoID uint, timeSeconds int) (string, error) {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return "", err
	}

	framePath, err := utils.ExtractFrameAt(video.Path, timeSeconds)
	if err != nil {
		return "", err
	}
	defer utils.CleanupTempFile(framePath)

	return s.SaveThumbnail(ctx, videoID, framePath)
}

// copyFile 普通文件复制，目标已存在时覆盖
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
