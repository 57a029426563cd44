package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// CheckFFmpeg 检查系统是否安装了 ffmpeg
func CheckFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ExtractFrameAt 从视频指定时间点抽取一帧作为封面，返回生成的图片路径。
// timeSeconds 为秒数；-ss 放在 -i 之前走快速定位。
func ExtractFrameAt(videoPath string, timeSeconds int) (string, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return "", fmt.Errorf("视频文件不存在: %s", videoPath)
	}
	if !CheckFFmpeg() {
		return "", fmt.Errorf("系统未安装 ffmpeg，无法抽取封面")
	}

	coverName := fmt.Sprintf("video_cover_%d_%d.jpg", time.Now().Unix(), time.Now().Nanosecond())
	coverPath := filepath.Join(os.TempDir(), coverName)

	timeStr := fmt.Sprintf("%02d:%02d:%02d", timeSeconds/3600, (timeSeconds%3600)/60, timeSeconds%60)
	Info(fmt.Sprintf("[抽帧] 视频: %s, 时间点: %s, 输出: %s", videoPath, timeStr, coverPath))

	// -vframes 1 只抽一帧，-q:v 2 高质量，-y 覆盖已存在文件
	cmd := exec.Command("ffmpeg", "-ss", timeStr, "-i", videoPath, "-vframes", "1", "-q:v", "2", "-y", coverPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		Error(fmt.Sprintf("[抽帧失败] ffmpeg 错误: %v, 输出: %s", err, string(output)))
		return "", fmt.Errorf("ffmpeg 执行失败: %v, 输出: %s", err, string(output))
	}

	fileInfo, err := os.Stat(coverPath)
	if err != nil || fileInfo.Size() == 0 {
		Error(fmt.Sprintf("[抽帧失败] 封面文件为空或未生成: %s", coverPath))
		return "", fmt.Errorf("封面文件生成失败或为空")
	}

	Info(fmt.Sprintf("[抽帧成功] 封面已生成: %s, 大小: %d bytes", coverPath, fileInfo.Size()))
	return coverPath, nil
}

// ExtractFirstFrame 抽取视频第1秒的帧作为封面，跳过开头避免黑帧
func ExtractFirstFrame(videoPath string) (string, error) {
	return ExtractFrameAt(videoPath, 1)
}

// CleanupTempFile 清理临时文件
func CleanupTempFile(filePath string) {
	if filePath != "" {
		os.Remove(filePath)
	}
}
