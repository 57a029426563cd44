package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/A2Data/auto-douyin/internal/config"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleServeVideo(c *fiber.Ctx) error {
	return serveStored(c, config.Config.VideoPath)
}

func (s *Server) handleServeThumbnail(c *fiber.Ctx) error {
	return serveStored(c, config.Config.ThumbnailPath)
}

// serveStored 只按文件名从指定目录取文件，拒绝目录穿越
func serveStored(c *fiber.Ctx, dir string) error {
	filename := filepath.Base(c.Params("filename"))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return fiber.ErrNotFound
	}
	if strings.Contains(filename, "..") || strings.Contains(filename, "~") {
		return fiber.NewError(fiber.StatusBadRequest, "非法文件名")
	}

	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fiber.ErrNotFound
	}

	c.Set(fiber.HeaderContentType, contentTypeFor(path))
	return c.SendFile(path)
}

// contentTypeFor 按扩展名给出Content-Type
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
