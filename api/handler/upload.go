package handler

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/smartqms/ai-analysis-api/pkg/storage"
)

// 上传文件大小上限25MB，与Whisper接口限制一致
const maxUploadSize = 25 << 20

// 支持的音频文件扩展名
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".mp4":  true,
	".webm": true,
}

// 支持的文档文件扩展名
var documentExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".docx": true,
	".xlsx": true,
	".pptx": true,
}

// validateUpload 校验上传文件的扩展名和大小
func validateUpload(header *multipart.FileHeader, allowed map[string]bool) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowed[ext] {
		return fmt.Errorf("unsupported file type: %s", ext)
	}
	if header.Size > maxUploadSize {
		return fmt.Errorf("file too large: %d bytes (limit %d)", header.Size, maxUploadSize)
	}
	return nil
}

// saveUpload 校验并保存上传文件，返回存储信息
func saveUpload(header *multipart.FileHeader, allowed map[string]bool, fileStorage storage.Storage) (storage.FileInfo, error) {
	if err := validateUpload(header, allowed); err != nil {
		return storage.FileInfo{}, err
	}

	file, err := header.Open()
	if err != nil {
		return storage.FileInfo{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	info, err := fileStorage.Save(file, header.Filename)
	if err != nil {
		return storage.FileInfo{}, fmt.Errorf("failed to save uploaded file: %w", err)
	}
	return info, nil
}
