package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage 本地文件系统存储
// 文件按上传日期分目录存放，文件名为uuid加原始扩展名
type LocalStorage struct {
	basePath string
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 存储根目录
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: absPath}, nil
}

// Save 保存文件并返回元数据，Path为绝对路径
func (s *LocalStorage) Save(reader io.Reader, filename string) (FileInfo, error) {
	id := uuid.New().String()
	key := filepath.Join(datePath(time.Now()), id+filepath.Ext(filename))
	fullPath := filepath.Join(s.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return FileInfo{}, fmt.Errorf("failed to create date directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(fullPath)
		return FileInfo{}, fmt.Errorf("failed to write file: %w", err)
	}

	return FileInfo{
		ID:       id,
		Name:     filename,
		Size:     size,
		MimeType: mimeTypeByName(filename),
		Path:     fullPath,
		Key:      key,
	}, nil
}

// Get 按ID读取文件内容
func (s *LocalStorage) Get(id string) (io.ReadCloser, error) {
	path, err := s.lookupPath(id)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete 按ID删除文件
func (s *LocalStorage) Delete(id string) error {
	path, err := s.lookupPath(id)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// List 列出存储中的全部文件
func (s *LocalStorage) List() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(s.basePath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		key, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}

		stat, err := entry.Info()
		if err != nil {
			return err
		}

		name := entry.Name()
		files = append(files, FileInfo{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Name:     name,
			Size:     stat.Size(),
			MimeType: mimeTypeByName(name),
			Path:     path,
			Key:      key,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// Exists 检查ID对应的文件是否存在
func (s *LocalStorage) Exists(id string) (bool, error) {
	_, err := s.lookupPath(id)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// errFoundFile 用于提前结束目录遍历
var errFoundFile = errors.New("found")

// lookupPath 在存储目录中查找ID对应的文件
func (s *LocalStorage) lookupPath(id string) (string, error) {
	var found string

	err := filepath.WalkDir(s.basePath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == id {
			found = path
			return errFoundFile
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFoundFile) {
		return "", fmt.Errorf("failed to search storage: %w", err)
	}
	if found == "" {
		return "", ErrFileNotFound
	}
	return found, nil
}

// datePath 返回yyyy/mm/dd形式的日期目录
func datePath(t time.Time) string {
	return filepath.Join(
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
	)
}

// 标准库未覆盖的扩展名
var extraMimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// mimeTypeByName 按扩展名推断MIME类型
func mimeTypeByName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extraMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
