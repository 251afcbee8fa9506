package storage

import (
	"errors"
	"io"
)

// ErrFileNotFound 指定ID的文件不存在
var ErrFileNotFound = errors.New("file not found")

// FileInfo 已保存文件的元数据
type FileInfo struct {
	ID       string // 文件唯一标识符
	Name     string // 上传时的原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // MIME类型，按扩展名推断
	Path     string // 本地可读路径，转写和OCR直接使用该路径
	Key      string // 存储后端内部的对象键
}

// Storage 上传文件的存储接口
// Save返回的Path必须指向本地文件系统中可打开的文件
type Storage interface {
	Save(reader io.Reader, filename string) (FileInfo, error)
	Get(id string) (io.ReadCloser, error)
	Delete(id string) error
	List() ([]FileInfo, error)
	Exists(id string) (bool, error)
}
