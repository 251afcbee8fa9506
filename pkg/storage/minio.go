package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage 基于MinIO的对象存储
// 上传内容同时落一份本地暂存文件，转写和OCR通过暂存路径读取
type MinioStorage struct {
	client   *minio.Client
	bucket   string
	spoolDir string
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // 服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// NewMinioStorage 创建MinIO存储，桶不存在时自动创建
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	spoolDir, err := os.MkdirTemp("", "upload-spool-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	return &MinioStorage{
		client:   client,
		bucket:   cfg.Bucket,
		spoolDir: spoolDir,
	}, nil
}

// Save 上传文件到MinIO并写入本地暂存副本
func (s *MinioStorage) Save(reader io.Reader, filename string) (FileInfo, error) {
	id := uuid.New().String()
	key := datePath(time.Now()) + "/" + id + filepath.Ext(filename)
	key = filepath.ToSlash(key)

	// 上传需要预知大小，音频和文档均在上传大小限制内
	content, err := io.ReadAll(reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to read upload content: %w", err)
	}

	contentType := mimeTypeByName(filename)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	spoolPath := filepath.Join(s.spoolDir, id+filepath.Ext(filename))
	if err := os.WriteFile(spoolPath, content, 0644); err != nil {
		return FileInfo{}, fmt.Errorf("failed to write spool file: %w", err)
	}

	return FileInfo{
		ID:       id,
		Name:     filename,
		Size:     int64(len(content)),
		MimeType: contentType,
		Path:     spoolPath,
		Key:      key,
	}, nil
}

// Get 按ID读取对象内容
func (s *MinioStorage) Get(id string) (io.ReadCloser, error) {
	key, err := s.lookupKey(id)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(context.Background(), s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return obj, nil
}

// Delete 按ID删除对象
func (s *MinioStorage) Delete(id string) error {
	key, err := s.lookupKey(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}

	// 暂存副本可能已被清理，忽略删除错误
	os.Remove(filepath.Join(s.spoolDir, filepath.Base(key)))
	return nil
}

// List 列出桶中的全部对象
func (s *MinioStorage) List() ([]FileInfo, error) {
	var files []FileInfo

	objects := s.client.ListObjects(context.Background(), s.bucket,
		minio.ListObjectsOptions{Recursive: true})

	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}

		name := filepath.Base(object.Key)
		files = append(files, FileInfo{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Name:     name,
			Size:     object.Size,
			MimeType: mimeTypeByName(name),
			Path:     filepath.Join(s.spoolDir, name),
			Key:      object.Key,
		})
	}
	return files, nil
}

// Exists 检查ID对应的对象是否存在
func (s *MinioStorage) Exists(id string) (bool, error) {
	_, err := s.lookupKey(id)
	if err == ErrFileNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// lookupKey 按ID查找对象键
func (s *MinioStorage) lookupKey(id string) (string, error) {
	objects := s.client.ListObjects(context.Background(), s.bucket,
		minio.ListObjectsOptions{Recursive: true})

	for object := range objects {
		if object.Err != nil {
			return "", fmt.Errorf("failed to list objects: %w", object.Err)
		}
		name := filepath.Base(object.Key)
		if strings.TrimSuffix(name, filepath.Ext(name)) == id {
			return object.Key, nil
		}
	}
	return "", ErrFileNotFound
}
