package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/cache"
	"github.com/smartqms/ai-analysis-api/internal/convert"
	"github.com/smartqms/ai-analysis-api/internal/ocr"
	"github.com/smartqms/ai-analysis-api/internal/transcribe"
)

// MediaService 媒体处理服务
// 负责协调语音转写和文档文本提取，并按文件内容摘要缓存结果
type MediaService struct {
	transcriber transcribe.Transcriber // 语音转写客户端
	chunker     *ocr.Chunker           // 文档分块提取器
	converter   *convert.Converter     // 文档转PDF转换器
	cache       cache.Cache            // 缓存
	cacheTTL    time.Duration          // 缓存有效期
	logger      *logrus.Logger         // 日志记录器
}

// MediaOption 媒体服务配置选项
type MediaOption func(*MediaService)

// WithMediaCache 设置缓存
func WithMediaCache(c cache.Cache, ttl time.Duration) MediaOption {
	return func(s *MediaService) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMediaLogger 设置日志记录器
func WithMediaLogger(logger *logrus.Logger) MediaOption {
	return func(s *MediaService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMediaService 创建媒体处理服务
func NewMediaService(transcriber transcribe.Transcriber, chunker *ocr.Chunker, opts ...MediaOption) (*MediaService, error) {
	if transcriber == nil {
		return nil, errors.New("transcriber cannot be nil")
	}
	if chunker == nil {
		return nil, errors.New("chunker cannot be nil")
	}

	srv := &MediaService{
		transcriber: transcriber,
		chunker:     chunker,
		converter:   convert.NewConverter(),
		cacheTTL:    24 * time.Hour, // 默认缓存24小时
		logger:      logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv, nil
}

// Transcribe 转写音频文件
// 命中缓存时直接返回缓存的转写文本
func (s *MediaService) Transcribe(ctx context.Context, filePath string) (string, error) {
	if filePath == "" {
		return "", errors.New("file path cannot be empty")
	}

	digest := s.fileDigest(filePath)
	if digest != "" {
		if text, found := s.cacheGet(cache.TranscriptKey(digest)); found {
			s.logger.WithField("file_path", filePath).Debug("Transcript cache hit")
			return text, nil
		}
	}

	text, err := s.transcriber.TranscribeFile(ctx, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	if digest != "" {
		s.cacheSet(cache.TranscriptKey(digest), text)
	}

	s.logger.WithFields(logrus.Fields{
		"file_path": filePath,
		"chars":     len(text),
	}).Info("Audio transcription completed")

	return text, nil
}

// ExtractDocument 提取文档文本
// 非PDF/图片格式先转换为PDF，再经分块提取走OCR
func (s *MediaService) ExtractDocument(ctx context.Context, filePath string) (string, error) {
	if filePath == "" {
		return "", errors.New("file path cannot be empty")
	}

	digest := s.fileDigest(filePath)
	if digest != "" {
		if text, found := s.cacheGet(cache.ExtractionKey(digest)); found {
			s.logger.WithField("file_path", filePath).Debug("Extraction cache hit")
			return text, nil
		}
	}

	extractPath := filePath
	if convert.NeedsConversion(filePath) {
		tempDir, err := os.MkdirTemp("", "doc_convert_")
		if err != nil {
			return "", fmt.Errorf("failed to create temp dir for conversion: %w", err)
		}
		defer os.RemoveAll(tempDir)

		base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		converted, err := s.converter.ToPDF(filePath, filepath.Join(tempDir, base+".pdf"))
		if err != nil {
			return "", fmt.Errorf("failed to convert document to pdf: %w", err)
		}
		extractPath = converted

		s.logger.WithFields(logrus.Fields{
			"file_path": filePath,
			"converted": converted,
		}).Debug("Document converted to PDF for extraction")
	}

	result, err := s.chunker.Extract(ctx, extractPath)
	if err != nil {
		return "", fmt.Errorf("failed to extract document text: %w", err)
	}

	if digest != "" {
		s.cacheSet(cache.ExtractionKey(digest), result.Text)
	}

	s.logger.WithFields(logrus.Fields{
		"file_path":    filePath,
		"strategy":     result.Strategy.String(),
		"chunk_count":  result.ChunkCount,
		"failed_count": result.FailedCount,
	}).Info("Document extraction completed")

	return result.Text, nil
}

// fileDigest 计算文件内容摘要，失败时返回空串并跳过缓存
func (s *MediaService) fileDigest(filePath string) string {
	if s.cache == nil {
		return ""
	}

	digest, err := cache.FileDigest(filePath)
	if err != nil {
		s.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to digest file, skipping cache")
		return ""
	}
	return digest
}

func (s *MediaService) cacheGet(key string) (string, bool) {
	value, found, err := s.cache.Get(key)
	if err != nil || !found {
		return "", false
	}
	return value, true
}

func (s *MediaService) cacheSet(key, value string) {
	if err := s.cache.Set(key, value, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache media result")
	}
}
