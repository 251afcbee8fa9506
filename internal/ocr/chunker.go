package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TextExtractor 单个文档文件的文本提取接口
type TextExtractor interface {
	// ExtractFile 提取指定文件的文本内容
	ExtractFile(ctx context.Context, filePath string) (string, error)
}

// ExtractionResult 分块提取结果
type ExtractionResult struct {
	Text        string        // 按分块顺序拼接的全部文本
	Strategy    SplitStrategy // 实际采用的拆分策略
	ChunkCount  int           // 分块总数
	FailedCount int           // 提取失败的分块数
}

// Chunker 自适应文档分块器
// 超过限制的文档先拆分为分块，逐块提取文本后按顺序拼接
type Chunker struct {
	extractor TextExtractor
	limits    ChunkLimits
	logger    *logrus.Logger
}

// ChunkerOption 分块器配置选项
type ChunkerOption func(*Chunker)

// WithChunkerLogger 设置日志记录器
func WithChunkerLogger(logger *logrus.Logger) ChunkerOption {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChunker 创建新的文档分块器
func NewChunker(extractor TextExtractor, limits ChunkLimits, opts ...ChunkerOption) (*Chunker, error) {
	if extractor == nil {
		return nil, NewChunkError(ErrCodeInvalidLimits, "text extractor cannot be nil")
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	c := &Chunker{
		extractor: extractor,
		limits:    limits,
		logger:    logrus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Extract 对文档分块提取文本
// 分块提取失败只计入FailedCount，不中断也不上抛；全部失败时返回空文本，
// 调用方通过FailedCount与ChunkCount区分。拆分产生的临时文件在返回前全部清理
func (c *Chunker) Extract(ctx context.Context, filePath string) (*ExtractionResult, error) {
	info, err := InspectFile(filePath)
	if err != nil {
		return nil, err
	}
	if info.Format == FormatUnknown {
		return nil, NewChunkError(ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported document format: %s", filePath))
	}

	strategy := SelectStrategy(info, c.limits)

	c.logger.WithFields(logrus.Fields{
		"file":     filePath,
		"size":     info.SizeBytes,
		"pages":    info.PageCount,
		"format":   info.Format.String(),
		"strategy": strategy.String(),
	}).Info("Document inspected for extraction")

	chunks, cleanup, err := c.planChunks(filePath, info, strategy)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result := &ExtractionResult{
		Strategy:   strategy,
		ChunkCount: len(chunks),
	}

	var texts []string
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, WrapChunkError(ErrCodeExtractFailed, "extraction cancelled", ctx.Err())
		default:
		}

		text, err := c.extractor.ExtractFile(ctx, chunk.Path)
		if err != nil {
			// 单块失败只记录，不影响其余分块
			result.FailedCount++
			c.logger.WithError(err).WithFields(logrus.Fields{
				"file":  filePath,
				"chunk": chunk.Index,
			}).Warn("Chunk extraction failed")
			continue
		}
		// 空白分块不贡献文本
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}

	if result.FailedCount == result.ChunkCount && result.ChunkCount > 0 {
		c.logger.WithFields(logrus.Fields{
			"file":   filePath,
			"chunks": result.ChunkCount,
		}).Warn("All chunks failed extraction")
	}

	result.Text = strings.Join(texts, "\n")
	return result, nil
}

// ExtractText 提取文档文本，仅返回拼接结果
func (c *Chunker) ExtractText(ctx context.Context, filePath string) (string, error) {
	result, err := c.Extract(ctx, filePath)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// planChunks 根据策略生成分块列表
// 返回的cleanup函数负责清理本次调用产生的全部临时文件
func (c *Chunker) planChunks(filePath string, info FileInfo, strategy SplitStrategy) ([]Chunk, func(), error) {
	if strategy == StrategyNone {
		// 无需拆分，原文件即单个分块
		chunk := Chunk{Index: 0, Path: filePath, PageFrom: 1, PageTo: info.PageCount}
		return []Chunk{chunk}, func() {}, nil
	}

	tempDir, err := os.MkdirTemp("", "ocr_chunks_")
	if err != nil {
		return nil, nil, WrapChunkError(ErrCodeTempDirFailed, "failed to create chunk temp dir", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	var chunks []Chunk
	switch strategy {
	case StrategyPageSplit:
		chunks, err = splitPDFByPages(filePath, tempDir, info, c.limits)
	case StrategySizeSplit:
		chunks, err = splitPDFBySize(filePath, tempDir, info, c.limits)
	case StrategyCompress:
		var chunk Chunk
		chunk, err = compressImageChunk(filePath, tempDir, info, c.limits)
		chunks = []Chunk{chunk}
	}

	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return chunks, cleanup, nil
}
