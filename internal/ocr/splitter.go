package ocr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// SplitStrategy 文档拆分策略
type SplitStrategy int

const (
	// StrategyNone 无需拆分，整体作为单个分块
	StrategyNone SplitStrategy = iota
	// StrategyPageSplit 按页数拆分PDF
	StrategyPageSplit
	// StrategySizeSplit 按大小贪心拆分PDF
	StrategySizeSplit
	// StrategyCompress 压缩图片
	StrategyCompress
)

// String 返回策略名称
func (s SplitStrategy) String() string {
	switch s {
	case StrategyPageSplit:
		return "page_split"
	case StrategySizeSplit:
		return "size_split"
	case StrategyCompress:
		return "compress"
	default:
		return "none"
	}
}

// SelectStrategy 根据文件属性和限制选择拆分策略
// 页数超限优先于大小超限
func SelectStrategy(info FileInfo, limits ChunkLimits) SplitStrategy {
	switch info.Format {
	case FormatPDF:
		if info.ExceedsPages(limits) {
			return StrategyPageSplit
		}
		if info.ExceedsSize(limits) {
			return StrategySizeSplit
		}
	case FormatImage:
		if info.ExceedsSize(limits) {
			return StrategyCompress
		}
	}
	return StrategyNone
}

// Chunk 文档分块
type Chunk struct {
	Index     int    // 分块顺序号，从0开始
	Path      string // 分块文件路径
	PageFrom  int    // 起始页码（含），图片分块为0
	PageTo    int    // 结束页码（含），图片分块为0
	Temporary bool   // 是否为临时文件（拆分产物）
}

// pageRange 构造pdfcpu的页码选择表达式
func pageRange(from, to int) string {
	if from == to {
		return fmt.Sprintf("%d", from)
	}
	return fmt.Sprintf("%d-%d", from, to)
}

// writePDFChunk 将指定页码范围写出为分块文件
func writePDFChunk(srcPath, tempDir string, index, from, to int, conf *model.Configuration) (string, error) {
	chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%03d.pdf", index))
	if err := api.TrimFile(srcPath, chunkPath, []string{pageRange(from, to)}, conf); err != nil {
		return "", WrapChunkError(ErrCodeSplitFailed,
			fmt.Sprintf("failed to write chunk pages %d-%d", from, to), err)
	}
	return chunkPath, nil
}

// splitPDFByPages 按固定页数拆分PDF
// 产生连续的页码区间，每个分块最多MaxPages页
func splitPDFByPages(srcPath, tempDir string, info FileInfo, limits ChunkLimits) ([]Chunk, error) {
	conf := model.NewDefaultConfiguration()

	var chunks []Chunk
	for from := 1; from <= info.PageCount; from += limits.MaxPages {
		to := from + limits.MaxPages - 1
		if to > info.PageCount {
			to = info.PageCount
		}

		chunkPath, err := writePDFChunk(srcPath, tempDir, len(chunks), from, to, conf)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Path:      chunkPath,
			PageFrom:  from,
			PageTo:    to,
			Temporary: true,
		})
	}

	return chunks, nil
}

// splitPDFBySize 按大小贪心拆分PDF
// 逐页累积并试算分块大小，超限时回退最后一页并落定分块；
// 单页即超限的页仍作为独立分块输出
func splitPDFBySize(srcPath, tempDir string, info FileInfo, limits ChunkLimits) ([]Chunk, error) {
	conf := model.NewDefaultConfiguration()

	var chunks []Chunk
	start := 1

	finalize := func(from, to int) error {
		chunkPath, err := writePDFChunk(srcPath, tempDir, len(chunks), from, to, conf)
		if err != nil {
			return err
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Path:      chunkPath,
			PageFrom:  from,
			PageTo:    to,
			Temporary: true,
		})
		return nil
	}

	for page := 1; page <= info.PageCount; page++ {
		trialPath := filepath.Join(tempDir, fmt.Sprintf("trial_%d_%d.pdf", start, page))
		if err := api.TrimFile(srcPath, trialPath, []string{pageRange(start, page)}, conf); err != nil {
			return nil, WrapChunkError(ErrCodeSplitFailed,
				fmt.Sprintf("failed to serialize trial pages %d-%d", start, page), err)
		}

		stat, err := os.Stat(trialPath)
		os.Remove(trialPath) // 试算文件用后即删
		if err != nil {
			return nil, WrapChunkError(ErrCodeSplitFailed, "failed to stat trial chunk", err)
		}

		if stat.Size() > limits.MaxSizeBytes && page > start {
			// 当前页使分块超限，落定不含当前页的分块
			if err := finalize(start, page-1); err != nil {
				return nil, err
			}
			start = page
		}
	}

	// 落定剩余页
	if err := finalize(start, info.PageCount); err != nil {
		return nil, err
	}

	return chunks, nil
}
