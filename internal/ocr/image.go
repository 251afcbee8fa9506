package ocr

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// 图片压缩质量的上下限
	minJPEGQuality = 10
	maxJPEGQuality = 90
)

// compressionQuality 根据当前大小与限制计算JPEG压缩质量
// 目标大小与当前大小的比值映射到[10, 90]区间
func compressionQuality(currentSize, maxSize int64) int {
	if currentSize <= 0 {
		return maxJPEGQuality
	}
	quality := int(float64(maxSize) / float64(currentSize) * float64(maxJPEGQuality))
	if quality < minJPEGQuality {
		return minJPEGQuality
	}
	if quality > maxJPEGQuality {
		return maxJPEGQuality
	}
	return quality
}

// compressImageChunk 将超限图片压缩为JPEG分块
// 带透明通道或调色板的图片先绘制到白底RGB画布上
func compressImageChunk(srcPath, tempDir string, info FileInfo, limits ChunkLimits) (Chunk, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return Chunk{}, WrapChunkError(ErrCodeFileNotFound,
			fmt.Sprintf("cannot open image %s", srcPath), err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Chunk{}, WrapChunkError(ErrCodeCompressFailed,
			fmt.Sprintf("failed to decode image %s", srcPath), err)
	}

	// 统一绘制到白底画布，透明区域呈现为白色
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)

	chunkPath := filepath.Join(tempDir, "chunk_000.jpg")
	out, err := os.Create(chunkPath)
	if err != nil {
		return Chunk{}, WrapChunkError(ErrCodeCompressFailed, "failed to create compressed image", err)
	}
	defer out.Close()

	quality := compressionQuality(info.SizeBytes, limits.MaxSizeBytes)
	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return Chunk{}, WrapChunkError(ErrCodeCompressFailed, "failed to encode compressed image", err)
	}

	return Chunk{
		Index:     0,
		Path:      chunkPath,
		Temporary: true,
	}, nil
}
