package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// 领域缓存键前缀
const (
	transcriptPrefix = "transcript"
	extractionPrefix = "ocr"
)

// FileDigest 计算文件内容的SHA-256摘要
// 相同内容的上传可复用已有的转写或OCR结果
func FileDigest(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TranscriptKey 生成音频转写结果的缓存键
func TranscriptKey(digest string) string {
	return GenerateCacheKey(transcriptPrefix, digest)
}

// ExtractionKey 生成文档OCR结果的缓存键
func ExtractionKey(digest string) string {
	return GenerateCacheKey(extractionPrefix, digest)
}
