package convert

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const slidePathPrefix = "ppt/slides/slide"

// extractPPTX 解析pptx演示文稿，按幻灯片顺序提取文本
// pptx是包含OOXML的zip包，幻灯片文本位于ppt/slides/slideN.xml的a:t节点
func extractPPTX(filePath string) (string, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}
	defer r.Close()

	var slides []*zip.File
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, slidePathPrefix) && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})

	var parts []string
	for _, slide := range slides {
		text, err := slideText(slide)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", slide.Name, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// slideNumber 从幻灯片文件名解析序号
func slideNumber(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(name, slidePathPrefix), ".xml")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}

// slideText 提取单张幻灯片内全部文本节点
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var lines []string
	var buf strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
				buf.Reset()
			}
		case xml.CharData:
			if inText {
				buf.Write(el)
			}
		case xml.EndElement:
			if el.Name.Local == "t" {
				inText = false
				if s := strings.TrimSpace(buf.String()); s != "" {
					lines = append(lines, s)
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
