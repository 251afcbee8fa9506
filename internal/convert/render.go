package convert

import (
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// renderPDF 将纯文本渲染为A4版式的PDF文件
func renderPDF(text, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 11)

	// 核心字体仅支持latin-1，其余字符经转换器近似处理
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			pdf.Ln(5)
			continue
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	return pdf.OutputFileAndClose(outputPath)
}
