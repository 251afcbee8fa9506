package convert

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeTestXLSX 生成包含检验结果表格的xlsx测试文件
func writeTestXLSX(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "batch"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "result"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "BR-001"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "pass"))

	path := filepath.Join(t.TempDir(), "batches.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

// writeTestPPTX 手工构造包含两张幻灯片的pptx测试文件
func writeTestPPTX(t *testing.T, slideTexts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "training.pptx")

	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	for i, text := range slideTexts {
		w, err := zw.Create("ppt/slides/slide" + strconv.Itoa(i+1) + ".xml")
		require.NoError(t, err)
		_, err = w.Write([]byte(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
			` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
			`<p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text +
			`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return path
}

func TestNeedsConversion(t *testing.T) {
	assert.True(t, NeedsConversion("notes.txt"))
	assert.True(t, NeedsConversion("README.md"))
	assert.True(t, NeedsConversion("batch.csv"))
	assert.True(t, NeedsConversion("report.DOCX"), "扩展名匹配应忽略大小写")
	assert.True(t, NeedsConversion("batches.xlsx"))
	assert.True(t, NeedsConversion("training.pptx"))
	assert.False(t, NeedsConversion("scan.pdf"))
	assert.False(t, NeedsConversion("photo.png"))
}

func TestConverterToPDF(t *testing.T) {
	converter := NewConverter()

	t.Run("PlainText", func(t *testing.T) {
		src := writeSource(t, "notes.txt", "Deviation observed during filling.\nLine 2 of the note.")
		out := filepath.Join(t.TempDir(), "notes.pdf")

		path, err := converter.ToPDF(src, out)
		require.NoError(t, err)
		assert.Equal(t, out, path)

		// 产物应是可解析的单页PDF
		count, err := api.PageCountFile(out)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Markdown", func(t *testing.T) {
		src := writeSource(t, "sop.md", "# SOP-101\n\nCleaning procedure:\n\n- step one\n- step two\n")
		out := filepath.Join(t.TempDir(), "sop.pdf")

		_, err := converter.ToPDF(src, out)
		require.NoError(t, err)

		_, err = os.Stat(out)
		require.NoError(t, err, "转换产物文件应存在")
	})

	t.Run("CSV", func(t *testing.T) {
		src := writeSource(t, "batch.csv", "batch,result\nBR-001,pass\nBR-002,fail\n")
		out := filepath.Join(t.TempDir(), "batch.pdf")

		_, err := converter.ToPDF(src, out)
		require.NoError(t, err)
	})

	t.Run("XLSX", func(t *testing.T) {
		src := writeTestXLSX(t)
		out := filepath.Join(t.TempDir(), "batches.pdf")

		_, err := converter.ToPDF(src, out)
		require.NoError(t, err)

		count, err := api.PageCountFile(out)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)
	})

	t.Run("PPTX", func(t *testing.T) {
		src := writeTestPPTX(t, "GMP training overview", "Deviation handling workflow")
		out := filepath.Join(t.TempDir(), "training.pdf")

		_, err := converter.ToPDF(src, out)
		require.NoError(t, err)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		src := writeSource(t, "data.bin", "binary")
		_, err := converter.ToPDF(src, filepath.Join(t.TempDir(), "out.pdf"))
		require.Error(t, err, "不支持的源类型应返回错误")
	})

	t.Run("EmptyContent", func(t *testing.T) {
		src := writeSource(t, "empty.txt", "   \n  ")
		_, err := converter.ToPDF(src, filepath.Join(t.TempDir(), "out.pdf"))
		require.Error(t, err, "空文档应返回错误")
	})
}

func TestConverterTextToPDF(t *testing.T) {
	converter := NewConverter()

	t.Run("Success", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "revised.pdf")
		path, err := converter.TextToPDF("Revised agreement section 3.1: supplier shall notify within 5 days.", out)
		require.NoError(t, err)

		count, err := api.PageCountFile(path)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)
	})

	t.Run("EmptyText", func(t *testing.T) {
		_, err := converter.TextToPDF("", filepath.Join(t.TempDir(), "out.pdf"))
		require.Error(t, err)
	})
}

func TestExtractMarkdown(t *testing.T) {
	src := writeSource(t, "doc.md", "# Title\n\nBody **bold** text.\n\n- item1\n- item2\n")
	text, err := extractMarkdown(src)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Body bold text.")
	assert.Contains(t, text, "- item1", "列表项应保留项目符号")
	assert.NotContains(t, text, "<", "提取结果不应残留HTML标签")
}

func TestExtractXLSX(t *testing.T) {
	src := writeTestXLSX(t)
	text, err := extractXLSX(src)
	require.NoError(t, err)
	assert.Equal(t, "batch\tresult\nBR-001\tpass", text, "单工作表输出制表符分隔的行")
}

func TestExtractPPTX(t *testing.T) {
	src := writeTestPPTX(t, "GMP training overview", "Deviation handling workflow")
	text, err := extractPPTX(src)
	require.NoError(t, err)
	assert.Equal(t, "GMP training overview\n\nDeviation handling workflow", text,
		"幻灯片文本应按顺序提取，幻灯片之间以空行分隔")
}

func TestExtractCSV(t *testing.T) {
	src := writeSource(t, "data.csv", "a,b,c\n1,2\n")
	text, err := extractCSV(src)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\tc\n1\t2", text, "CSV行应转为制表符分隔文本，允许不等长行")
}
