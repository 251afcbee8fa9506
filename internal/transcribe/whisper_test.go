package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestAudio 在临时目录写入指定大小的模拟音频文件
func writeTestAudio(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := make([]byte, size)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestIsSupportedAudio(t *testing.T) {
	assert.True(t, IsSupportedAudio("meeting.mp3"))
	assert.True(t, IsSupportedAudio("RECORDING.WAV"), "扩展名匹配应忽略大小写")
	assert.True(t, IsSupportedAudio("voice.m4a"))
	assert.False(t, IsSupportedAudio("report.pdf"))
	assert.False(t, IsSupportedAudio("noext"))
}

func TestNewWhisperClient(t *testing.T) {
	t.Run("MissingAPIKey", func(t *testing.T) {
		_, err := NewWhisperClient()
		require.Error(t, err)

		tErr, ok := err.(*TranscribeError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInvalidAPIKey, tErr.Code)
	})

	t.Run("Defaults", func(t *testing.T) {
		client, err := NewWhisperClient(WithAPIKey("test-key"))
		require.NoError(t, err)
		assert.Equal(t, ModelWhisper1, client.Name())
		assert.Equal(t, int64(DefaultMaxAudioSize), client.maxFileSize)
	})
}

func TestWhisperTranscribeFile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseMultipartForm(32<<20))
			assert.Equal(t, ModelWhisper1, r.FormValue("model"))
			assert.Equal(t, "text", r.FormValue("response_format"), "应请求纯文本响应格式")

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "meeting.mp3", header.Filename)

			w.Write([]byte("今天的偏差调查会议记录如下\n"))
		}))
		defer server.Close()

		client, err := NewWhisperClient(
			WithAPIKey("test-key"),
			WithBaseURL(server.URL),
		)
		require.NoError(t, err)

		path := writeTestAudio(t, "meeting.mp3", 1024)
		text, err := client.TranscribeFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "今天的偏差调查会议记录如下", text, "转写结果应去除首尾空白")
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		client, err := NewWhisperClient(WithAPIKey("test-key"))
		require.NoError(t, err)

		path := writeTestAudio(t, "report.pdf", 64)
		_, err = client.TranscribeFile(context.Background(), path)
		require.Error(t, err)

		tErr, ok := err.(*TranscribeError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeUnsupportedFormat, tErr.Code)
	})

	t.Run("FileTooLarge", func(t *testing.T) {
		client, err := NewWhisperClient(
			WithAPIKey("test-key"),
			WithMaxFileSize(512),
		)
		require.NoError(t, err)

		path := writeTestAudio(t, "big.mp3", 1024)
		_, err = client.TranscribeFile(context.Background(), path)
		require.Error(t, err)

		tErr, ok := err.(*TranscribeError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeFileTooLarge, tErr.Code)
	})

	t.Run("FileNotFound", func(t *testing.T) {
		client, err := NewWhisperClient(WithAPIKey("test-key"))
		require.NoError(t, err)

		_, err = client.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
		require.Error(t, err)

		tErr, ok := err.(*TranscribeError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeFileNotFound, tErr.Code)
	})

	t.Run("EmptyResult", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("   \n"))
		}))
		defer server.Close()

		client, err := NewWhisperClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		path := writeTestAudio(t, "silent.wav", 64)
		_, err = client.TranscribeFile(context.Background(), path)
		require.Error(t, err)

		tErr, ok := err.(*TranscribeError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeEmptyResult, tErr.Code)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid key"}}`))
		}))
		defer server.Close()

		client, err := NewWhisperClient(WithAPIKey("bad-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		path := writeTestAudio(t, "voice.mp3", 64)
		_, err = client.TranscribeFile(context.Background(), path)
		require.Error(t, err)

		tErr, ok := err.(*TranscribeError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInvalidAPIKey, tErr.Code)
	})

	t.Run("LanguageHint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(32<<20))
			assert.Equal(t, "zh", r.FormValue("language"))
			w.Write([]byte("转写文本"))
		}))
		defer server.Close()

		client, err := NewWhisperClient(
			WithAPIKey("test-key"),
			WithBaseURL(server.URL),
			WithLanguage("zh"),
		)
		require.NoError(t, err)

		path := writeTestAudio(t, "voice.mp3", 64)
		text, err := client.TranscribeFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "转写文本", text)
	})
}
