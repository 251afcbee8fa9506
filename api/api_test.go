package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartqms/ai-analysis-api/api/handler"
	"github.com/smartqms/ai-analysis-api/api/middleware"
	"github.com/smartqms/ai-analysis-api/api/model"
	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/llm"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/ocr"
	"github.com/smartqms/ai-analysis-api/internal/repository"
	"github.com/smartqms/ai-analysis-api/internal/services"
	"github.com/smartqms/ai-analysis-api/pkg/storage"
	"github.com/smartqms/ai-analysis-api/pkg/taskqueue"
)

// fakeTranscriber 返回固定转写文本的模拟转写客户端
type fakeTranscriber struct {
	text string
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, filePath string) (string, error) {
	return f.text, nil
}

func (f *fakeTranscriber) Name() string { return "fake" }

// staticExtractor 返回固定文本的模拟OCR提取器
type staticExtractor struct {
	text string
}

func (e *staticExtractor) ExtractFile(ctx context.Context, filePath string) (string, error) {
	return e.text, nil
}

// seqClient 按顺序返回预设响应的模拟大模型客户端
type seqClient struct {
	responses []string
	index     int
}

func (c *seqClient) next() string {
	if c.index >= len(c.responses) {
		return ""
	}
	resp := c.responses[c.index]
	c.index++
	return resp
}

func (c *seqClient) Generate(ctx context.Context, prompt string, options ...llm.GenerateOption) (*llm.Response, error) {
	return &llm.Response{Text: c.next(), ModelName: "seq", FinishTime: time.Now()}, nil
}

func (c *seqClient) Chat(ctx context.Context, messages []llm.Message, options ...llm.ChatOption) (*llm.Response, error) {
	return &llm.Response{Text: c.next()}, nil
}

func (c *seqClient) Name() string { return "seq" }

// stubQueue 记录入队任务的模拟任务队列
type stubQueue struct {
	enqueued int
	tasks    map[string]*taskqueue.Task
}

func (q *stubQueue) Enqueue(ctx context.Context, taskType taskqueue.TaskType, recordID string, payload interface{}) (string, error) {
	q.enqueued++
	return "stub-task-id", nil
}

func (q *stubQueue) EnqueueAt(ctx context.Context, taskType taskqueue.TaskType, recordID string, payload interface{}, processAt time.Time) (string, error) {
	return q.Enqueue(ctx, taskType, recordID, payload)
}

func (q *stubQueue) EnqueueIn(ctx context.Context, taskType taskqueue.TaskType, recordID string, payload interface{}, delay time.Duration) (string, error) {
	return q.Enqueue(ctx, taskType, recordID, payload)
}

func (q *stubQueue) GetTask(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	if task, ok := q.tasks[taskID]; ok {
		return task, nil
	}
	return nil, taskqueue.ErrTaskNotFound
}

func (q *stubQueue) GetTasksByRecord(ctx context.Context, recordID string) ([]*taskqueue.Task, error) {
	return nil, nil
}

func (q *stubQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*taskqueue.Task, error) {
	return nil, taskqueue.ErrTaskNotFound
}

func (q *stubQueue) DeleteTask(ctx context.Context, taskID string) error { return nil }

func (q *stubQueue) UpdateTaskStatus(ctx context.Context, taskID string, status taskqueue.TaskStatus, result interface{}, errorMsg string) error {
	return nil
}

func (q *stubQueue) NotifyTaskUpdate(ctx context.Context, taskID string) error { return nil }

func (q *stubQueue) Close() error { return nil }

// 测试环境配置
type testEnv struct {
	Router  *gin.Engine
	Storage storage.Storage
	Repo    repository.RecordRepository
	Queue   *stubQueue
}

// setupTestEnv 创建测试环境
// llmResponses按调用顺序被各分析方法消费
func setupTestEnv(t *testing.T, transcript string, llmResponses []string) *testEnv {
	gin.SetMode(gin.TestMode)

	tempDir := t.TempDir()

	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{
		Path: tempDir,
	})
	require.NoError(t, err)

	dbName := fmt.Sprintf("file:apidb_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AnalysisRecord{}, &models.AnalysisTask{}))
	repo := repository.NewRecordRepositoryWithDB(db)

	chunker, err := ocr.NewChunker(&staticExtractor{text: "extracted document text"}, ocr.DefaultChunkLimits())
	require.NoError(t, err)

	media, err := services.NewMediaService(&fakeTranscriber{text: transcript}, chunker)
	require.NoError(t, err)

	analyzer, err := analysis.NewAnalyzer(&seqClient{responses: llmResponses})
	require.NoError(t, err)

	logger := middleware.GetLogger()

	incidentService, err := services.NewIncidentService(media, analyzer, repo, logger)
	require.NoError(t, err)
	investigationService, err := services.NewInvestigationService(media, analyzer, repo, logger)
	require.NoError(t, err)
	reviewService, err := services.NewReviewService(media, analyzer, repo, logger)
	require.NoError(t, err)

	queue := &stubQueue{tasks: make(map[string]*taskqueue.Task)}
	attachmentService, err := services.NewAttachmentService(media, analyzer, repo, logger,
		services.WithAttachmentQueue(queue))
	require.NoError(t, err)

	emailService, err := services.NewEmailService(media, analyzer, repo, logger)
	require.NoError(t, err)
	todoService, err := services.NewTodoService(media, analyzer, repo, logger)
	require.NoError(t, err)
	qtaService, err := services.NewQTAService(media, analyzer, repo, logger)
	require.NoError(t, err)
	historyService, err := services.NewHistoryService(repo, logger)
	require.NoError(t, err)

	deviationHandler := handler.NewDeviationHandler(
		incidentService, investigationService, reviewService, attachmentService, fileStorage)
	generateHandler := handler.NewGenerateHandler(emailService, todoService, fileStorage)
	qtaHandler := handler.NewQTAHandler(qtaService, fileStorage, tempDir)
	recordHandler := handler.NewRecordHandler(historyService, handler.WithRecordQueue(queue))

	router := SetupRouter(deviationHandler, generateHandler, qtaHandler, recordHandler)

	return &testEnv{
		Router:  router,
		Storage: fileStorage,
		Repo:    repo,
		Queue:   queue,
	}
}

// multipartBody 构造multipart请求体
func multipartBody(t *testing.T, files map[string][2]string, fields map[string]string) (*bytes.Buffer, string) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for field, file := range files {
		part, err := writer.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

// doRequest 执行请求并解析通用响应
func doRequest(t *testing.T, env *testEnv, req *http.Request) (*httptest.ResponseRecorder, *model.Response) {
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	var resp model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "响应应为JSON格式: %s", w.Body.String())
	return w, &resp
}

const apiIncidentResponse = `===ANALYSIS START===
INCIDENT_TITLE: Temperature excursion in cold storage unit B
WHO: Warehouse operator
WHAT: Cold storage unit B exceeded 8 degrees for 45 minutes during the night shift.
WHERE: Warehouse B
CRITICALITY: Major
===ANALYSIS END===`

func TestIncidentAnalyzeAPI(t *testing.T) {
	env := setupTestEnv(t, "cold storage temperature exceeded the limit",
		[]string{"Temperature excursion summary", apiIncidentResponse})

	body, contentType := multipartBody(t,
		map[string][2]string{"audio": {"incident.mp3", "fake audio"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/deviation/incident/analyze", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["record_id"])
	assert.Equal(t, "Temperature excursion summary", data["summary"])

	incident, ok := data["analysis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Temperature excursion in cold storage unit B", incident["title"])
}

func TestIncidentAnalyzeAPI_NoInput(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	body, contentType := multipartBody(t, nil, map[string]string{"unused": "1"})
	req := httptest.NewRequest(http.MethodPost, "/api/deviation/incident/analyze", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, 0, resp.Code)
}

func TestIncidentAnalyzeAPI_BadAudioType(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	body, contentType := multipartBody(t,
		map[string][2]string{"audio": {"payload.exe", "not audio"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/deviation/incident/analyze", body)
	req.Header.Set("Content-Type", contentType)

	w, _ := doRequest(t, env, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigationTextAPI(t *testing.T) {
	env := setupTestEnv(t, "", []string{`{"background_summary": "Sensor fault stopped the line"}`})

	reqBody, err := json.Marshal(map[string]string{"text": "the filling line stopped twice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/deviation/investigation/text", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	report, ok := data["report"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Sensor fault stopped the line", report["background_summary"])
}

func TestQualityReviewAPI(t *testing.T) {
	env := setupTestEnv(t, "the investigation covered all batches", []string{
		"===QUALITY REVIEW START===\nOVERALL_ASSESSMENT: Thorough\n===QUALITY REVIEW END===",
		"===SME REVIEW START===\nSME_OVERALL_ASSESSMENT: Sound\n===SME REVIEW END===",
	})

	body, contentType := multipartBody(t,
		map[string][2]string{"audio": {"review.wav", "fake audio"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/deviation/quality-review/analyze", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	quality, ok := data["quality_review"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Thorough", quality["overall_assessment"])
}

func TestAttachmentAnalyzeAPI(t *testing.T) {
	attachmentJSON := `{"AI suggested Title": "Batch packaging record"}`
	env := setupTestEnv(t, "", []string{attachmentJSON, "a packaging record summary"})

	body, contentType := multipartBody(t,
		map[string][2]string{"document": {"record.txt", "packaging record content"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/deviation/attachment/analyze", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	attachment, ok := data["analysis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Batch packaging record", attachment["AI suggested Title"])
	assert.Equal(t, "a packaging record summary", data["summary"])
}

func TestAttachmentAnalyzeAPI_Async(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	body, contentType := multipartBody(t,
		map[string][2]string{"document": {"record.pdf", "%PDF-1.4 fake"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/deviation/attachment/analyze?async=true", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "stub-task-id", data["task_id"])
	assert.Equal(t, "pending", data["status"])
	assert.NotEmpty(t, data["record_id"])
	assert.Equal(t, 1, env.Queue.enqueued)

	// 任务关联应已写入数据库
	task, err := env.Repo.GetTaskByID("stub-task-id")
	require.NoError(t, err)
	assert.Equal(t, data["record_id"], task.RecordID)
}

func TestEmailGenerateAPI(t *testing.T) {
	env := setupTestEnv(t, "ask the supplier to review the report",
		[]string{"Subject: Review request\n\nBody:\nPlease review the attached report."})

	body, contentType := multipartBody(t,
		map[string][2]string{"audio": {"email.m4a", "fake audio"}},
		map[string]string{"email_type": "request", "tone": "formal", "recipient": "supplier"})
	req := httptest.NewRequest(http.MethodPost, "/api/email/generate", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	email, ok := data["email"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Review request", email["subject"])
}

func TestEmailGenerateAPI_InvalidTone(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	body, contentType := multipartBody(t,
		map[string][2]string{"audio": {"email.mp3", "fake audio"}},
		map[string]string{"tone": "angry"})
	req := httptest.NewRequest(http.MethodPost, "/api/email/generate", body)
	req.Header.Set("Content-Type", contentType)

	w, _ := doRequest(t, env, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "非法的语气取值应被拒绝")
}

func TestTodoAPI(t *testing.T) {
	t.Run("FromText", func(t *testing.T) {
		env := setupTestEnv(t, "", []string{`["Call the supplier", "Update the SOP"]`})

		reqBody, err := json.Marshal(map[string]string{"text": "call supplier and update the SOP"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/todo/text", bytes.NewBuffer(reqBody))
		req.Header.Set("Content-Type", "application/json")

		w, resp := doRequest(t, env, req)
		assert.Equal(t, http.StatusOK, w.Code)

		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		items, ok := data["items"].([]interface{})
		require.True(t, ok)
		assert.Len(t, items, 2)
	})

	t.Run("FromAudio", func(t *testing.T) {
		env := setupTestEnv(t, "quarantine the batch", []string{`["Quarantine batch"]`})

		body, contentType := multipartBody(t,
			map[string][2]string{"audio": {"todo.ogg", "fake audio"}}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/todo/generate", body)
		req.Header.Set("Content-Type", contentType)

		w, resp := doRequest(t, env, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, resp.Code)
	})

	t.Run("MissingText", func(t *testing.T) {
		env := setupTestEnv(t, "", nil)

		req := httptest.NewRequest(http.MethodPost, "/api/todo/text", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")

		w, _ := doRequest(t, env, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQTADocumentAPI(t *testing.T) {
	env := setupTestEnv(t, "", []string{"Updated agreement text."})

	reqBody, err := json.Marshal(map[string]interface{}{
		"summary":       "extend notification window to 48 hours",
		"document_text": "Original agreement text.",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/qta/revision/document", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Updated agreement text.", data["updated_text"])
}

func TestQTAVoiceAPI(t *testing.T) {
	env := setupTestEnv(t, "extend the notification window", []string{
		"• Extend notification window to 48 hours",
		"The revision extends the notification window.",
	})

	body, contentType := multipartBody(t,
		map[string][2]string{"audio": {"revision.mp3", "fake audio"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/qta/revision/voice", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	bullets, ok := data["bullet_points"].([]interface{})
	require.True(t, ok)
	assert.Len(t, bullets, 1)
}

func TestRecordsAPI(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	// 准备记录
	record := &models.AnalysisRecord{
		ID:         "record-1",
		Type:       models.TypeIncident,
		SourceKind: models.SourceAudio,
		Status:     models.StatusCompleted,
	}
	require.NoError(t, env.Repo.Create(record))

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/records?page=1&page_size=10", nil)
		w, resp := doRequest(t, env, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), data["total"])
	})

	t.Run("Get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/records/record-1", nil)
		w, resp := doRequest(t, env, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "record-1", data["id"])
		assert.Equal(t, string(models.TypeIncident), data["type"])
	})

	t.Run("NotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/records/missing", nil)
		w, _ := doRequest(t, env, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("FilterByType", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/records?type=email", nil)
		w, resp := doRequest(t, env, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(0), data["total"])
	})
}

func TestTaskAPI_NotFound(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/missing-task", nil)
	w, _ := doRequest(t, env, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskCallbackAPI(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	env.Queue.tasks["cb-task-1"] = &taskqueue.Task{
		ID:       "cb-task-1",
		Type:     taskqueue.TaskAttachmentAnalyze,
		RecordID: "record-1",
		Status:   taskqueue.StatusProcessing,
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"task_id":   "cb-task-1",
		"record_id": "record-1",
		"status":    "completed",
		"type":      "attachment_analyze",
		"result":    map[string]interface{}{"analysis": map[string]string{"AI suggested Title": "Batch record"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/callback", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w, resp := doRequest(t, env, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "cb-task-1", data["task_id"])
}

func TestTaskCallbackAPI_UnknownTask(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	reqBody, err := json.Marshal(map[string]interface{}{
		"task_id":   "missing-task",
		"record_id": "record-1",
		"status":    "completed",
		"type":      "attachment_analyze",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/callback", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w, _ := doRequest(t, env, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthCheckAPI(t *testing.T) {
	env := setupTestEnv(t, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
