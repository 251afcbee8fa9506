package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// 任务数据在Redis中保留7天
	taskRetention = 7 * 24 * time.Hour
	// WaitForTask兜底轮询间隔
	pollInterval = time.Second
)

func init() {
	RegisterQueueFactory("redis", func(cfg *Config) (Queue, error) {
		return NewRedisQueue(cfg)
	})
}

// taskKey 任务数据键
func taskKey(taskID string) string {
	return "task:" + taskID
}

// recordTasksKey 记录到任务ID集合的键
func recordTasksKey(recordID string) string {
	return "record_tasks:" + recordID
}

// statusChannel 任务状态变更的发布订阅频道
func statusChannel(taskID string) string {
	return "task_status:" + taskID
}

// RedisQueue 基于asynq的任务队列
// asynq负责调度与重试，任务的业务状态单独存在Redis里供API查询
type RedisQueue struct {
	client      *asynq.Client
	inspector   *asynq.Inspector
	redisClient *redis.Client
	cfg         *Config
	logger      *logrus.Logger
}

// redisOpt 由配置构造asynq连接参数
func redisOpt(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewRedisQueue 创建Redis任务队列
func NewRedisQueue(cfg *Config) (Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &RedisQueue{
		client:      asynq.NewClient(redisOpt(cfg)),
		inspector:   asynq.NewInspector(redisOpt(cfg)),
		redisClient: rdb,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// enqueue 保存任务数据并提交asynq调度
func (q *RedisQueue) enqueue(ctx context.Context, taskType TaskType, recordID string, payload interface{}, opts ...asynq.Option) (string, error) {
	payloadBytes, err := MarshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	task := &Task{
		ID:         uuid.New().String(),
		Type:       taskType,
		RecordID:   recordID,
		Status:     StatusPending,
		Payload:    payloadBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: q.cfg.RetryLimit,
	}

	if err := q.persistTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to save task to redis: %w", err)
	}

	// asynq侧只携带任务ID，处理时再从Redis取完整任务
	// 使用相同ID方便后续从asynq队列删除
	opts = append(opts, asynq.TaskID(task.ID), asynq.MaxRetry(q.cfg.RetryLimit))
	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(string(taskType), []byte(task.ID)), opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": taskType,
		"record_id": recordID,
	}).Info("Task enqueued successfully")

	return task.ID, nil
}

// Enqueue 立即入队
func (q *RedisQueue) Enqueue(ctx context.Context, taskType TaskType, recordID string, payload interface{}) (string, error) {
	return q.enqueue(ctx, taskType, recordID, payload)
}

// EnqueueAt 在指定时间入队
func (q *RedisQueue) EnqueueAt(ctx context.Context, taskType TaskType, recordID string, payload interface{}, processAt time.Time) (string, error) {
	return q.enqueue(ctx, taskType, recordID, payload, asynq.ProcessAt(processAt))
}

// EnqueueIn 延迟入队
func (q *RedisQueue) EnqueueIn(ctx context.Context, taskType TaskType, recordID string, payload interface{}, delay time.Duration) (string, error) {
	return q.enqueue(ctx, taskType, recordID, payload, asynq.ProcessIn(delay))
}

// GetTask 按ID读取任务
func (q *RedisQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	data, err := q.redisClient.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task from redis: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	return &task, nil
}

// GetTasksByRecord 读取记录关联的全部任务
func (q *RedisQueue) GetTasksByRecord(ctx context.Context, recordID string) ([]*Task, error) {
	taskIDs, err := q.redisClient.SMembers(ctx, recordTasksKey(recordID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get record tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task, err := q.GetTask(ctx, taskID)
		if errors.Is(err, ErrTaskNotFound) {
			// 任务数据已过期但集合成员还在，跳过
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// WaitForTask 等待任务进入终态
// 订阅状态频道并定期轮询，两者任一发现终态即返回
func (q *RedisQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	check := func() (*Task, bool, error) {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			return nil, false, err
		}
		done := task.Status == StatusCompleted || task.Status == StatusFailed
		return task, done, nil
	}

	if task, done, err := check(); err != nil || done {
		return task, err
	}

	pubsub := q.redisClient.Subscribe(ctx, statusChannel(taskID))
	defer pubsub.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ErrTaskTimeout
		case <-pubsub.Channel():
		case <-ticker.C:
		}

		task, done, err := check()
		if err != nil {
			return nil, err
		}
		if done {
			return task, nil
		}
	}
}

// DeleteTask 删除任务数据、记录关联和asynq队列里的待处理项
func (q *RedisQueue) DeleteTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.RecordID != "" {
		if err := q.redisClient.SRem(ctx, recordTasksKey(task.RecordID), taskID).Err(); err != nil {
			return fmt.Errorf("failed to remove task from record tasks: %w", err)
		}
	}

	if err := q.redisClient.Del(ctx, taskKey(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	// 处理中的任务asynq不允许删除，只记录告警
	if err := q.inspector.DeleteTask("default", taskID); err != nil {
		q.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to delete task from asynq queue")
	}
	return nil
}

// UpdateTaskStatus 更新任务状态并维护时间戳
func (q *RedisQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = status
	task.UpdatedAt = now

	switch {
	case status == StatusProcessing && task.StartedAt == nil:
		task.StartedAt = &now
	case status == StatusCompleted || status == StatusFailed:
		task.CompletedAt = &now
	}

	if result != nil {
		resultBytes, err := MarshalPayload(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		task.Result = resultBytes
	}
	if errMsg != "" {
		task.Error = errMsg
	}

	return q.persistTask(ctx, task)
}

// NotifyTaskUpdate 广播任务状态变化
func (q *RedisQueue) NotifyTaskUpdate(ctx context.Context, taskID string) error {
	return q.redisClient.Publish(ctx, statusChannel(taskID), "updated").Err()
}

// Close 关闭asynq与Redis连接
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redisClient.Close()
}

// persistTask 写入任务数据并维护记录关联集合
func (q *RedisQueue) persistTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.redisClient.Set(ctx, taskKey(task.ID), data, taskRetention).Err(); err != nil {
		return fmt.Errorf("failed to save task data: %w", err)
	}

	if task.RecordID != "" {
		key := recordTasksKey(task.RecordID)
		if err := q.redisClient.SAdd(ctx, key, task.ID).Err(); err != nil {
			return fmt.Errorf("failed to add task to record tasks: %w", err)
		}
		q.redisClient.Expire(ctx, key, taskRetention)
	}
	return nil
}

// RedisWorker 消费asynq队列并分发给注册的Handler
type RedisWorker struct {
	server   *asynq.Server
	queue    *RedisQueue
	handlers map[TaskType]Handler
	logger   *logrus.Logger
}

// NewRedisWorker 创建工作者，cfg为nil时复用队列配置
func NewRedisWorker(queue *RedisQueue, cfg *Config) Worker {
	if cfg == nil {
		cfg = queue.cfg
	}

	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      cfg.Queues,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return cfg.RetryDelay
		},
		Logger: queue.logger,
	})

	return &RedisWorker{
		server:   server,
		queue:    queue,
		handlers: make(map[TaskType]Handler),
		logger:   queue.logger,
	}
}

// RegisterHandler 注册任务处理器
func (w *RedisWorker) RegisterHandler(taskType TaskType, handler Handler) {
	w.handlers[taskType] = handler
}

// Start 注册所有处理函数并启动asynq服务
func (w *RedisWorker) Start() error {
	mux := asynq.NewServeMux()
	for taskType, handler := range w.handlers {
		mux.Handle(string(taskType), w.dispatch(handler))
		w.logger.WithField("task_type", taskType).Info("Registered handler for task type")
	}
	return w.server.Start(mux)
}

// Stop 停止工作者
func (w *RedisWorker) Stop() {
	w.server.Shutdown()
}

// dispatch 包装Handler：取任务、维护状态流转、广播变更
func (w *RedisWorker) dispatch(h Handler) asynq.HandlerFunc {
	return func(ctx context.Context, asynqTask *asynq.Task) error {
		taskID := string(asynqTask.Payload())
		log := w.logger.WithField("task_id", taskID)

		task, err := w.queue.GetTask(ctx, taskID)
		if err != nil {
			log.WithError(err).Error("Failed to get task info")
			return err
		}

		if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
			log.WithError(err).Error("Failed to update task status to processing")
		}
		w.queue.NotifyTaskUpdate(ctx, taskID)

		if err := h.ProcessTask(ctx, task); err != nil {
			if updateErr := w.queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, err.Error()); updateErr != nil {
				log.WithError(updateErr).Error("Failed to update task status after failure")
			}
			w.queue.NotifyTaskUpdate(ctx, taskID)
			return err
		}

		if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, nil, ""); err != nil {
			log.WithError(err).Error("Failed to update task status after completion")
		}
		w.queue.NotifyTaskUpdate(ctx, taskID)
		return nil
	}
}
