package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// 队列层的哨兵错误
var (
	// ErrTaskNotFound 任务不存在或已过期
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskTimeout 等待任务完成超时
	ErrTaskTimeout = errors.New("task timed out")
)

// Queue 异步任务队列
// 入队后任务由Worker在后台处理，调用方通过任务ID查询状态或等待结果
type Queue interface {
	// Enqueue 将任务加入队列，返回任务ID
	Enqueue(ctx context.Context, taskType TaskType, recordID string, payload interface{}) (string, error)

	// EnqueueAt 在指定时间点执行任务
	EnqueueAt(ctx context.Context, taskType TaskType, recordID string, payload interface{}, processAt time.Time) (string, error)

	// EnqueueIn 延迟指定时长后执行任务
	EnqueueIn(ctx context.Context, taskType TaskType, recordID string, payload interface{}, delay time.Duration) (string, error)

	// GetTask 查询任务，任务不存在时返回ErrTaskNotFound
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// GetTasksByRecord 查询某条分析记录关联的全部任务
	GetTasksByRecord(ctx context.Context, recordID string) ([]*Task, error)

	// WaitForTask 阻塞等待任务进入终态
	// timeout为0时只受ctx约束
	WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error)

	// DeleteTask 删除任务数据及其记录关联
	DeleteTask(ctx context.Context, taskID string) error

	// UpdateTaskStatus 更新任务状态，result和errorMsg按需填写
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errorMsg string) error

	// NotifyTaskUpdate 向等待方广播任务状态变化
	NotifyTaskUpdate(ctx context.Context, taskID string) error

	// Close 释放底层连接
	Close() error
}

// Handler 任务处理器，由业务服务实现
type Handler interface {
	// ProcessTask 执行任务，返回错误时任务标记为失败
	ProcessTask(ctx context.Context, task *Task) error

	// GetTaskTypes 声明该处理器能处理的任务类型
	GetTaskTypes() []TaskType
}

// Worker 后台工作者，消费队列并分发给已注册的Handler
type Worker interface {
	RegisterHandler(taskType TaskType, handler Handler)
	Start() error
	Stop()
}

// Config 队列与工作者的共享配置
type Config struct {
	RedisAddr     string         // Redis服务地址
	RedisPassword string         // Redis密码
	RedisDB       int            // Redis库编号
	Concurrency   int            // 工作者并发度
	RetryLimit    int            // 单任务最大重试次数
	RetryDelay    time.Duration  // 重试间隔
	Queues        map[string]int // 队列名到权重的映射
}

// DefaultConfig 返回本地开发用的默认配置
func DefaultConfig() *Config {
	return &Config{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 10,
		RetryLimit:  3,
		RetryDelay:  time.Minute,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}
}

// Factory 队列构造函数
type Factory func(cfg *Config) (Queue, error)

var queueFactories = make(map[string]Factory)

// RegisterQueueFactory 注册一种队列实现
func RegisterQueueFactory(name string, factory Factory) {
	queueFactories[name] = factory
}

// NewQueue 按实现名创建队列
func NewQueue(name string, cfg *Config) (Queue, error) {
	factory, ok := queueFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown queue implementation: %s", name)
	}
	return factory(cfg)
}

// TaskInfo 面向API返回的任务摘要
type TaskInfo struct {
	ID          string     `json:"id"`
	Type        TaskType   `json:"type"`
	RecordID    string     `json:"record_id"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Progress    float64    `json:"progress"`
}

// NewTaskInfo 由完整任务生成摘要
func NewTaskInfo(task *Task) *TaskInfo {
	info := &TaskInfo{
		ID:          task.ID,
		Type:        task.Type,
		RecordID:    task.RecordID,
		Status:      task.Status,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
	// 真实进度由处理器上报，这里仅按状态给出粗略值
	switch task.Status {
	case StatusCompleted:
		info.Progress = 100.0
	case StatusProcessing, StatusFailed:
		info.Progress = 50.0
	}
	return info
}

// MarshalPayload 序列化任务载荷，nil载荷编码为空对象
func MarshalPayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(payload)
}

// UnmarshalPayload 反序列化任务载荷，空数据视为无载荷
func UnmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
