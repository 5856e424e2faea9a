package clicks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
	"shortlink-platform/internal/store"
)

const (
	// DefaultQueueSize 是点击事件队列的缓冲区大小
	DefaultQueueSize = 1024
)

// Recorder 负责异步落盘点击事件
// Append 永不阻塞调用方：队列满时直接丢弃并计数，跳转响应不等待、
// 也不感知任何记录失败。事件写入和计数递增在后台 worker 中完成，
// 与请求的取消无关，一旦入队就会执行到成功或失败为止
type Recorder struct {
	db       *gorm.DB
	store    *store.URLStore
	events   chan model.ClickEvent
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Int64
	logger   *zap.SugaredLogger
}

// NewRecorder 创建点击事件记录器
// queueSize 小于等于 0 时使用 DefaultQueueSize
func NewRecorder(db *gorm.DB, urlStore *store.URLStore, queueSize int, logger *zap.SugaredLogger) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		db:       db,
		store:    urlStore,
		events:   make(chan model.ClickEvent, queueSize),
		stopChan: make(chan struct{}),
		logger:   logger.Named("click_recorder"),
	}
}

// Start 启动后台落盘任务
func (r *Recorder) Start() {
	r.logger.Info("启动点击事件记录器...")
	r.wg.Add(1)
	go r.run()
}

// Stop 停止记录器，处理完队列中剩余的事件后返回
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("正在停止点击事件记录器...")
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Append 把一次成功跳转追加到事件队列，不阻塞、不返回错误
// referer 为空时记录为 "direct"，后续聚合按该标签分组
func (r *Recorder) Append(shortURLID uint, clickedAt time.Time, ipAddress, userAgent, referer string) {
	if referer == "" {
		referer = "direct"
	}
	ev := model.ClickEvent{
		ShortURLID: shortURLID,
		ClickedAt:  clickedAt,
		IPAddress:  ipAddress,
		UserAgent:  truncate(userAgent, 512),
		Referer:    truncate(referer, 512),
	}

	select {
	case r.events <- ev:
	default:
		// 队列已满，宁可丢事件也不能拖慢跳转响应
		r.dropped.Inc()
		r.logger.Warnw("点击事件队列已满，事件被丢弃",
			"short_url_id", shortURLID, "dropped_total", r.dropped.Load())
	}
}

// Dropped 返回累计被丢弃的事件数，用于观测
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// run 后台 worker：顺序消费队列，收到停止信号后排空剩余事件再退出
func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.events:
			r.persist(ev)
		case <-r.stopChan:
			for {
				select {
				case ev := <-r.events:
					r.persist(ev)
				default:
					r.logger.Info("点击事件记录器已停止")
					return
				}
			}
		}
	}
}

// persist 落盘单个事件并递增计数缓存
// 事件插入失败时跳过计数递增，保证 click_count 不超过事件日志条数；
// 失败只记日志，永远不向跳转路径传播
func (r *Recorder) persist(ev model.ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(&ev).Error; err != nil {
		r.logger.Errorw("点击事件写入失败", "short_url_id", ev.ShortURLID, "error", err)
		return
	}
	if err := r.store.IncrementClickCount(ctx, ev.ShortURLID); err != nil {
		r.logger.Errorw("点击计数递增失败", "short_url_id", ev.ShortURLID, "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
