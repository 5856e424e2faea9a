package clicks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
	"shortlink-platform/internal/store"
)

func setupRecorderTest(t *testing.T, queueSize int) (*gorm.DB, *store.URLStore, *Recorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "无法连接到内存数据库")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.ShortURL{}, &model.ClickEvent{}), "数据库迁移失败")
	t.Cleanup(func() {
		sqlDB.Close()
	})

	urlStore := store.NewURLStore(db, zap.NewNop().Sugar())
	recorder := NewRecorder(db, urlStore, queueSize, zap.NewNop().Sugar())
	return db, urlStore, recorder
}

// 并发追加下不丢更新：事件条数和计数缓存必须一致
func TestRecorder_ConcurrentAppends(t *testing.T) {
	db, urlStore, recorder := setupRecorderTest(t, 128)

	url := model.ShortURL{ShortCode: "busy1234", OriginalURL: "https://a.example.com", IsActive: true}
	require.NoError(t, urlStore.Insert(context.Background(), &url))

	recorder.Start()

	const clicks = 50
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recorder.Append(url.ID, time.Now(), fmt.Sprintf("10.0.0.%d", i%5), "test-agent", "https://a.com")
		}(i)
	}
	wg.Wait()
	recorder.Stop()

	assert.Equal(t, int64(0), recorder.Dropped(), "队列足够大时不应丢事件")

	var eventCount int64
	require.NoError(t, db.Model(&model.ClickEvent{}).Where("short_url_id = ?", url.ID).Count(&eventCount).Error)
	assert.Equal(t, int64(clicks), eventCount)

	got, err := urlStore.Lookup(context.Background(), "busy1234")
	require.NoError(t, err)
	assert.Equal(t, eventCount, got.ClickCount, "click_count 必须等于已记录的事件条数")
}

// 队列满时 Append 直接丢弃并计数，绝不阻塞调用方
func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	db, urlStore, recorder := setupRecorderTest(t, 1)

	url := model.ShortURL{ShortCode: "full1234", OriginalURL: "https://a.example.com", IsActive: true}
	require.NoError(t, urlStore.Insert(context.Background(), &url))

	// worker 未启动，第二条事件没有位置
	recorder.Append(url.ID, time.Now(), "10.0.0.1", "", "")
	recorder.Append(url.ID, time.Now(), "10.0.0.2", "", "")
	assert.Equal(t, int64(1), recorder.Dropped())

	recorder.Start()
	recorder.Stop()

	var eventCount int64
	require.NoError(t, db.Model(&model.ClickEvent{}).Where("short_url_id = ?", url.ID).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount, "只有入队成功的事件会落盘")

	got, err := urlStore.Lookup(context.Background(), "full1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClickCount, "被丢弃的事件不递增计数，保持与事件日志一致")
}

func TestRecorder_EmptyRefererBecomesDirect(t *testing.T) {
	db, urlStore, recorder := setupRecorderTest(t, 16)

	url := model.ShortURL{ShortCode: "noref123", OriginalURL: "https://a.example.com", IsActive: true}
	require.NoError(t, urlStore.Insert(context.Background(), &url))

	recorder.Start()
	recorder.Append(url.ID, time.Now(), "10.0.0.1", "test-agent", "")
	recorder.Stop()

	var ev model.ClickEvent
	require.NoError(t, db.Where("short_url_id = ?", url.ID).First(&ev).Error)
	assert.Equal(t, "direct", ev.Referer)
}

func TestRecorder_StopDrainsQueue(t *testing.T) {
	db, urlStore, recorder := setupRecorderTest(t, 64)

	url := model.ShortURL{ShortCode: "drain123", OriginalURL: "https://a.example.com", IsActive: true}
	require.NoError(t, urlStore.Insert(context.Background(), &url))

	// 先堆满队列再启动，Stop 必须等剩余事件处理完
	for i := 0; i < 10; i++ {
		recorder.Append(url.ID, time.Now(), "10.0.0.1", "", "https://a.com")
	}
	recorder.Start()
	recorder.Stop()

	var eventCount int64
	require.NoError(t, db.Model(&model.ClickEvent{}).Where("short_url_id = ?", url.ID).Count(&eventCount).Error)
	assert.Equal(t, int64(10), eventCount)
}
