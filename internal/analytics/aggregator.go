package analytics

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
)

const (
	// TopRefererLimit 是来源统计返回的最大条数
	TopRefererLimit = 10
	// DefaultRecentLimit 是最近点击列表的默认条数
	DefaultRecentLimit = 50
	// MaxRecentLimit 是最近点击列表的最大条数
	MaxRecentLimit = 500
)

// RefererCount 单个来源的点击数
type RefererCount struct {
	Referer string `json:"referer" example:"https://weibo.com"`
	Count   int64  `json:"count" example:"42"`
}

// Summary 短链接的统计汇总
// 所有按日期/小时的分桶一律使用 UTC，这是固定契约而不是环境默认值
type Summary struct {
	TotalClicks    int64            `json:"total_clicks"`
	UniqueVisitors int64            `json:"unique_visitors"`
	ClicksByDate   map[string]int64 `json:"clicks_by_date"` // "2025-08-31" -> 次数
	ClicksByHour   map[string]int64 `json:"clicks_by_hour"` // "00:00".."23:00" -> 次数，跨所有日期
	TopReferers    []RefererCount   `json:"top_referers"`
}

// Aggregator 按需从点击事件日志计算统计汇总
// 事件日志是统计的权威来源；汇总是读取时刻可见事件的一个快照，
// 与持续追加的写入并发运行，调用方需容忍轻微滞后
type Aggregator struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewAggregator 创建统计聚合器
func NewAggregator(db *gorm.DB, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{db: db, logger: logger.Named("analytics")}
}

// Summarize 扫描某个短链接的全部点击事件并分组汇总
// 聚合与事件顺序无关：并发追加的相对次序不影响结果
func (a *Aggregator) Summarize(ctx context.Context, shortURLID uint) (*Summary, error) {
	var events []model.ClickEvent
	err := a.db.WithContext(ctx).
		Where("short_url_id = ?", shortURLID).
		Order("clicked_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ClicksByDate: make(map[string]int64),
		ClicksByHour: make(map[string]int64),
		TopReferers:  []RefererCount{},
	}

	uniqueIPs := make(map[string]struct{})
	refererCounts := make(map[string]int64)
	refererFirstSeen := make(map[string]int)

	for i, ev := range events {
		summary.TotalClicks++

		// 按 UTC 分桶，避免分桶结果随服务器时区漂移
		utc := ev.ClickedAt.UTC()
		summary.ClicksByDate[utc.Format("2006-01-02")]++
		summary.ClicksByHour[fmt.Sprintf("%02d:00", utc.Hour())]++

		// 缺失 IP 的事件不参与独立访客统计，也不算作同一个访客
		if ev.IPAddress != "" {
			uniqueIPs[ev.IPAddress] = struct{}{}
		}

		referer := ev.Referer
		if referer == "" {
			referer = "direct"
		}
		if _, seen := refererCounts[referer]; !seen {
			refererFirstSeen[referer] = i
		}
		refererCounts[referer]++
	}

	summary.UniqueVisitors = int64(len(uniqueIPs))

	for referer, count := range refererCounts {
		summary.TopReferers = append(summary.TopReferers, RefererCount{Referer: referer, Count: count})
	}
	// 按点击数倒序，点击数相同时先出现的来源排前面
	sort.SliceStable(summary.TopReferers, func(i, j int) bool {
		if summary.TopReferers[i].Count != summary.TopReferers[j].Count {
			return summary.TopReferers[i].Count > summary.TopReferers[j].Count
		}
		return refererFirstSeen[summary.TopReferers[i].Referer] < refererFirstSeen[summary.TopReferers[j].Referer]
	})
	if len(summary.TopReferers) > TopRefererLimit {
		summary.TopReferers = summary.TopReferers[:TopRefererLimit]
	}

	return summary, nil
}

// RecentClicks 返回最近的点击事件，最新的排在最前面
// limit 超出 [1, MaxRecentLimit] 时回退到默认值
func (a *Aggregator) RecentClicks(ctx context.Context, shortURLID uint, limit int) ([]model.ClickEvent, error) {
	if limit < 1 || limit > MaxRecentLimit {
		limit = DefaultRecentLimit
	}

	var events []model.ClickEvent
	err := a.db.WithContext(ctx).
		Where("short_url_id = ?", shortURLID).
		Order("clicked_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
