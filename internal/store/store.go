package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
)

var (
	// ErrNotFound 短码不存在
	ErrNotFound = errors.New("短链接不存在")
	// ErrCodeConflict 短码已被占用（唯一索引冲突）
	ErrCodeConflict = errors.New("短码已被占用")
	// ErrForbidden 操作者不是短链接的所有者
	ErrForbidden = errors.New("无权操作该短链接")
)

// URLStore 负责短链接记录的持久化
// 唯一性约束由数据库的唯一索引保证，而不是先查后写
type URLStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewURLStore 创建存储实例
func NewURLStore(db *gorm.DB, logger *zap.SugaredLogger) *URLStore {
	return &URLStore{db: db, logger: logger.Named("url_store")}
}

// Insert 原子插入一条短链接记录
// 与并发创建者竞争同一短码时，数据库唯一索引保证只有一方成功，
// 失败方收到 ErrCodeConflict（依赖 gorm 的 TranslateError 把驱动错误
// 翻译成 gorm.ErrDuplicatedKey）
func (s *URLStore) Insert(ctx context.Context, url *model.ShortURL) error {
	if err := s.db.WithContext(ctx).Create(url).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCodeConflict
		}
		return err
	}
	return nil
}

// Lookup 按短码查找记录，包含已停用和已过期的记录
// 可跳转性由调用方通过 Resolvable 判断
func (s *URLStore) Lookup(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	var url model.ShortURL
	err := s.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&url).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &url, nil
}

// Deactivate 停用短链接，幂等：重复停用同样返回成功
// ownerID 非空时校验所有权；匿名创建的链接不做所有权校验
func (s *URLStore) Deactivate(ctx context.Context, shortCode string, ownerID *uint) error {
	url, err := s.Lookup(ctx, shortCode)
	if err != nil {
		return err
	}

	if url.OwnerID != nil {
		if ownerID == nil || *url.OwnerID != *ownerID {
			return ErrForbidden
		}
	}

	if !url.IsActive {
		return nil
	}

	return s.db.WithContext(ctx).
		Model(&model.ShortURL{}).
		Where("short_code = ?", shortCode).
		Update("is_active", false).Error
}

// IncrementClickCount 原子递增点击计数
// click_count 只是快速路径缓存，点击事件日志才是统计的权威来源；
// 计数必须在数据库侧完成，应用层读改写会在并发下丢失更新
func (s *URLStore) IncrementClickCount(ctx context.Context, shortURLID uint) error {
	return s.db.WithContext(ctx).
		Model(&model.ShortURL{}).
		Where("id = ?", shortURLID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1)).Error
}

// List 分页返回某个所有者的短链接，按创建时间倒序
// 返回值第二项是总记录数
func (s *URLStore) List(ctx context.Context, ownerID uint, page, pageSize int) ([]model.ShortURL, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.ShortURL{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var urls []model.ShortURL
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&urls).Error
	if err != nil {
		return nil, 0, err
	}
	return urls, total, nil
}
