package resolver

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"shortlink-platform/internal/clicks"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/shortcode"
	"shortlink-platform/internal/store"
)

const (
	// MaxURLLength 原始链接的最大长度
	MaxURLLength = 2048
	// MaxExpiresInDays 过期天数上限
	MaxExpiresInDays = 365
	// MaxGenerateRetries 随机短码冲突时的最大重试次数
	// 8 位短码下碰撞概率极低，连续 5 次冲突基本等价于码空间耗尽
	MaxGenerateRetries = 5
)

var (
	// ErrInvalidURL 原始链接为空、格式非法或超长
	ErrInvalidURL = errors.New("无效的原始链接")
	// ErrInvalidCustomCode 自定义短码不满足 4-20 位字母数字
	ErrInvalidCustomCode = errors.New("自定义短码必须是 4-20 位字母或数字")
	// ErrInvalidExpiry 过期天数不在 1-365 范围内
	ErrInvalidExpiry = errors.New("过期天数必须在 1-365 之间")
	// ErrCodeSpaceExhausted 随机短码重试耗尽，属于服务端容量问题而非请求问题
	ErrCodeSpaceExhausted = errors.New("短码生成重试次数已耗尽")
	// ErrGone 短链接已被停用
	ErrGone = errors.New("短链接已被停用")
	// ErrExpired 短链接已过期
	ErrExpired = errors.New("短链接已过期")
)

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,20}$`)

// Resolver 是协调核心：
// 创建时编排生成器与存储（随机短码冲突重试），
// 跳转时编排存储与点击记录器（异步记录，不在响应关键路径上）
type Resolver struct {
	store     *store.URLStore
	generator *shortcode.Generator
	recorder  *clicks.Recorder
	logger    *zap.SugaredLogger
}

// NewResolver 创建协调器实例
func NewResolver(urlStore *store.URLStore, generator *shortcode.Generator, recorder *clicks.Recorder, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{
		store:     urlStore,
		generator: generator,
		recorder:  recorder,
		logger:    logger.Named("resolver"),
	}
}

// Create 创建短链接
// customCode 非空时只尝试一次插入，冲突直接返回 store.ErrCodeConflict；
// 否则循环取随机候选插入，冲突换候选重试，超过 MaxGenerateRetries
// 次后返回 ErrCodeSpaceExhausted。校验失败的请求不会触达存储层
func (r *Resolver) Create(ctx context.Context, originalURL, customCode string, expiresInDays *int, ownerID *uint) (*model.ShortURL, error) {
	normalized, err := ValidateURL(originalURL)
	if err != nil {
		return nil, err
	}

	if expiresInDays != nil && (*expiresInDays < 1 || *expiresInDays > MaxExpiresInDays) {
		return nil, ErrInvalidExpiry
	}
	var expiresAt *time.Time
	if expiresInDays != nil {
		t := time.Now().AddDate(0, 0, *expiresInDays)
		expiresAt = &t
	}

	if customCode != "" {
		if !customCodePattern.MatchString(customCode) {
			return nil, ErrInvalidCustomCode
		}
		return r.insert(ctx, customCode, normalized, expiresAt, ownerID)
	}

	for attempt := 0; attempt < MaxGenerateRetries; attempt++ {
		candidate, err := r.generator.Generate()
		if err != nil {
			return nil, err
		}
		created, err := r.insert(ctx, candidate, normalized, expiresAt, ownerID)
		if errors.Is(err, store.ErrCodeConflict) {
			r.logger.Warnw("随机短码冲突，换候选重试", "candidate", candidate, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return created, nil
	}

	r.logger.Errorw("随机短码重试耗尽", "retries", MaxGenerateRetries, "code_length", r.generator.Length())
	return nil, ErrCodeSpaceExhausted
}

func (r *Resolver) insert(ctx context.Context, code, originalURL string, expiresAt *time.Time, ownerID *uint) (*model.ShortURL, error) {
	url := model.ShortURL{
		ShortCode:   code,
		OriginalURL: originalURL,
		OwnerID:     ownerID,
		IsActive:    true,
		ExpiresAt:   expiresAt,
	}
	if err := r.store.Insert(ctx, &url); err != nil {
		return nil, err
	}
	return &url, nil
}

// Resolve 跳转路径的状态机，逐级判定：
//  1. 查不到短码 -> store.ErrNotFound
//  2. 已停用     -> ErrGone
//  3. 已过期     -> ErrExpired
//  4. 可跳转     -> 异步追加点击事件后返回记录
//
// 点击记录是副作用而不是响应前置条件：Append 不阻塞、不失败，
// 请求方中途取消也不会撤销已触发的记录
func (r *Resolver) Resolve(ctx context.Context, shortCode, ipAddress, userAgent, referer string) (*model.ShortURL, error) {
	link, err := r.store.Lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !link.IsActive {
		return nil, ErrGone
	}
	if link.ExpiresAt != nil && !link.ExpiresAt.After(now) {
		return nil, ErrExpired
	}

	r.recorder.Append(link.ID, now, ipAddress, userAgent, referer)
	return link, nil
}

// ValidateURL 校验并规范化原始链接
// 没写协议的补上 https://（用户经常直接粘贴裸域名）
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if len(raw) > MaxURLLength {
		return "", ErrInvalidURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	host := parsed.Hostname()
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || host == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(host, ".") && host != "localhost" {
		return "", ErrInvalidURL
	}
	return raw, nil
}
