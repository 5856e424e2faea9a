package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shortlink-platform/internal/analytics"
	"shortlink-platform/internal/clicks"
	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/resolver"
	"shortlink-platform/internal/store"
)

// ShortURLHandler 处理器
type ShortURLHandler struct {
	resolver   *resolver.Resolver
	store      *store.URLStore
	aggregator *analytics.Aggregator
	recorder   *clicks.Recorder
	redis      *redis.Client
	baseURL    string
	cacheTTL   time.Duration
}

// NewShortURLHandler 创建处理器实例
func NewShortURLHandler(
	rs *resolver.Resolver,
	urlStore *store.URLStore,
	aggregator *analytics.Aggregator,
	recorder *clicks.Recorder,
	redisClient *redis.Client,
	baseURL string,
	cacheTTL time.Duration,
) *ShortURLHandler {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &ShortURLHandler{
		resolver:   rs,
		store:      urlStore,
		aggregator: aggregator,
		recorder:   recorder,
		redis:      redisClient,
		baseURL:    baseURL,
		cacheTTL:   cacheTTL,
	}
}

// HealthCheck 健康检查
func (h *ShortURLHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortURLRequest 创建短链接的请求体
type CreateShortURLRequest struct {
	OriginalURL   string `json:"original_url" binding:"required" example:"https://example.com/a/b"`
	CustomCode    string `json:"custom_code" example:"promo"`
	ExpiresInDays *int   `json:"expires_in_days" example:"30"`
}

// ShortURLResponse 短链接的响应体
type ShortURLResponse struct {
	ID          uint       `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	ShortURL    string     `json:"short_url" example:"http://localhost:8080/xY3k2mNp"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
}

// ListResponse 分页列表的响应体
type ListResponse struct {
	URLs       []ShortURLResponse `json:"urls"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

func (h *ShortURLHandler) toResponse(url *model.ShortURL) ShortURLResponse {
	return ShortURLResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		ShortURL:    h.baseURL + "/" + url.ShortCode,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
		IsActive:    url.IsActive,
		ClickCount:  url.ClickCount,
	}
}

// CreateShortURL godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建短链接，支持自定义短码和过期天数；匿名请求也允许创建
// @Tags ShortURL
// @Accept  json
// @Produce  json
// @Param   url  body   CreateShortURLRequest  true  "创建参数"
// @Success 201 {object} ShortURLResponse "成功响应"
// @Failure 400 {object} gin.H "参数无效"
// @Failure 409 {object} gin.H "自定义短码已被占用"
// @Failure 503 {object} gin.H "短码生成重试耗尽"
// @Router /api/shorten [post]
func (h *ShortURLHandler) CreateShortURL(c *gin.Context) {
	var req CreateShortURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	ownerID := middleware.OwnerID(c)
	url, err := h.resolver.Create(c.Request.Context(), req.OriginalURL, req.CustomCode, req.ExpiresInDays, ownerID)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(url))
}

func (h *ShortURLHandler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, resolver.ErrInvalidURL),
		errors.Is(err, resolver.ErrInvalidCustomCode),
		errors.Is(err, resolver.ErrInvalidExpiry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCodeConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "短码已被占用"})
	case errors.Is(err, resolver.ErrCodeSpaceExhausted):
		// 容量问题，不能和客户端参数错误混为一谈
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "短码生成失败，请稍后重试"})
	default:
		zap.S().Errorw("创建短链接失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建短链接失败"})
	}
}

// cacheEntry 跳转缓存里的条目
// 除了目标地址还要带上记录 ID，缓存命中时点击事件才有归属
type cacheEntry struct {
	ID          uint   `json:"id"`
	OriginalURL string `json:"original_url"`
}

// Redirect godoc
// @Summary 短码跳转
// @Description 按短码 302 跳转到原始链接，并异步记录点击事件
// @Tags ShortURL
// @Param   code  path   string  true  "短码"
// @Success 302
// @Failure 404 {object} gin.H "短码不存在"
// @Failure 410 {object} gin.H "短链接已停用或过期"
// @Router /{code} [get]
func (h *ShortURLHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	if entry, ok := h.cacheGet(code); ok {
		h.recorder.Append(entry.ID, time.Now(), c.ClientIP(), c.Request.UserAgent(), c.Request.Referer())
		c.Redirect(http.StatusFound, entry.OriginalURL)
		return
	}

	link, err := h.resolver.Resolve(c.Request.Context(), code, c.ClientIP(), c.Request.UserAgent(), c.Request.Referer())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "短链接不存在"})
		case errors.Is(err, resolver.ErrGone), errors.Is(err, resolver.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"error": "短链接已停用或过期"})
		default:
			zap.S().Errorw("短码解析失败", "code", code, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
		return
	}

	h.cacheSet(code, link)
	c.Redirect(http.StatusFound, link.OriginalURL)
}

// cacheGet 从 Redis 取跳转缓存，未启用缓存或未命中时返回 false
func (h *ShortURLHandler) cacheGet(code string) (*cacheEntry, bool) {
	if h.redis == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	val, err := h.redis.Get(ctx, "shorturl:"+code).Result()
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// cacheSet 写入跳转缓存
// TTL 被钳制到过期时间之前，缓存条目绝不能比记录本身活得更久；
// 停用走 cacheDel，所以缓存命中的条目一定仍然可跳转
func (h *ShortURLHandler) cacheSet(code string, link *model.ShortURL) {
	if h.redis == nil {
		return
	}
	ttl := h.cacheTTL
	if link.ExpiresAt != nil {
		remaining := time.Until(*link.ExpiresAt)
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	entry, err := json.Marshal(cacheEntry{ID: link.ID, OriginalURL: link.OriginalURL})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.redis.Set(ctx, "shorturl:"+code, entry, ttl)
}

func (h *ShortURLHandler) cacheDel(code string) {
	if h.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.redis.Del(ctx, "shorturl:"+code)
}

// GetURLInfo godoc
// @Summary 查询短链接信息
// @Description 返回短链接元数据但不跳转，已停用或过期的记录也能查到
// @Tags ShortURL
// @Produce  json
// @Param   code  path   string  true  "短码"
// @Success 200 {object} ShortURLResponse "成功响应"
// @Failure 404 {object} gin.H "短码不存在"
// @Router /api/links/{code} [get]
func (h *ShortURLHandler) GetURLInfo(c *gin.Context) {
	code := c.Param("code")
	url, err := h.store.Lookup(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "短链接不存在"})
			return
		}
		zap.S().Errorw("查询短链接失败", "code", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询短链接失败"})
		return
	}
	c.JSON(http.StatusOK, h.toResponse(url))
}

// ListURLs godoc
// @Summary 分页列出当前用户的短链接
// @Description 按创建时间倒序返回当前用户创建的短链接
// @Tags ShortURL
// @Security ApiKeyAuth
// @Produce  json
// @Param   page       query  int  false  "页码，默认 1"
// @Param   page_size  query  int  false  "每页条数，默认 20，最大 100"
// @Success 200 {object} ListResponse "成功响应"
// @Failure 400 {object} gin.H "分页参数无效"
// @Failure 401 {object} gin.H "未认证"
// @Router /api/links [get]
func (h *ShortURLHandler) ListURLs(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "页码必须大于 0"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "每页条数必须在 1-100 之间"})
		return
	}

	urls, total, err := h.store.List(c.Request.Context(), *ownerID, page, pageSize)
	if err != nil {
		zap.S().Errorw("获取链接列表失败", "owner_id", *ownerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取链接列表失败"})
		return
	}

	resp := ListResponse{
		URLs:     make([]ShortURLResponse, 0, len(urls)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	if total > 0 {
		resp.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	for i := range urls {
		resp.URLs = append(resp.URLs, h.toResponse(&urls[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// DeactivateURL godoc
// @Summary 停用短链接
// @Description 停用后不可跳转且不可恢复；重复停用是幂等的
// @Tags ShortURL
// @Param   code  path   string  true  "短码"
// @Success 204
// @Failure 403 {object} gin.H "无权操作"
// @Failure 404 {object} gin.H "短码不存在"
// @Router /api/links/{code} [delete]
func (h *ShortURLHandler) DeactivateURL(c *gin.Context) {
	code := c.Param("code")
	ownerID := middleware.OwnerID(c)

	if err := h.store.Deactivate(c.Request.Context(), code, ownerID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "短链接不存在"})
		case errors.Is(err, store.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "无权停用该短链接"})
		default:
			zap.S().Errorw("停用短链接失败", "code", code, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "停用短链接失败"})
		}
		return
	}

	h.cacheDel(code)
	c.Status(http.StatusNoContent)
}

// GetAnalyticsSummary godoc
// @Summary 查询短链接统计汇总
// @Description 返回总点击、独立访客、按日期/小时分布和来源 Top 10（UTC 分桶）
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   code  path   string  true  "短码"
// @Success 200 {object} analytics.Summary "成功响应"
// @Failure 401 {object} gin.H "未认证"
// @Failure 403 {object} gin.H "不是该链接的所有者"
// @Failure 404 {object} gin.H "短码不存在"
// @Router /api/links/{code}/analytics [get]
func (h *ShortURLHandler) GetAnalyticsSummary(c *gin.Context) {
	url, ok := h.ownedURL(c)
	if !ok {
		return
	}

	summary, err := h.aggregator.Summarize(c.Request.Context(), url.ID)
	if err != nil {
		zap.S().Errorw("统计汇总失败", "code", url.ShortCode, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计汇总失败"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetRecentClicks godoc
// @Summary 查询最近点击记录
// @Description 按时间倒序返回最近的点击事件，默认 50 条，最多 500 条
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   code   path   string  true   "短码"
// @Param   limit  query  int     false  "返回条数"
// @Success 200 {array} model.ClickEvent "成功响应"
// @Failure 401 {object} gin.H "未认证"
// @Failure 403 {object} gin.H "不是该链接的所有者"
// @Failure 404 {object} gin.H "短码不存在"
// @Router /api/links/{code}/clicks [get]
func (h *ShortURLHandler) GetRecentClicks(c *gin.Context) {
	url, ok := h.ownedURL(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.aggregator.RecentClicks(c.Request.Context(), url.ID, limit)
	if err != nil {
		zap.S().Errorw("查询点击记录失败", "code", url.ShortCode, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询点击记录失败"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// ownedURL 取出路径上的短链接并校验当前用户是所有者
// 匿名创建的链接没有所有者，任何人都看不到它的统计
func (h *ShortURLHandler) ownedURL(c *gin.Context) (*model.ShortURL, bool) {
	ownerID := middleware.OwnerID(c)
	if ownerID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return nil, false
	}

	code := c.Param("code")
	url, err := h.store.Lookup(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "短链接不存在"})
			return nil, false
		}
		zap.S().Errorw("查询短链接失败", "code", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询短链接失败"})
		return nil, false
	}

	if url.OwnerID == nil || *url.OwnerID != *ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "无权查看该短链接的统计"})
		return nil, false
	}
	return url, true
}
