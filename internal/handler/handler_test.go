package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shortlink-platform/internal/analytics"
	"shortlink-platform/internal/clicks"
	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/resolver"
	"shortlink-platform/internal/shortcode"
	"shortlink-platform/internal/store"
	auth "shortlink-platform/pkg/jwt"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	store    *store.URLStore
	recorder *clicks.Recorder
	tokens   *auth.TokenManager
}

// setupTest 为集成测试初始化一个干净的环境
// 测试不依赖 Redis，跳转全部走数据库路径
func setupTest(t *testing.T, generator *shortcode.Generator) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "无法连接到内存数据库")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.ShortURL{}, &model.ClickEvent{}), "数据库迁移失败")

	logger := zap.NewNop().Sugar()
	urlStore := store.NewURLStore(db, logger)
	aggregator := analytics.NewAggregator(db, logger)
	recorder := clicks.NewRecorder(db, urlStore, 64, logger)
	recorder.Start()
	urlResolver := resolver.NewResolver(urlStore, generator, recorder, logger)

	tokenManager := auth.NewManager("test-secret", "test", 24)
	urlHandler := NewShortURLHandler(urlResolver, urlStore, aggregator, recorder, nil, "http://sl.test", 0)

	requireIdentity := middleware.RequireIdentity(tokenManager)
	optionalIdentity := middleware.OptionalIdentity(tokenManager)

	router := gin.New()
	router.GET("/health", urlHandler.HealthCheck)
	router.GET("/:code", urlHandler.Redirect)
	api := router.Group("/api")
	{
		api.POST("/shorten", optionalIdentity, urlHandler.CreateShortURL)
		api.GET("/links/:code", optionalIdentity, urlHandler.GetURLInfo)
		api.DELETE("/links/:code", optionalIdentity, urlHandler.DeactivateURL)
		api.GET("/links", requireIdentity, urlHandler.ListURLs)
		api.GET("/links/:code/analytics", requireIdentity, urlHandler.GetAnalyticsSummary)
		api.GET("/links/:code/clicks", requireIdentity, urlHandler.GetRecentClicks)
	}

	t.Cleanup(func() {
		recorder.Stop()
		sqlDB.Close()
	})

	return &testEnv{router: router, db: db, store: urlStore, recorder: recorder, tokens: tokenManager}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.RemoteAddr = "10.0.0.1:51234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) create(t *testing.T, token string, body CreateShortURLRequest) ShortURLResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/shorten", token, body)
	require.Equal(t, http.StatusCreated, w.Code, "创建短链接应返回 201: %s", w.Body.String())

	var resp ShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateAndRedirect_Integration(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	originalURL := "https://www.example.com/very/long/path/that/needs/shortening"
	resp := env.create(t, "", CreateShortURLRequest{OriginalURL: originalURL})

	assert.Len(t, resp.ShortCode, 8)
	assert.Equal(t, "http://sl.test/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, originalURL, resp.OriginalURL)
	assert.True(t, resp.IsActive)

	w := env.do(t, http.MethodGet, "/"+resp.ShortCode, "", nil)
	assert.Equal(t, http.StatusFound, w.Code, "访问短码应返回 302")
	assert.Equal(t, originalURL, w.Header().Get("Location"))

	// 等事件落盘后，信息接口应能看到计数
	env.recorder.Stop()
	w = env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info ShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, int64(1), info.ClickCount)
}

func TestCreate_CustomCodeConflict(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	resp := env.create(t, "", CreateShortURLRequest{OriginalURL: "https://example.com/a", CustomCode: "promo"})
	assert.Equal(t, "promo", resp.ShortCode)

	w := env.do(t, http.MethodPost, "/api/shorten", "", CreateShortURLRequest{OriginalURL: "https://example.com/b", CustomCode: "promo"})
	assert.Equal(t, http.StatusConflict, w.Code, "重复的自定义短码应返回 409")
}

func TestCreate_Validation(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	days := 366
	cases := []CreateShortURLRequest{
		{OriginalURL: ""},
		{OriginalURL: "ftp://example.com/file"},
		{OriginalURL: "https://example.com", CustomCode: "ab"},
		{OriginalURL: "https://example.com", ExpiresInDays: &days},
	}
	for _, body := range cases {
		w := env.do(t, http.MethodPost, "/api/shorten", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "非法请求应返回 400: %+v", body)
	}
}

func TestCreate_CodeSpaceExhausted(t *testing.T) {
	// 码空间只有一个候选，第二次创建重试耗尽
	env := setupTest(t, shortcode.NewGeneratorWithAlphabet("a", 1))

	env.create(t, "", CreateShortURLRequest{OriginalURL: "https://example.com/a"})

	w := env.do(t, http.MethodPost, "/api/shorten", "", CreateShortURLRequest{OriginalURL: "https://example.com/b"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "码空间耗尽是服务端容量问题，应返回 503")
}

func TestRedirect_UnknownCode(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	w := env.do(t, http.MethodGet, "/missing1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeactivateFlow(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	resp := env.create(t, "", CreateShortURLRequest{OriginalURL: "https://example.com/a"})

	w := env.do(t, http.MethodDelete, "/api/links/"+resp.ShortCode, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// 停用后跳转返回 410，信息接口仍可查
	w = env.do(t, http.MethodGet, "/"+resp.ShortCode, "", nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w = env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info ShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.False(t, info.IsActive)

	// 重复停用是幂等的
	w = env.do(t, http.MethodDelete, "/api/links/"+resp.ShortCode, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeactivate_OwnershipEnforced(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	ownerToken, err := env.tokens.GenerateToken(7, "owner")
	require.NoError(t, err)
	strangerToken, err := env.tokens.GenerateToken(8, "stranger")
	require.NoError(t, err)

	resp := env.create(t, ownerToken, CreateShortURLRequest{OriginalURL: "https://example.com/a"})

	w := env.do(t, http.MethodDelete, "/api/links/"+resp.ShortCode, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "非所有者不能停用")

	w = env.do(t, http.MethodDelete, "/api/links/"+resp.ShortCode, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "匿名请求不能停用有主的链接")

	w = env.do(t, http.MethodDelete, "/api/links/"+resp.ShortCode, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRedirect_Expired(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, env.store.Insert(t.Context(), &model.ShortURL{
		ShortCode:   "expired1",
		OriginalURL: "https://example.com",
		IsActive:    true,
		ExpiresAt:   &past,
	}))

	w := env.do(t, http.MethodGet, "/expired1", "", nil)
	assert.Equal(t, http.StatusGone, w.Code, "过期链接应返回 410")
}

func TestListURLs(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	w := env.do(t, http.MethodGet, "/api/links", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "列表接口需要认证")

	ownerToken, err := env.tokens.GenerateToken(7, "owner")
	require.NoError(t, err)
	otherToken, err := env.tokens.GenerateToken(8, "other")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		env.create(t, ownerToken, CreateShortURLRequest{OriginalURL: fmt.Sprintf("https://example.com/%d", i)})
	}
	env.create(t, otherToken, CreateShortURLRequest{OriginalURL: "https://example.com/other"})

	w = env.do(t, http.MethodGet, "/api/links?page=1&page_size=2", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(3), list.Total, "只统计自己的链接")
	assert.Len(t, list.URLs, 2)
	assert.Equal(t, 2, list.TotalPages)

	w = env.do(t, http.MethodGet, "/api/links?page=0", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	ownerToken, err := env.tokens.GenerateToken(7, "owner")
	require.NoError(t, err)
	strangerToken, err := env.tokens.GenerateToken(8, "stranger")
	require.NoError(t, err)

	resp := env.create(t, ownerToken, CreateShortURLRequest{OriginalURL: "https://example.com/a/b"})

	// 3 次跳转：来源 a.com、a.com、无
	for _, referer := range []string{"https://a.com", "https://a.com", ""} {
		req, err := http.NewRequest(http.MethodGet, "/"+resp.ShortCode, nil)
		require.NoError(t, err)
		req.RemoteAddr = "10.0.0.1:51234"
		if referer != "" {
			req.Header.Set("Referer", referer)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusFound, w.Code)
	}
	env.recorder.Stop()

	// 未认证与非所有者都不能看统计
	w := env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode+"/analytics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode+"/analytics", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode+"/analytics", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary analytics.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(3), summary.TotalClicks)
	assert.Equal(t, int64(1), summary.UniqueVisitors)
	require.Len(t, summary.TopReferers, 2)
	assert.Equal(t, analytics.RefererCount{Referer: "https://a.com", Count: 2}, summary.TopReferers[0])
	assert.Equal(t, analytics.RefererCount{Referer: "direct", Count: 1}, summary.TopReferers[1])

	w = env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode+"/clicks?limit=2", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []model.ClickEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 2)
}

func TestAnalytics_UnknownAndAnonymous(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	ownerToken, err := env.tokens.GenerateToken(7, "owner")
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/links/missing1/analytics", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 匿名创建的链接没有所有者，统计接口一律拒绝
	resp := env.create(t, "", CreateShortURLRequest{OriginalURL: "https://example.com/a"})
	w = env.do(t, http.MethodGet, "/api/links/"+resp.ShortCode+"/analytics", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthCheck(t *testing.T) {
	env := setupTest(t, shortcode.NewGenerator(0))

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
