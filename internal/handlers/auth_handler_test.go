package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/admin"
	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/identity"
	"github.com/shpluspower/backend/internal/ledger"
	"github.com/shpluspower/backend/internal/middleware"
	"github.com/shpluspower/backend/internal/referral"
	"github.com/shpluspower/backend/internal/sink"
	"github.com/shpluspower/backend/internal/store"
	"github.com/shpluspower/backend/internal/syncer"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWT:   config.JWTConfig{Expiration: 24},
		Admin: config.AdminConfig{Password: "admin-secret"},
		Ledger: config.LedgerConfig{
			WelcomeBonus:        600,
			ReferralSignupBonus: 600,
			Level1DepositRate:   0.20,
			Level2DepositRate:   0.10,
			MinDeposit:          2500,
			MinWithdrawal:       600,
			WithdrawalFeeRate:   0.05,
			WithdrawOpenHour:    10,
			WithdrawCloseHour:   19,
		},
	}

	kv := store.NewMemoryStore()
	repo := store.NewRepository(kv)
	clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	ids := identity.New()
	notifier := sink.NewNotifier(sink.NopSink{}, 0, 0)
	actLog := activity.NewLog(repo, ids, clk)
	referralEngine := referral.NewEngine(repo, actLog, ids, clk, cfg.Ledger, notifier)
	ledgerEngine := ledger.NewEngine(repo, actLog, ids, clk, cfg.Ledger, notifier)
	workflow := admin.NewWorkflow(repo, actLog, referralEngine, clk)
	coordinator := syncer.NewCoordinator(kv, repo, syncer.LWWReconciler{}, notifier, clk, "device-test")

	authHandler := NewAuthHandler(ledgerEngine, referralEngine, coordinator, cfg)
	ledgerHandler := NewLedgerHandler(ledgerEngine, coordinator)
	adminHandler := NewAdminHandler(workflow, actLog, coordinator)

	router := gin.New()
	auth := router.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/admin/login", authHandler.AdminLogin)
	}
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/dashboard", ledgerHandler.Dashboard)
		protected.POST("/deposits", ledgerHandler.Deposit)
	}
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.GET("/stats", adminHandler.Stats)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSignupAndLoginFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":     "Ada Obi",
		"email":    "ada@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.NotEmpty(t, created["referral_code"])
	assert.Len(t, created["account_number"], 10)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ada@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode(t, w)
	token, _ := session["token"].(string)
	require.NotEmpty(t, token)
	assert.InDelta(t, 600, session["balance"].(float64), 0.001)

	w = doJSON(t, router, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dashboard := decode(t, w)
	assert.Equal(t, "Ada Obi", dashboard["name"])
}

func TestSignupValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":     "Ada Obi",
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":     "Ada Obi",
		"email":    "ada@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	router := newTestRouter(t)

	body := gin.H{"name": "Ada Obi", "email": "ada@example.com", "password": "password123"}
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/auth/signup", "", body).Code)
	assert.Equal(t, http.StatusConflict, doJSON(t, router, http.MethodPost, "/api/auth/signup", "", body).Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Ada Obi", "email": "ada@example.com", "password": "password123",
	}).Code)

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDepositBelowMinimumRejected(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Ada Obi", "email": "ada@example.com", "password": "password123",
	}).Code)
	session := decode(t, doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "password123",
	}))
	token := session["token"].(string)

	w := doJSON(t, router, http.MethodPost, "/api/deposits", token, gin.H{
		"amount": 1000, "method": "bank transfer",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/deposits", token, gin.H{
		"amount": 5000, "method": "bank transfer",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAdminLoginAndStats(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/admin/login", "", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/admin/login", "", gin.H{"password": "admin-secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)

	w = doJSON(t, router, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode(t, w)
	assert.EqualValues(t, 0, stats["total_users"])
}

func TestAdminRoutesRejectUserToken(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Ada Obi", "email": "ada@example.com", "password": "password123",
	}).Code)
	session := decode(t, doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "password123",
	}))
	token := session["token"].(string)

	w := doJSON(t, router, http.MethodGet, "/api/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
