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
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appledger "github.com/finbooks/backend/internal/application/ledger"
	"github.com/finbooks/backend/internal/infrastructure/event"
	"github.com/finbooks/backend/internal/infrastructure/persistence"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
)

var testTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func setupLedgerTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AccountModel{}, &models.EntryModel{}))

	accountRepo := persistence.NewGormAccountRepository(db)
	entryRepo := persistence.NewGormEntryRepository(db)
	bus := event.NewInMemoryEventBus(zap.NewNop())

	accountService := appledger.NewAccountService(accountRepo, entryRepo, bus)
	entryService := appledger.NewEntryService(entryRepo, accountRepo, bus)
	h := NewLedgerHandler(accountService, entryService)

	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", testTenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response["success"].(bool), "expected success response, got: %s", w.Body.String())
	return response["data"].(map[string]any)
}

func decodeDataList(t *testing.T, w *httptest.ResponseRecorder) []any {
	t.Helper()

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response["success"].(bool), "expected success response, got: %s", w.Body.String())
	return response["data"].([]any)
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.False(t, response["success"].(bool))
	return response["error"].(map[string]any)["code"].(string)
}

func createTestAccount(t *testing.T, router *gin.Engine, openingBalance string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/accounts", gin.H{
		"name":            "Conta Corrente",
		"institution":     "Banco Azul",
		"opening_balance": openingBalance,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData(t, w)["id"].(string)
}

func createTestEntry(t *testing.T, router *gin.Engine, accountID, direction, amount string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/entries", gin.H{
		"description": "Service invoice",
		"direction":   direction,
		"amount":      amount,
		"due_date":    time.Now().Format(time.RFC3339),
		"account_id":  accountID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData(t, w)["id"].(string)
}

func TestLedgerHandler_CreateAccount(t *testing.T) {
	t.Run("should create account", func(t *testing.T) {
		router := setupLedgerTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/api/v1/accounts", gin.H{
			"name":            "Conta Corrente",
			"institution":     "Banco Azul",
			"opening_balance": "1000.00",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "Conta Corrente", data["name"])
		assert.Equal(t, true, data["active"])
	})

	t.Run("should reject missing name", func(t *testing.T) {
		router := setupLedgerTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/api/v1/accounts", gin.H{
			"institution": "Banco Azul",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should return not found for unknown account", func(t *testing.T) {
		router := setupLedgerTestRouter(t)

		w := doJSON(t, router, http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decodeErrorCode(t, w))
	})
}

func TestLedgerHandler_EffectuateEntry(t *testing.T) {
	t.Run("should effectuate entry and apply balance effect", func(t *testing.T) {
		router := setupLedgerTestRouter(t)
		accountID := createTestAccount(t, router, "1000.00")
		entryID := createTestEntry(t, router, accountID, "INFLOW", "250.00")

		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeData(t, w)
		assert.Equal(t, "EFFECTUATED", data["status"])
		assert.NotNil(t, data["effectuated_at"])

		w = doJSON(t, router, http.MethodGet, "/api/v1/accounts/"+accountID, nil)
		assert.Equal(t, "1250", decodeData(t, w)["current_balance"])
	})

	t.Run("should reject double effectuation", func(t *testing.T) {
		router := setupLedgerTestRouter(t)
		accountID := createTestAccount(t, router, "1000.00")
		entryID := createTestEntry(t, router, accountID, "INFLOW", "250.00")

		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ALREADY_EFFECTUATED", decodeErrorCode(t, w))
	})

	t.Run("should reject outflow exceeding balance", func(t *testing.T) {
		router := setupLedgerTestRouter(t)
		accountID := createTestAccount(t, router, "100.00")
		entryID := createTestEntry(t, router, accountID, "OUTFLOW", "500.00")

		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INSUFFICIENT_FUNDS", decodeErrorCode(t, w))

		// The entry must stay pending and the balance untouched
		w = doJSON(t, router, http.MethodGet, "/api/v1/entries/"+entryID, nil)
		assert.Equal(t, "PENDING", decodeData(t, w)["status"])
	})
}

func TestLedgerHandler_CancelEntry(t *testing.T) {
	t.Run("should reverse balance effect of effectuated entry", func(t *testing.T) {
		router := setupLedgerTestRouter(t)
		accountID := createTestAccount(t, router, "1000.00")
		entryID := createTestEntry(t, router, accountID, "INFLOW", "250.00")

		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/cancel", entryID), nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "CANCELLED", decodeData(t, w)["status"])

		w = doJSON(t, router, http.MethodGet, "/api/v1/accounts/"+accountID, nil)
		assert.Equal(t, "1000", decodeData(t, w)["current_balance"])
	})
}

func TestLedgerHandler_VerifyBalance(t *testing.T) {
	t.Run("should report consistent balance", func(t *testing.T) {
		router := setupLedgerTestRouter(t)
		accountID := createTestAccount(t, router, "1000.00")
		entryID := createTestEntry(t, router, accountID, "INFLOW", "250.00")

		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/verify-balance", accountID), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, true, data["consistent"])
		assert.Equal(t, "1250", data["expected_balance"])
	})
}

func TestLedgerHandler_ListEntries(t *testing.T) {
	t.Run("should filter entries by status", func(t *testing.T) {
		router := setupLedgerTestRouter(t)
		accountID := createTestAccount(t, router, "1000.00")
		entryID := createTestEntry(t, router, accountID, "INFLOW", "100.00")
		createTestEntry(t, router, accountID, "INFLOW", "200.00")

		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/entries/%s/effectuate", entryID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/entries?status=PENDING", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response["data"].([]any), 1)
		assert.Equal(t, float64(1), response["meta"].(map[string]any)["total"])
	})
}
