package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/givebridge/messaging/internal/auth"
	"github.com/givebridge/messaging/internal/database"
	"github.com/givebridge/messaging/internal/models"
)

func setupAuthTest(t *testing.T) (*gin.Engine, *MockDB) {
	gin.SetMode(gin.TestMode)
	auth.InitJWTKey([]byte("auth-test-secret"))

	router := gin.New()
	mockDB := new(MockDB)
	handler := NewAuthHandler(mockDB)

	router.POST("/api/auth/register", handler.Register)
	router.POST("/api/auth/login", handler.Login)

	return router, mockDB
}

func TestRegister(t *testing.T) {
	router, mockDB := setupAuthTest(t)

	t.Run("Successful registration", func(t *testing.T) {
		user := &models.User{
			ID:        1,
			Name:      "Dana",
			Email:     "dana@example.com",
			Role:      models.RoleDonor,
			CreatedAt: time.Now().UTC(),
		}

		mockDB.On("CreateUser", "Dana", "dana@example.com", mock.AnythingOfType("string"), models.RoleDonor).
			Return(user, nil).Once()

		body, _ := json.Marshal(map[string]string{
			"name":     "Dana",
			"email":    "dana@example.com",
			"password": "secret123",
			"role":     "donor",
		})
		req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response models.UserResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(1), response.ID)
		assert.Equal(t, models.RoleDonor, response.Role)
		assert.NotContains(t, w.Body.String(), "password")

		mockDB.AssertExpectations(t)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		mockDB.On("CreateUser", "Dana", "dana@example.com", mock.AnythingOfType("string"), models.RoleDonor).
			Return(nil, database.ErrUserAlreadyExists).Once()

		body, _ := json.Marshal(map[string]string{
			"name":     "Dana",
			"email":    "dana@example.com",
			"password": "secret123",
			"role":     "donor",
		})
		req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockDB.AssertExpectations(t)
	})

	t.Run("Invalid role", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"name":     "Dana",
			"email":    "dana@example.com",
			"password": "secret123",
			"role":     "admin",
		})
		req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	router, mockDB := setupAuthTest(t)

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	user := &models.User{
		ID:           1,
		Name:         "Dana",
		Email:        "dana@example.com",
		PasswordHash: hash,
		Role:         models.RoleDonor,
		CreatedAt:    time.Now().UTC(),
	}

	t.Run("Successful login", func(t *testing.T) {
		mockDB.On("GetUserByEmail", "dana@example.com").Return(user, nil).Once()

		body, _ := json.Marshal(map[string]string{
			"email":    "dana@example.com",
			"password": "secret123",
		})
		req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Token string              `json:"token"`
			User  models.UserResponse `json:"user"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, int64(1), response.User.ID)

		// The returned token must pass validation
		claims, err := auth.ValidateToken(response.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.UserID)
		assert.Equal(t, models.RoleDonor, claims.Role)

		mockDB.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		mockDB.On("GetUserByEmail", "dana@example.com").Return(user, nil).Once()

		body, _ := json.Marshal(map[string]string{
			"email":    "dana@example.com",
			"password": "wrong",
		})
		req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockDB.AssertExpectations(t)
	})

	t.Run("Unknown email", func(t *testing.T) {
		mockDB.On("GetUserByEmail", "nobody@example.com").Return(nil, database.ErrUserNotFound).Once()

		body, _ := json.Marshal(map[string]string{
			"email":    "nobody@example.com",
			"password": "secret123",
		})
		req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockDB.AssertExpectations(t)
	})
}
