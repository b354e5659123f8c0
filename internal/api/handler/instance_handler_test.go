package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fisker/cloudlease-backend/internal/api/middleware"
	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
	"github.com/fisker/cloudlease-backend/internal/service"
)

const testJWTSecret = "handler-test-secret"

// stubInstanceProvider 最小云API桩，续期/删除路径不触达云端创建
type stubInstanceProvider struct{}

func (stubInstanceProvider) CreateDroplet(ctx context.Context, params provider.CreateDropletParams) (*provider.Droplet, error) {
	return &provider.Droplet{ID: 1, Name: params.Name, IPAddress: "203.0.113.10"}, nil
}
func (stubInstanceProvider) DeleteDroplet(ctx context.Context, id int64) error { return nil }
func (stubInstanceProvider) CreateDNSRecord(ctx context.Context, zone, name, ip string) (int64, error) {
	return 1, nil
}
func (stubInstanceProvider) DeleteDNSRecord(ctx context.Context, zone string, recordID int64) error {
	return nil
}
func (stubInstanceProvider) ListSSHKeys(ctx context.Context) ([]provider.SSHKey, error) {
	return nil, nil
}
func (stubInstanceProvider) ListImages(ctx context.Context) ([]provider.Image, error) {
	return nil, nil
}
func (stubInstanceProvider) ListSizes(ctx context.Context) ([]provider.Size, error) {
	return nil, nil
}
func (stubInstanceProvider) ListDomains(ctx context.Context) ([]provider.Domain, error) {
	return nil, nil
}
func (stubInstanceProvider) SizePriceHourly(ctx context.Context, slug string) (*decimal.Decimal, error) {
	return nil, nil
}

func setupInstanceRouter(t *testing.T) (*gin.Engine, *repository.InstanceRepository) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Instance{}, &model.SSHKeyUsage{}))

	repo := repository.NewInstanceRepository(db)
	keyRepo := repository.NewSSHKeyUsageRepository(db)
	svc := service.NewInstanceService(repo, keyRepo, stubInstanceProvider{}, notification.NewDispatcher(nil, 0))
	h := NewInstanceHandler(svc)

	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware(testJWTSecret))
	api.POST("/instances/:id/extend", h.Extend)
	api.DELETE("/instances/:id", h.Delete)
	return r, repo
}

func bearerToken(t *testing.T, creatorID int64) string {
	token, err := middleware.GenerateToken(testJWTSecret, creatorID, "tester", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestExtendInstanceCrossCreatorReturns404(t *testing.T) {
	r, repo := setupInstanceRouter(t)
	require.NoError(t, repo.Create(&model.Instance{
		DropletID: 1, Name: "web-1", CreatorID: 42, ExpirationDate: "2026-09-02 12:00:00",
	}))

	// 创建者99的合法token对创建者42的主机续期
	req := httptest.NewRequest(http.MethodPost, "/api/instances/1/extend", strings.NewReader(`{"days":7}`))
	req.Header.Set("Authorization", bearerToken(t, 99))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	saved, err := repo.FindByID(1)
	require.NoError(t, err)
	require.Equal(t, "2026-09-02 12:00:00", saved.ExpirationDate)
}

func TestExtendInstanceOwnerSucceeds(t *testing.T) {
	r, repo := setupInstanceRouter(t)
	require.NoError(t, repo.Create(&model.Instance{
		DropletID: 1, Name: "web-1", CreatorID: 42, ExpirationDate: "2026-09-02 12:00:00",
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/instances/1/extend", strings.NewReader(`{"days":7}`))
	req.Header.Set("Authorization", bearerToken(t, 42))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	saved, err := repo.FindByID(1)
	require.NoError(t, err)
	require.Equal(t, "2026-09-09 12:00:00", saved.ExpirationDate)
}

func TestDeleteInstanceCrossCreatorReturns404(t *testing.T) {
	r, repo := setupInstanceRouter(t)
	require.NoError(t, repo.Create(&model.Instance{
		DropletID: 1, Name: "web-1", CreatorID: 42, ExpirationDate: "2026-09-02 12:00:00",
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/instances/1", nil)
	req.Header.Set("Authorization", bearerToken(t, 99))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	saved, err := repo.FindByID(1)
	require.NoError(t, err)
	require.NotNil(t, saved)
}
