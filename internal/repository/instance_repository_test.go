package repository

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fisker/cloudlease-backend/internal/model"
)

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }

// TestInstanceRepository_RoundTrip 可选字段全填和全空的完整往返
func TestInstanceRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	price := decimal.NewFromFloat(0.00893)
	full := &model.Instance{
		DropletID:       1001,
		Name:            "web-1",
		IPAddress:       "203.0.113.10",
		DropletType:     "s-1vcpu-1gb",
		ExpirationDate:  "2026-09-07 12:00:00",
		PriceHourly:     &price,
		CreatorID:       42,
		CreatorUsername: strPtr("alice"),
		SSHKeyID:        777,
		DomainName:      strPtr("web-1.example.com"),
		DNSRecordID:     i64Ptr(555),
		DNSZone:         strPtr("example.com"),
	}
	require.NoError(t, repo.Create(full))

	got, err := repo.FindByID(1001)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, full.Name, got.Name)
	require.Equal(t, full.IPAddress, got.IPAddress)
	require.Equal(t, full.DropletType, got.DropletType)
	require.Equal(t, full.ExpirationDate, got.ExpirationDate)
	require.NotNil(t, got.PriceHourly)
	require.True(t, price.Equal(*got.PriceHourly))
	require.Equal(t, "alice", *got.CreatorUsername)
	require.Equal(t, int64(777), got.SSHKeyID)
	require.True(t, got.HasDNS())
	require.Equal(t, "web-1.example.com", *got.DomainName)
	require.Equal(t, int64(555), *got.DNSRecordID)
	require.Equal(t, "example.com", *got.DNSZone)

	// 可选字段全空：读出为nil，不报错
	bare := &model.Instance{
		DropletID:      1002,
		Name:           "bare-1",
		IPAddress:      "unavailable",
		ExpirationDate: "2026-09-07 12:00:00",
		CreatorID:      42,
	}
	require.NoError(t, repo.Create(bare))

	got, err = repo.FindByID(1002)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Nil(t, got.PriceHourly)
	require.Nil(t, got.CreatorUsername)
	require.Nil(t, got.DomainName)
	require.Nil(t, got.DNSRecordID)
	require.Nil(t, got.DNSZone)
	require.False(t, got.HasDNS())
}

// TestInstanceRepository_FindByIDNotFound 不存在返回 (nil, nil)
func TestInstanceRepository_FindByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	got, err := repo.FindByID(9999)
	require.NoError(t, err)
	require.Nil(t, got)
}

// TestInstanceRepository_ExtendExpiration 续期是累加语义，重复调用各加days天
func TestInstanceRepository_ExtendExpiration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local)
	require.NoError(t, repo.Create(&model.Instance{
		DropletID:      2001,
		Name:           "extend-me",
		ExpirationDate: model.FormatExpiration(base),
		CreatorID:      42,
	}))

	newExp, found, err := repo.ExtendExpiration(2001, 3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, base.AddDate(0, 0, 3), newExp)

	// 第二次同参数调用再加3天（不是set-once）
	newExp, found, err = repo.ExtendExpiration(2001, 3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, base.AddDate(0, 0, 6), newExp)

	// 不存在的ID两次都返回notFound，且不创建行
	for i := 0; i < 2; i++ {
		_, found, err = repo.ExtendExpiration(9999, 3)
		require.NoError(t, err)
		require.False(t, found)
	}
	got, err := repo.FindByID(9999)
	require.NoError(t, err)
	require.Nil(t, got)
}

// TestInstanceRepository_ExtendUnixExpiration 历史unix秒格式也可续期
func TestInstanceRepository_ExtendUnixExpiration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local)
	require.NoError(t, repo.Create(&model.Instance{
		DropletID:      2002,
		Name:           "legacy",
		ExpirationDate: strconv.FormatInt(base.Unix(), 10),
		CreatorID:      42,
	}))

	newExp, found, err := repo.ExtendExpiration(2002, 7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, base.AddDate(0, 0, 7), newExp)

	// 续期后写回规范字符串格式
	got, err := repo.FindByID(2002)
	require.NoError(t, err)
	require.Equal(t, model.FormatExpiration(newExp), got.ExpirationDate)
}

// TestInstanceRepository_FindDueForExpiry 到期窗口查询的边界
func TestInstanceRepository_FindDueForExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local)
	window := 24 * time.Hour

	mk := func(id int64, exp string) {
		require.NoError(t, repo.Create(&model.Instance{
			DropletID:      id,
			Name:           "inst-" + strconv.FormatInt(id, 10),
			ExpirationDate: exp,
			CreatorID:      42,
		}))
	}

	mk(1, model.FormatExpiration(now.Add(-time.Hour)))        // 已过期
	mk(2, model.FormatExpiration(now))                        // 恰好到期
	mk(3, model.FormatExpiration(now.Add(window)))            // 恰好在窗口边界（含）
	mk(4, model.FormatExpiration(now.Add(window+time.Second))) // 窗口外
	mk(5, "not-a-timestamp")                                  // 无法解析的行也要返回
	mk(6, strconv.FormatInt(now.Add(2*time.Hour).Unix(), 10)) // unix格式、窗口内

	due, err := repo.FindDueForExpiry(now, window)
	require.NoError(t, err)

	ids := make(map[int64]bool)
	for _, inst := range due {
		ids[inst.DropletID] = true
	}
	require.True(t, ids[1])
	require.True(t, ids[2])
	require.True(t, ids[3])
	require.False(t, ids[4])
	require.True(t, ids[5])
	require.True(t, ids[6])
}

// TestInstanceRepository_DNSLifecycle DNS三元组绑定与解绑
func TestInstanceRepository_DNSLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	require.NoError(t, repo.Create(&model.Instance{
		DropletID:      3001,
		Name:           "dns-host",
		ExpirationDate: "2026-09-07 12:00:00",
		CreatorID:      42,
	}))

	found, err := repo.AttachDNS(3001, "dns-host.example.com", 888, "example.com")
	require.NoError(t, err)
	require.True(t, found)

	got, err := repo.FindByID(3001)
	require.NoError(t, err)
	require.True(t, got.HasDNS())

	found, err = repo.ClearDNS(3001)
	require.NoError(t, err)
	require.True(t, found)

	got, err = repo.FindByID(3001)
	require.NoError(t, err)
	require.False(t, got.HasDNS())
	require.Nil(t, got.DomainName)

	// 不存在的ID报告absence
	found, err = repo.AttachDNS(9999, "x.example.com", 1, "example.com")
	require.NoError(t, err)
	require.False(t, found)
}

// TestInstanceRepository_Delete 删除报告行是否存在
func TestInstanceRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstanceRepository(db)

	require.NoError(t, repo.Create(&model.Instance{
		DropletID:      4001,
		Name:           "doomed",
		ExpirationDate: "2026-09-07 12:00:00",
		CreatorID:      42,
	}))

	existed, err := repo.Delete(4001)
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = repo.Delete(4001)
	require.NoError(t, err)
	require.False(t, existed)
}
