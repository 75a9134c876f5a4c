// Package testutil 测试共用：内存 sqlite 上的用户表与固定种子数据。
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"user-directory/internal/core/database"
	"user-directory/internal/domain"
	"user-directory/internal/repo"
)

// SeedCount 种子用户数：Id-1..5 / Username-1..5 / Email-1..5
const SeedCount = 5

// NewDB 每个测试独立的内存库，已迁移
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

// NewSeededDB NewDB + 种子用户
func NewSeededDB(t testing.TB) *gorm.DB {
	t.Helper()
	db := NewDB(t)
	users := make([]domain.User, 0, SeedCount)
	for i := 1; i <= SeedCount; i++ {
		users = append(users, User(i))
	}
	require.NoError(t, db.Create(&users).Error)
	return db
}

// User 第 i 个种子用户
func User(i int) domain.User {
	g := domain.Gender(i%3 + 1)
	b := time.Date(1990, time.January, i, 0, 0, 0, 0, time.UTC)
	first := fmt.Sprintf("First-%d", i)
	return domain.User{
		ID:        fmt.Sprintf("Id-%d", i),
		Email:     fmt.Sprintf("Email-%d", i),
		Username:  fmt.Sprintf("Username-%d", i),
		FirstName: &first,
		Birthday:  &b,
		Gender:    &g,
	}
}
