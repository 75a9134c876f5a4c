package domain

import (
	"time"

	"gorm.io/gorm"
)

// User 目录中唯一的实体；ID 由调用方分配，创建后不可变
type User struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Username  string     `gorm:"uniqueIndex;size:191;not null" json:"username"`
	FirstName *string    `gorm:"size:64" json:"firstName,omitempty"`
	LastName  *string    `gorm:"size:64" json:"lastName,omitempty"`
	Birthday  *time.Time `gorm:"type:date" json:"birthday,omitempty"`
	Gender    *Gender    `json:"gender,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// Criteria 单用户查询条件；空串视为未提供，多个字段按 AND 组合
type Criteria struct {
	ID       string
	Username string
	Email    string
}

// IsEmpty 所有条件都未提供
func (c Criteria) IsEmpty() bool {
	return c.ID == "" && c.Username == "" && c.Email == ""
}

// ByID 按 ID 构造条件
func ByID(id string) Criteria { return Criteria{ID: id} }
