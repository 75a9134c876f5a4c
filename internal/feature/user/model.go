package user

import (
	"time"

	"user-directory/internal/domain"
)

// PostDTO 创建用户的入参；必填字段由 validate 标签约束
type PostDTO struct {
	ID        string         `json:"id"        binding:"required" validate:"required,max=64"`
	Email     string         `json:"email"     binding:"required" validate:"required,max=191"`
	Username  string         `json:"username"  binding:"required" validate:"required,max=191"`
	FirstName *string        `json:"firstName" validate:"omitempty,max=64"`
	LastName  *string        `json:"lastName"  validate:"omitempty,max=64"`
	Birthday  *time.Time     `json:"birthday"  binding:"required" validate:"required"`
	Gender    *domain.Gender `json:"gender"    binding:"required" validate:"required"`
}

// PatchDTO 局部更新：只合并显式给出的字段
type PatchDTO struct {
	Email     *string        `json:"email"     validate:"omitempty,min=1,max=191"`
	Username  *string        `json:"username"  validate:"omitempty,min=1,max=191"`
	FirstName *string        `json:"firstName" validate:"omitempty,max=64"`
	LastName  *string        `json:"lastName"  validate:"omitempty,max=64"`
	Birthday  *time.Time     `json:"birthday"`
	Gender    *domain.Gender `json:"gender"`
}

// AdminPatchDTO 批量更新的单项，必须带 ID
type AdminPatchDTO struct {
	ID string `json:"id" binding:"required" validate:"required"`
	PatchDTO
}

// SummaryDTO 列表 / 搜索返回的简要信息
type SummaryDTO struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// DetailDTO 单用户查询返回的完整信息
type DetailDTO struct {
	SummaryDTO
	Birthday *time.Time     `json:"birthday,omitempty"`
	Gender   *domain.Gender `json:"gender,omitempty"`
}
