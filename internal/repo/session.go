package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"user-directory/internal/domain"
	"user-directory/pkg/utils"
)

type opKind uint8

const (
	opAdd opKind = iota + 1
	opUpdate
	opDelete
	opSoftDelete
)

func (k opKind) String() string {
	switch k {
	case opAdd:
		return "add"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	case opSoftDelete:
		return "soft delete"
	}
	return "unknown"
}

type pendingOp struct {
	kind  opKind
	users []domain.User
}

// Session 显式工作单元：先登记变更，Save 时在一个事务里全部提交或全部回滚
type Session struct {
	db  *gorm.DB
	ops []pendingOp
}

func newSession(db *gorm.DB) *Session { return &Session{db: db} }

func (s *Session) Add(us ...domain.User) *Session        { return s.stage(opAdd, us) }
func (s *Session) Update(us ...domain.User) *Session     { return s.stage(opUpdate, us) }
func (s *Session) Delete(us ...domain.User) *Session     { return s.stage(opDelete, us) }
func (s *Session) SoftDelete(us ...domain.User) *Session { return s.stage(opSoftDelete, us) }

func (s *Session) stage(k opKind, us []domain.User) *Session {
	if len(us) > 0 {
		s.ops = append(s.ops, pendingOp{kind: k, users: us})
	}
	return s
}

// Pending 尚未提交的变更条数
func (s *Session) Pending() int {
	n := 0
	for _, op := range s.ops {
		n += len(op.users)
	}
	return n
}

// Save 原子提交全部登记的变更，返回是否有行真正发生变化。
// 目标行缺失时返回 domain.ErrConcurrencyConflict，唯一冲突返回 domain.ErrDuplicateKey，二者都会回滚整个事务。
func (s *Session) Save(ctx context.Context) (bool, error) {
	if s.Pending() == 0 {
		s.ops = nil
		return false, nil
	}
	ops := s.ops
	s.ops = nil

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			n, err := apply(tx, op)
			if err != nil {
				return fmt.Errorf("%s users: %w", op.kind, err)
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return affected > 0, nil
}

func apply(tx *gorm.DB, op pendingOp) (int64, error) {
	switch op.kind {
	case opAdd:
		res := tx.Create(&op.users)
		return res.RowsAffected, res.Error
	case opUpdate:
		return applyUpdate(tx, op.users)
	case opDelete:
		// 硬删除，绕过软删标记；仅针对未软删的行
		return conditionalDelete(tx.Unscoped().Where("deleted_at IS NULL"), op.users)
	case opSoftDelete:
		return conditionalDelete(tx, op.users)
	}
	return 0, fmt.Errorf("unknown op %d", op.kind)
}

// applyUpdate 先显式确认目标行都还在（不依赖 RowsAffected：MySQL 对未变化的行返回 0），再逐行写业务字段
func applyUpdate(tx *gorm.DB, us []domain.User) (int64, error) {
	ids := utils.Dedupe(idsOf(us))
	var n int64
	if err := tx.Model(&domain.User{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return 0, err
	}
	if n != int64(len(ids)) {
		missing, err := missingIDs(tx, ids)
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, strings.Join(missing, ", "))
	}
	for _, u := range us {
		if err := tx.Model(&domain.User{}).Where("id = ?", u.ID).Updates(updatableColumns(u)).Error; err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}

// conditionalDelete 条件写：受影响行数少于目标数即视为目标已消失
func conditionalDelete(tx *gorm.DB, us []domain.User) (int64, error) {
	ids := utils.Dedupe(idsOf(us))
	res := tx.Where("id IN ?", ids).Delete(&domain.User{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return 0, fmt.Errorf("%w: %d of %d rows matched", domain.ErrConcurrencyConflict, res.RowsAffected, len(ids))
	}
	return res.RowsAffected, nil
}

// updatableColumns 更新时写入的列；id、created_at、deleted_at 不在其中
func updatableColumns(u domain.User) map[string]any {
	return map[string]any{
		"email":      u.Email,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"birthday":   u.Birthday,
		"gender":     u.Gender,
	}
}

func missingIDs(tx *gorm.DB, ids []string) ([]string, error) {
	var found []string
	if err := tx.Model(&domain.User{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func idsOf(us []domain.User) []string {
	ids := make([]string, 0, len(us))
	for _, u := range us {
		ids = append(ids, u.ID)
	}
	return ids
}

// translate 唯一冲突统一成 domain.ErrDuplicateKey
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrDuplicateKey) || errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDupKey(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	}
	return err
}

func isDupKey(err error) bool {
	// 驱动未实现 ErrorTranslator 时兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
