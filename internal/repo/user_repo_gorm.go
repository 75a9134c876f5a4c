package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"user-directory/internal/domain"
	"user-directory/pkg/utils"
)

type UserRepo struct {
	db      *gorm.DB
	unscope bool // 读路径是否包含软删记录
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// AutoMigrate 建表 + 唯一索引（索引作用于全部物理行，软删记录仍占用 id/email/username）
func AutoMigrate(db *gorm.DB) error { return db.AutoMigrate(&domain.User{}) }

// Begin 开启一个工作单元
func (r *UserRepo) Begin() *Session { return newSession(r.db) }

func (r *UserRepo) WithDeleted() domain.UserRepository {
	return &UserRepo{db: r.db, unscope: true}
}

func (r *UserRepo) Fresh() domain.UserRepository { return r }

func (r *UserRepo) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if r.unscope {
		q = q.Unscoped()
	}
	return q
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.query(ctx).Count(&n).Error
	return n, err
}

func (r *UserRepo) GetAll(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.query(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) Get(ctx context.Context, c domain.Criteria) (*domain.User, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	var u domain.User
	err := whereCriteria(r.query(ctx), c).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetBySubstring(ctx context.Context, usernamePart, emailPart string) ([]domain.User, error) {
	users := []domain.User{}
	if utils.IsAllEmpty(usernamePart, emailPart) {
		return users, nil
	}
	fold := r.foldCase()
	q := r.query(ctx)
	if usernamePart != "" {
		q = q.Where("LOWER(username) LIKE ? ESCAPE '!'", likePattern(fold, usernamePart))
	}
	if emailPart != "" {
		q = q.Where("LOWER(email) LIKE ? ESCAPE '!'", likePattern(fold, emailPart))
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) Exists(ctx context.Context, c domain.Criteria) (bool, error) {
	if c.IsEmpty() {
		return false, nil
	}
	return r.exists(whereCriteria(r.query(ctx), c))
}

func (r *UserRepo) IDExists(ctx context.Context, id string) (bool, error) {
	return r.exists(r.query(ctx).Where("id = ?", id))
}

func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(r.query(ctx).Where("username = ?", username))
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(r.query(ctx).Where("email = ?", email))
}

func (r *UserRepo) exists(q *gorm.DB) (bool, error) {
	var found []string
	if err := q.Limit(1).Pluck("id", &found).Error; err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// 变更方法：登记到工作单元后立即 Save

func (r *UserRepo) Add(ctx context.Context, u *domain.User) (bool, error) {
	return r.Begin().Add(*u).Save(ctx)
}

func (r *UserRepo) AddRange(ctx context.Context, us []domain.User) (bool, error) {
	return r.Begin().Add(us...).Save(ctx)
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) (bool, error) {
	return r.Begin().Update(*u).Save(ctx)
}

func (r *UserRepo) UpdateRange(ctx context.Context, us []domain.User) (bool, error) {
	return r.Begin().Update(us...).Save(ctx)
}

func (r *UserRepo) Delete(ctx context.Context, u *domain.User) (bool, error) {
	return r.Begin().Delete(*u).Save(ctx)
}

func (r *UserRepo) DeleteRange(ctx context.Context, us []domain.User) (bool, error) {
	return r.Begin().Delete(us...).Save(ctx)
}

func (r *UserRepo) SoftDelete(ctx context.Context, u *domain.User) (bool, error) {
	return r.Begin().SoftDelete(*u).Save(ctx)
}

func (r *UserRepo) SoftDeleteRange(ctx context.Context, us []domain.User) (bool, error) {
	return r.Begin().SoftDelete(us...).Save(ctx)
}

// whereCriteria 非空字段逐个 AND，大小写敏感的精确匹配
func whereCriteria(q *gorm.DB, c domain.Criteria) *gorm.DB {
	if c.ID != "" {
		q = q.Where("id = ?", c.ID)
	}
	if c.Username != "" {
		q = q.Where("username = ?", c.Username)
	}
	if c.Email != "" {
		q = q.Where("email = ?", c.Email)
	}
	return q
}

// foldCase 与列上的 LOWER() 保持同一折叠规则：SQLite 只折叠 ASCII，非 ASCII 字母在 sqlite 上大小写敏感
func (r *UserRepo) foldCase() func(string) string {
	if r.db.Dialector.Name() == "sqlite" {
		return utils.ToLowerASCII
	}
	return strings.ToLower
}

func likePattern(fold func(string) string, part string) string {
	return "%" + utils.EscapeLike(fold(part)) + "%"
}
