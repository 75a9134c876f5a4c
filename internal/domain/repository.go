package domain

import "context"

// UserRepository 持久化契约。默认读路径排除软删记录；
// 变更方法返回本次调用是否有行发生变化。
type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	GetAll(ctx context.Context) ([]User, error)
	// Get 返回匹配全部非空条件的记录；条件全空时返回 nil
	Get(ctx context.Context, c Criteria) (*User, error)
	// GetBySubstring 大小写不敏感的子串匹配；两个参数都为空时返回空列表
	GetBySubstring(ctx context.Context, usernamePart, emailPart string) ([]User, error)

	Exists(ctx context.Context, c Criteria) (bool, error)
	IDExists(ctx context.Context, id string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	Add(ctx context.Context, u *User) (bool, error)
	AddRange(ctx context.Context, us []User) (bool, error)
	Update(ctx context.Context, u *User) (bool, error)
	UpdateRange(ctx context.Context, us []User) (bool, error)
	Delete(ctx context.Context, u *User) (bool, error)
	DeleteRange(ctx context.Context, us []User) (bool, error)
	SoftDelete(ctx context.Context, u *User) (bool, error)
	SoftDeleteRange(ctx context.Context, us []User) (bool, error)

	// WithDeleted 读视图包含软删记录
	WithDeleted() UserRepository
	// Fresh 直接读存储、不经过任何缓存的视图；读后改写的路径必须用它
	Fresh() UserRepository
}
