// Package service 用户目录的业务规则：条件校验、唯一性预检、批量部分失败聚合、软删语义。
// 所有方法成功时返回响应信封，失败时返回 *apperr.Error 或仓储冒泡的错误，由边界翻译。
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"user-directory/internal/apperr"
	"user-directory/internal/domain"
	"user-directory/internal/feature/user"
	"user-directory/internal/response"
	"user-directory/pkg/utils"
)

// 批量预检的并发上限
const precheckLimit = 8

type UserService struct {
	repo domain.UserRepository
	log  *zap.Logger
}

func NewUserService(repo domain.UserRepository, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{repo: repo, log: l.Named("users")}
}

// ValidationResult ValidateUsersExist 的返回值
type ValidationResult struct {
	Message string   `json:"message"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

// BulkOutcome 批量更新的部分成功结果
type BulkOutcome struct {
	Message  string          `json:"message"`
	Updated  int             `json:"updated"`
	Failures []apperr.Detail `json:"errors"`
}

// ValidateUsersExist 所有 ID 都在未软删用户中才算通过
func (s *UserService) ValidateUsersExist(ctx context.Context, ids []string) (response.Envelope, error) {
	if len(ids) == 0 {
		return response.Envelope{}, apperr.InvalidInput("at least one user id is required")
	}
	missing, err := s.missingOf(ctx, utils.Dedupe(ids))
	if err != nil {
		return response.Envelope{}, err
	}
	res := ValidationResult{Message: response.MsgValidationSuccess, Valid: true, Missing: missing}
	if len(missing) > 0 {
		res.Message, res.Valid = response.MsgValidationFailed, false
	}
	return response.OK(res), nil
}

func (s *UserService) Count(ctx context.Context) (response.Envelope, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return response.Envelope{}, err
	}
	return response.OK(n), nil
}

func (s *UserService) GetAll(ctx context.Context) (response.Envelope, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return response.Envelope{}, err
	}
	return response.OK(user.ToSummaries(users)), nil
}

// Get 条件全空 → InvalidInput；未命中或用户名不逐字相等 → NotFound
func (s *UserService) Get(ctx context.Context, c domain.Criteria) (response.Envelope, error) {
	if c.IsEmpty() {
		return response.Envelope{}, apperr.InvalidInput("at least one of id, username or email is required")
	}
	u, err := s.repo.Get(ctx, c)
	if err != nil {
		return response.Envelope{}, err
	}
	// 存储层的比较规则可能与这里不同（如 MySQL 默认排序规则大小写不敏感），按原样复核用户名
	if u == nil || (c.Username != "" && c.Username != u.Username) {
		return response.Envelope{}, apperr.NotFound("user not found", criteriaDetails(c)...)
	}
	return response.OK(user.ToDetail(*u)), nil
}

func (s *UserService) GetBySubstring(ctx context.Context, usernamePart, emailPart string) (response.Envelope, error) {
	if utils.IsAllEmpty(usernamePart, emailPart) {
		return response.Envelope{}, apperr.InvalidInput("username or email part is required")
	}
	users, err := s.repo.GetBySubstring(ctx, usernamePart, emailPart)
	if err != nil {
		return response.Envelope{}, err
	}
	return response.OK(user.ToSummaries(users)), nil
}

// AddUser 三个唯一字段独立预检，冲突全部列出；存储报告无变化视为 Unknown
func (s *UserService) AddUser(ctx context.Context, callerID string, dto user.PostDTO) (response.Envelope, error) {
	u, err := user.ToEntity(dto)
	if err != nil {
		return response.Envelope{}, err
	}
	conflicts, err := s.conflictsOf(ctx, dto)
	if err != nil {
		return response.Envelope{}, err
	}
	if len(conflicts) > 0 {
		return response.Envelope{}, apperr.AlreadyExists("user already exists", conflicts...)
	}

	changed, err := s.repo.Add(ctx, &u)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot create user %s", u.ID)
	}
	s.log.Info("user created", zap.String("id", u.ID), zap.String("caller", callerID))
	return response.Created(user.ToSummary(u)), nil
}

// AddUsers 全有或全无：任一项冲突则整批失败，返回所有冲突的并集
func (s *UserService) AddUsers(ctx context.Context, dtos []user.PostDTO) (response.Envelope, error) {
	if len(dtos) == 0 {
		return response.Envelope{}, apperr.InvalidInput("at least one user is required")
	}
	users := make([]domain.User, 0, len(dtos))
	for _, dto := range dtos {
		u, err := user.ToEntity(dto)
		if err != nil {
			return response.Envelope{}, err
		}
		users = append(users, u)
	}

	perItem := make([][]apperr.Detail, len(dtos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precheckLimit)
	for i, dto := range dtos {
		g.Go(func() error {
			c, err := s.conflictsOf(gctx, dto)
			perItem[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return response.Envelope{}, err
	}

	var conflicts []apperr.Detail
	for _, c := range perItem {
		conflicts = append(conflicts, c...)
	}
	conflicts = append(conflicts, batchDuplicates(dtos)...)
	if len(conflicts) > 0 {
		return response.Envelope{}, apperr.AlreadyExists("one or more users already exist", conflicts...)
	}

	changed, err := s.repo.AddRange(ctx, users)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot create %d users", len(users))
	}
	s.log.Info("users created", zap.Int("count", len(users)))
	return response.Created(user.ToSummaries(users)), nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, dto user.PatchDTO) (response.Envelope, error) {
	if err := user.Validate(dto); err != nil {
		return response.Envelope{}, err
	}
	u, err := s.repo.Fresh().Get(ctx, domain.ByID(id))
	if err != nil {
		return response.Envelope{}, err
	}
	if u == nil {
		return response.Envelope{}, apperr.NotFound("user not found", missingDetail(id))
	}
	dto.ApplyTo(u)
	changed, err := s.repo.Update(ctx, u)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot update user %s", id)
	}
	s.log.Info("user updated", zap.String("id", id))
	return response.OK(response.MsgSuccess), nil
}

// UpdateUsers 容忍部分失败：缺失的 ID 记为失败并剔除，剩余子集一次写入
func (s *UserService) UpdateUsers(ctx context.Context, dtos []user.AdminPatchDTO) (response.Envelope, error) {
	if len(dtos) == 0 {
		return response.Envelope{}, apperr.InvalidInput("at least one user is required")
	}

	fresh := s.repo.Fresh()
	found := make([]*domain.User, len(dtos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precheckLimit)
	for i, dto := range dtos {
		g.Go(func() error {
			u, err := fresh.Get(gctx, domain.ByID(dto.ID))
			found[i] = u
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return response.Envelope{}, err
	}

	var failures []apperr.Detail
	toUpdate := make([]domain.User, 0, len(dtos))
	index := make(map[string]int, len(dtos)) // 同一 ID 多次出现时按顺序叠加到同一份记录
	for i, dto := range dtos {
		if err := user.Validate(dto); err != nil {
			failures = append(failures, apperr.Detail{Field: "id", Value: dto.ID, Reason: err.Error()})
			continue
		}
		if found[i] == nil {
			failures = append(failures, missingDetail(dto.ID))
			continue
		}
		if j, ok := index[dto.ID]; ok {
			dto.ApplyTo(&toUpdate[j])
			continue
		}
		u := *found[i]
		dto.ApplyTo(&u)
		index[dto.ID] = len(toUpdate)
		toUpdate = append(toUpdate, u)
	}

	if len(toUpdate) == 0 {
		bulkItems.WithLabelValues("update", "failed").Add(float64(len(failures)))
		return response.Envelope{}, apperr.NotFound("no user could be updated", failures...)
	}
	changed, err := s.repo.UpdateRange(ctx, toUpdate)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot update %d users", len(toUpdate))
	}

	updated := len(toUpdate) // 同一 ID 合并后只算一次
	bulkItems.WithLabelValues("update", "ok").Add(float64(updated))
	if len(failures) == 0 {
		s.log.Info("users updated", zap.Int("count", updated))
		return response.OK(response.MsgAllUsersUpdated), nil
	}
	bulkItems.WithLabelValues("update", "failed").Add(float64(len(failures)))
	s.log.Warn("users partially updated", zap.Int("updated", updated), zap.Int("failed", len(failures)))
	return response.MultiStatus(BulkOutcome{
		Message:  fmt.Sprintf("%d users updated successfully. Failures occurred with the others.", updated),
		Updated:  updated,
		Failures: failures,
	}), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) (response.Envelope, error) {
	return s.DeleteUsers(ctx, []string{id})
}

// DeleteUsers 全有或全无：任一 ID 不存在则一个都不删
func (s *UserService) DeleteUsers(ctx context.Context, ids []string) (response.Envelope, error) {
	users, err := s.loadAll(ctx, ids)
	if err != nil {
		return response.Envelope{}, err
	}
	changed, err := s.repo.DeleteRange(ctx, users)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot delete %d users", len(users))
	}
	bulkItems.WithLabelValues("delete", "ok").Add(float64(len(users)))
	s.log.Info("users deleted", zap.Strings("ids", idsOf(users)))
	return response.OK(response.MsgSuccess), nil
}

func (s *UserService) SoftDeleteUser(ctx context.Context, id string) (response.Envelope, error) {
	u, err := s.repo.Fresh().Get(ctx, domain.ByID(id))
	if err != nil {
		return response.Envelope{}, err
	}
	if u == nil {
		return response.Envelope{}, apperr.NotFound("user not found", missingDetail(id))
	}
	changed, err := s.repo.SoftDelete(ctx, u)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot soft delete user %s", id)
	}
	s.log.Info("user soft deleted", zap.String("id", id))
	return response.OK(response.MsgSuccess), nil
}

// SoftDeleteUsers 与 DeleteUsers 同样是全有或全无
func (s *UserService) SoftDeleteUsers(ctx context.Context, ids []string) (response.Envelope, error) {
	users, err := s.loadAll(ctx, ids)
	if err != nil {
		return response.Envelope{}, err
	}
	changed, err := s.repo.SoftDeleteRange(ctx, users)
	if err != nil {
		return response.Envelope{}, err
	}
	if !changed {
		return response.Envelope{}, apperr.Unknownf("cannot soft delete %d users", len(users))
	}
	bulkItems.WithLabelValues("soft_delete", "ok").Add(float64(len(users)))
	s.log.Info("users soft deleted", zap.Strings("ids", idsOf(users)))
	return response.OK(response.MsgSuccess), nil
}

// loadAll 先确认全部 ID 存在（缺失则 NotFound 列出全部缺失项），再逐个取完整记录
func (s *UserService) loadAll(ctx context.Context, ids []string) ([]domain.User, error) {
	ids = utils.Dedupe(ids)
	if len(ids) == 0 {
		return nil, apperr.InvalidInput("at least one user id is required")
	}

	missing, err := s.missingOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		details := make([]apperr.Detail, 0, len(missing))
		for _, id := range missing {
			details = append(details, missingDetail(id))
		}
		return nil, apperr.NotFound("one or more users do not exist", details...)
	}

	fresh := s.repo.Fresh()
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := fresh.Get(ctx, domain.ByID(id))
		if err != nil {
			return nil, err
		}
		if u == nil {
			// 预检之后被并发删除
			return nil, apperr.Conflict("user vanished during delete", fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, id))
		}
		users = append(users, *u)
	}
	return users, nil
}

// missingOf 并发检查 ID 是否存在（默认视图），按输入顺序返回缺失项
func (s *UserService) missingOf(ctx context.Context, ids []string) ([]string, error) {
	exists := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precheckLimit)
	for i, id := range ids {
		g.Go(func() error {
			ok, err := s.repo.IDExists(gctx, id)
			exists[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var missing []string
	for i, id := range ids {
		if !exists[i] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// conflictsOf 唯一性预检：软删记录仍占用 id/username/email（与存储层唯一索引一致）
func (s *UserService) conflictsOf(ctx context.Context, dto user.PostDTO) ([]apperr.Detail, error) {
	all := s.repo.WithDeleted()
	checks := []struct {
		field, value string
		exists       func(context.Context, string) (bool, error)
	}{
		{"id", dto.ID, all.IDExists},
		{"username", dto.Username, all.UsernameExists},
		{"email", dto.Email, all.EmailExists},
	}
	var out []apperr.Detail
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		ok, err := c.exists(ctx, c.value)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, apperr.Detail{Field: c.field, Value: c.value, Reason: response.MsgAlreadyExist})
		}
	}
	return out, nil
}

// batchDuplicates 同一批次内部的重复值
func batchDuplicates(dtos []user.PostDTO) []apperr.Detail {
	var out []apperr.Detail
	seen := map[string]map[string]bool{"id": {}, "username": {}, "email": {}}
	for _, dto := range dtos {
		for _, f := range [...]struct{ field, value string }{
			{"id", dto.ID}, {"username", dto.Username}, {"email", dto.Email},
		} {
			if f.value == "" {
				continue
			}
			if seen[f.field][f.value] {
				out = append(out, apperr.Detail{Field: f.field, Value: f.value, Reason: "duplicated within the request"})
				continue
			}
			seen[f.field][f.value] = true
		}
	}
	return out
}

func criteriaDetails(c domain.Criteria) []apperr.Detail {
	var out []apperr.Detail
	if c.ID != "" {
		out = append(out, apperr.Detail{Field: "id", Value: c.ID, Reason: response.MsgNotExist})
	}
	if c.Username != "" {
		out = append(out, apperr.Detail{Field: "username", Value: c.Username, Reason: response.MsgNotExist})
	}
	if c.Email != "" {
		out = append(out, apperr.Detail{Field: "email", Value: c.Email, Reason: response.MsgNotExist})
	}
	return out
}

func missingDetail(id string) apperr.Detail {
	return apperr.Detail{Field: "id", Value: id, Reason: response.MsgNotExist}
}

func idsOf(us []domain.User) []string {
	ids := make([]string, 0, len(us))
	for _, u := range us {
		ids = append(ids, u.ID)
	}
	return ids
}
