package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-directory/internal/apperr"
	"user-directory/internal/core/cache"
	"user-directory/internal/domain"
	"user-directory/internal/feature/user"
	"user-directory/internal/repo"
	"user-directory/internal/response"
	"user-directory/internal/service"
	"user-directory/internal/testutil"
)

// stubRepo 默认委托给真实仓储，按需覆盖个别方法
type stubRepo struct {
	domain.UserRepository
	getFn         func(ctx context.Context, c domain.Criteria) (*domain.User, error)
	countFn       func(ctx context.Context) (int64, error)
	addFn         func(ctx context.Context, u *domain.User) (bool, error)
	updateRangeFn func(ctx context.Context, us []domain.User) (bool, error)
}

func (s *stubRepo) Get(ctx context.Context, c domain.Criteria) (*domain.User, error) {
	if s.getFn != nil {
		return s.getFn(ctx, c)
	}
	return s.UserRepository.Get(ctx, c)
}

// Fresh 返回自身，让覆盖的方法在读后改写路径上同样生效
func (s *stubRepo) Fresh() domain.UserRepository { return s }

func (s *stubRepo) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return s.UserRepository.Count(ctx)
}

func (s *stubRepo) Add(ctx context.Context, u *domain.User) (bool, error) {
	if s.addFn != nil {
		return s.addFn(ctx, u)
	}
	return s.UserRepository.Add(ctx, u)
}

func (s *stubRepo) UpdateRange(ctx context.Context, us []domain.User) (bool, error) {
	if s.updateRangeFn != nil {
		return s.updateRangeFn(ctx, us)
	}
	return s.UserRepository.UpdateRange(ctx, us)
}

func setup(t *testing.T) (*service.UserService, *repo.UserRepo) {
	t.Helper()
	r := repo.NewUserRepo(testutil.NewSeededDB(t))
	return service.NewUserService(r, zaptest.NewLogger(t)), r
}

func setupStub(t *testing.T, configure func(*stubRepo)) *service.UserService {
	t.Helper()
	s := &stubRepo{UserRepository: repo.NewUserRepo(testutil.NewSeededDB(t))}
	configure(s)
	return service.NewUserService(s, zaptest.NewLogger(t))
}

func ptr[T any](v T) *T { return &v }

func postDTO(i int) user.PostDTO {
	return user.PostDTO{
		ID:        fmt.Sprintf("Id-%d", i),
		Email:     fmt.Sprintf("Email-%d", i),
		Username:  fmt.Sprintf("Username-%d", i),
		FirstName: ptr(fmt.Sprintf("First-%d", i)),
		Birthday:  ptr(time.Date(2000, time.March, 3, 0, 0, 0, 0, time.UTC)),
		Gender:    ptr(domain.GenderFemale),
	}
}

func requireKind(t *testing.T, err error, k apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, k, ae.Kind, ae.Error())
	return ae
}

func detailValues(ds []apperr.Detail) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Field+"="+d.Value)
	}
	return out
}

func TestUserService_ValidateUsersExist(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	env, err := svc.ValidateUsersExist(ctx, []string{"Id-1", "Id-2", "Id-2"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	res := env.Value.(service.ValidationResult)
	assert.True(t, res.Valid)
	assert.Equal(t, response.MsgValidationSuccess, res.Message)

	env, err = svc.ValidateUsersExist(ctx, []string{"Id-1", "Id-9"})
	require.NoError(t, err)
	res = env.Value.(service.ValidationResult)
	assert.False(t, res.Valid)
	assert.Equal(t, response.MsgValidationFailed, res.Message)
	assert.Equal(t, []string{"Id-9"}, res.Missing)

	// 软删用户视为不存在
	_, err = r.SoftDelete(ctx, ptr(testutil.User(3)))
	require.NoError(t, err)
	env, err = svc.ValidateUsersExist(ctx, []string{"Id-3"})
	require.NoError(t, err)
	assert.False(t, env.Value.(service.ValidationResult).Valid)
}

func TestUserService_CountAndGetAll(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	env, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, response.OK(int64(testutil.SeedCount)), env)

	env, err = svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, env.Value.([]user.SummaryDTO), testutil.SeedCount)
}

func TestUserService_Get(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, domain.Criteria{})
	requireKind(t, err, apperr.KindInvalidInput)

	env, err := svc.Get(ctx, domain.Criteria{Username: "Username-2"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	d := env.Value.(user.DetailDTO)
	assert.Equal(t, "Id-2", d.ID)
	require.NotNil(t, d.Gender)

	_, err = svc.Get(ctx, domain.ByID("Id-9"))
	ae := requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, []string{"id=Id-9"}, detailValues(ae.Details))

	_, err = svc.Get(ctx, domain.Criteria{ID: "Id-1", Email: "Email-2"})
	requireKind(t, err, apperr.KindNotFound)
}

func TestUserService_GetRechecksUsernameExactly(t *testing.T) {
	// 模拟大小写不敏感的存储
	svc := setupStub(t, func(s *stubRepo) {
		s.getFn = func(ctx context.Context, c domain.Criteria) (*domain.User, error) {
			u := testutil.User(1)
			u.Username = "username-1"
			return &u, nil
		}
	})
	_, err := svc.Get(context.Background(), domain.Criteria{Username: "Username-1"})
	requireKind(t, err, apperr.KindNotFound)
}

func TestUserService_GetBySubstring(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetBySubstring(ctx, "", "")
	requireKind(t, err, apperr.KindInvalidInput)

	env, err := svc.GetBySubstring(ctx, "name-4", "")
	require.NoError(t, err)
	got := env.Value.([]user.SummaryDTO)
	require.Len(t, got, 1)
	assert.Equal(t, "Id-4", got[0].ID)

	env, err = svc.GetBySubstring(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, env.Value.([]user.SummaryDTO))
}

func TestUserService_AddUser(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	env, err := svc.AddUser(ctx, "Id-6", postDTO(6))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "Id-6", env.Value.(user.SummaryDTO).ID)

	got, err := r.Get(ctx, domain.ByID("Id-6"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "First-6", *got.FirstName)
}

func TestUserService_AddUserThenGetKeepsEveryField(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	in := postDTO(6)
	in.LastName = ptr("Last-6")
	in.Gender = ptr(domain.GenderOther)
	_, err := svc.AddUser(ctx, "Id-6", in)
	require.NoError(t, err)

	env, err := svc.Get(ctx, domain.ByID("Id-6"))
	require.NoError(t, err)
	got := env.Value.(user.DetailDTO)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Email, got.Email)
	assert.Equal(t, in.Username, got.Username)
	require.NotNil(t, got.FirstName)
	assert.Equal(t, *in.FirstName, *got.FirstName)
	require.NotNil(t, got.LastName)
	assert.Equal(t, *in.LastName, *got.LastName)
	require.NotNil(t, got.Gender)
	assert.Equal(t, *in.Gender, *got.Gender)
	require.NotNil(t, got.Birthday)
	assert.Equal(t, in.Birthday.Format(time.DateOnly), got.Birthday.UTC().Format(time.DateOnly))
}

func TestUserService_AddUserReportsEveryConflict(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	dto := postDTO(6)
	dto.ID, dto.Username, dto.Email = "Id-1", "Username-2", "Email-3"
	_, err := svc.AddUser(ctx, "admin", dto)
	ae := requireKind(t, err, apperr.KindAlreadyExists)
	assert.Equal(t, []string{"id=Id-1", "username=Username-2", "email=Email-3"}, detailValues(ae.Details))

	env := response.FromError(err)
	assert.Equal(t, http.StatusConflict, env.StatusCode)
	assert.Len(t, env.Value.(response.ErrorDetails).Errors, 3)
}

func TestUserService_AddUserSoftDeletedValuesStayTaken(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	_, err := r.SoftDelete(ctx, ptr(testutil.User(1)))
	require.NoError(t, err)

	dto := postDTO(6)
	dto.Email = "Email-1"
	_, err = svc.AddUser(ctx, "admin", dto)
	ae := requireKind(t, err, apperr.KindAlreadyExists)
	assert.Equal(t, []string{"email=Email-1"}, detailValues(ae.Details))
}

func TestUserService_AddUserInvalidInput(t *testing.T) {
	svc, _ := setup(t)
	dto := postDTO(6)
	dto.Birthday = nil
	_, err := svc.AddUser(context.Background(), "Id-6", dto)
	requireKind(t, err, apperr.KindInvalidInput)
}

func TestUserService_AddUserNoChangeIsUnknown(t *testing.T) {
	svc := setupStub(t, func(s *stubRepo) {
		s.addFn = func(context.Context, *domain.User) (bool, error) { return false, nil }
	})
	_, err := svc.AddUser(context.Background(), "Id-6", postDTO(6))
	requireKind(t, err, apperr.KindUnknown)
	assert.Equal(t, http.StatusInternalServerError, response.FromError(err).StatusCode)
}

func TestUserService_AddUsers(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	_, err := svc.AddUsers(ctx, nil)
	requireKind(t, err, apperr.KindInvalidInput)

	env, err := svc.AddUsers(ctx, []user.PostDTO{postDTO(6), postDTO(7)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Len(t, env.Value.([]user.SummaryDTO), 2)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}

func TestUserService_AddUsersIsAllOrNothing(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	clash := postDTO(9)
	clash.Username = "Username-1"
	_, err := svc.AddUsers(ctx, []user.PostDTO{postDTO(6), clash})
	ae := requireKind(t, err, apperr.KindAlreadyExists)
	assert.Equal(t, []string{"username=Username-1"}, detailValues(ae.Details))

	ok, err := r.IDExists(ctx, "Id-6")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserService_AddUsersDuplicateWithinBatch(t *testing.T) {
	svc, _ := setup(t)
	a, b := postDTO(6), postDTO(7)
	b.Email = a.Email
	_, err := svc.AddUsers(context.Background(), []user.PostDTO{a, b})
	ae := requireKind(t, err, apperr.KindAlreadyExists)
	assert.Equal(t, []string{"email=Email-6"}, detailValues(ae.Details))
}

func TestUserService_UpdateUser(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	env, err := svc.UpdateUser(ctx, "Id-1", user.PatchDTO{LastName: ptr("Last")})
	require.NoError(t, err)
	assert.Equal(t, response.OK(response.MsgSuccess), env)

	got, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	require.NotNil(t, got.LastName)
	assert.Equal(t, "Last", *got.LastName)
	assert.Equal(t, "Username-1", got.Username, "absent fields are kept")
	assert.Equal(t, "First-1", *got.FirstName)

	_, err = svc.UpdateUser(ctx, "Id-9", user.PatchDTO{LastName: ptr("x")})
	requireKind(t, err, apperr.KindNotFound)
}

func TestUserService_UpdateUserDuplicateUsername(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.UpdateUser(context.Background(), "Id-1", user.PatchDTO{Username: ptr("Username-2")})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestUserService_UpdateUsers(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	_, err := svc.UpdateUsers(ctx, nil)
	requireKind(t, err, apperr.KindInvalidInput)

	env, err := svc.UpdateUsers(ctx, []user.AdminPatchDTO{
		{ID: "Id-1", PatchDTO: user.PatchDTO{FirstName: ptr("A")}},
		{ID: "Id-2", PatchDTO: user.PatchDTO{FirstName: ptr("B")}},
	})
	require.NoError(t, err)
	assert.Equal(t, response.OK(response.MsgAllUsersUpdated), env)

	got, err := r.Get(ctx, domain.ByID("Id-2"))
	require.NoError(t, err)
	assert.Equal(t, "B", *got.FirstName)
}

func TestUserService_UpdateUsersPartialFailure(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	env, err := svc.UpdateUsers(ctx, []user.AdminPatchDTO{
		{ID: "Id-1", PatchDTO: user.PatchDTO{FirstName: ptr("A")}},
		{ID: "Id-9", PatchDTO: user.PatchDTO{FirstName: ptr("B")}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMultiStatus, env.StatusCode)
	out := env.Value.(service.BulkOutcome)
	assert.Equal(t, 1, out.Updated)
	assert.Equal(t, []string{"id=Id-9"}, detailValues(out.Failures))
	assert.Contains(t, out.Message, "1 users updated")

	got, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	assert.Equal(t, "A", *got.FirstName)
}

func TestUserService_UpdateUsersCountsMergedIDsOnce(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	env, err := svc.UpdateUsers(ctx, []user.AdminPatchDTO{
		{ID: "Id-1", PatchDTO: user.PatchDTO{FirstName: ptr("A")}},
		{ID: "Id-1", PatchDTO: user.PatchDTO{LastName: ptr("Z")}},
		{ID: "Id-9", PatchDTO: user.PatchDTO{FirstName: ptr("B")}},
	})
	require.NoError(t, err)
	out := env.Value.(service.BulkOutcome)
	assert.Equal(t, 1, out.Updated)
	assert.Contains(t, out.Message, "1 users updated")

	got, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	assert.Equal(t, "A", *got.FirstName)
	assert.Equal(t, "Z", *got.LastName)
}

// 缓存里留着旧快照时，局部更新不能把其它字段写回旧值
func TestUserService_UpdateIgnoresStaleCacheEntry(t *testing.T) {
	ctx := context.Background()
	store := repo.NewUserRepo(testutil.NewSeededDB(t))
	mr := miniredis.RunT(t)
	c := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	svc := service.NewUserService(repo.NewCachedUserRepo(store, c, time.Minute, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	stale := testutil.User(1)
	stale.Email = "Old-1"
	stale.Username = "OldName-1"
	b, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set("users:id:Id-1", string(b)))

	_, err = svc.UpdateUser(ctx, "Id-1", user.PatchDTO{LastName: ptr("Lee")})
	require.NoError(t, err)

	got, err := store.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	assert.Equal(t, "Email-1", got.Email)
	assert.Equal(t, "Username-1", got.Username)
	assert.Equal(t, "Lee", *got.LastName)

	require.NoError(t, mr.Set("users:id:Id-2", `{"id":"Id-2","email":"Old-2","username":"OldName-2"}`))
	_, err = svc.UpdateUsers(ctx, []user.AdminPatchDTO{{ID: "Id-2", PatchDTO: user.PatchDTO{LastName: ptr("Kim")}}})
	require.NoError(t, err)
	got, err = store.Get(ctx, domain.ByID("Id-2"))
	require.NoError(t, err)
	assert.Equal(t, "Email-2", got.Email)
	assert.Equal(t, "Kim", *got.LastName)
}

func TestUserService_UpdateUsersAllMissing(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.UpdateUsers(context.Background(), []user.AdminPatchDTO{{ID: "Id-8"}, {ID: "Id-9"}})
	ae := requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, []string{"id=Id-8", "id=Id-9"}, detailValues(ae.Details))
}

func TestUserService_UpdateUsersConflictBubbles(t *testing.T) {
	svc := setupStub(t, func(s *stubRepo) {
		s.updateRangeFn = func(context.Context, []domain.User) (bool, error) {
			return false, fmt.Errorf("update users: %w", domain.ErrConcurrencyConflict)
		}
	})
	_, err := svc.UpdateUsers(context.Background(), []user.AdminPatchDTO{{ID: "Id-1"}})
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	env := response.FromError(err)
	assert.Equal(t, http.StatusConflict, env.StatusCode)
	assert.Equal(t, response.MsgConcurrency, env.Value.(response.ErrorDetails).Message)
}

func TestUserService_DeleteUsers(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	env, err := svc.DeleteUsers(ctx, []string{"Id-1", "Id-2", "Id-1"})
	require.NoError(t, err)
	assert.Equal(t, response.OK(response.MsgSuccess), env)

	ok, err := r.WithDeleted().IDExists(ctx, "Id-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.DeleteUsers(ctx, nil)
	requireKind(t, err, apperr.KindInvalidInput)
}

func TestUserService_DeleteUsersIsAllOrNothing(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	_, err := svc.DeleteUsers(ctx, []string{"Id-3", "Id-8", "Id-9"})
	ae := requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, []string{"id=Id-8", "id=Id-9"}, detailValues(ae.Details))

	ok, err := r.IDExists(ctx, "Id-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserService_DeleteUser(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.DeleteUser(ctx, "Id-5")
	require.NoError(t, err)
	_, err = svc.DeleteUser(ctx, "Id-5")
	requireKind(t, err, apperr.KindNotFound)
}

func TestUserService_SoftDelete(t *testing.T) {
	svc, r := setup(t)
	ctx := context.Background()

	_, err := svc.SoftDeleteUser(ctx, "Id-1")
	require.NoError(t, err)
	_, err = svc.SoftDeleteUser(ctx, "Id-1")
	requireKind(t, err, apperr.KindNotFound)

	_, err = svc.SoftDeleteUsers(ctx, []string{"Id-2", "Id-3"})
	require.NoError(t, err)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = r.WithDeleted().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, testutil.SeedCount, n)

	_, err = svc.SoftDeleteUsers(ctx, []string{"Id-4", "Id-1"})
	requireKind(t, err, apperr.KindNotFound)
	ok, err := r.IDExists(ctx, "Id-4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserService_StoreFailureBubbles(t *testing.T) {
	boom := errors.New("connection reset")
	svc := setupStub(t, func(s *stubRepo) {
		s.countFn = func(context.Context) (int64, error) { return 0, boom }
	})
	_, err := svc.Count(context.Background())
	require.ErrorIs(t, err, boom)

	env := response.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, env.StatusCode)
	assert.Empty(t, env.Value.(response.ErrorDetails).Errors, "internal errors are not leaked")
}
