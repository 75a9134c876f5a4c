package user

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"user-directory/internal/apperr"
	"user-directory/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		checkGender(sl, sl.Current().Interface().(PostDTO).Gender)
	}, PostDTO{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		checkGender(sl, sl.Current().Interface().(PatchDTO).Gender)
	}, PatchDTO{})
	return v
}

func checkGender(sl validator.StructLevel, g *domain.Gender) {
	if g != nil && !g.Valid() {
		sl.ReportError(*g, "Gender", "gender", "gender", "")
	}
}

// Validate 校验任意 DTO，失败时返回 InvalidInput 并逐字段列出
func Validate(dto any) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidInput(err.Error())
	}
	details := make([]apperr.Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperr.Detail{
			Field:  fe.Field(),
			Value:  valueOf(fe.Value()),
			Reason: "failed on '" + fe.Tag() + "'",
		})
	}
	return apperr.InvalidInput("invalid user payload", details...)
}

func valueOf(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	return fmt.Sprint(rv.Interface())
}

// ToEntity 创建映射：读取 PostDTO 全部字段，写入 User 的业务字段
func ToEntity(dto PostDTO) (domain.User, error) {
	if err := Validate(dto); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:        dto.ID,
		Email:     dto.Email,
		Username:  dto.Username,
		FirstName: cloneString(dto.FirstName),
		LastName:  cloneString(dto.LastName),
		Birthday:  dto.Birthday,
		Gender:    dto.Gender,
	}, nil
}

// ApplyTo 更新映射：只覆盖非 nil 字段，ID 与软删标记永不改写
func (p PatchDTO) ApplyTo(u *domain.User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = cloneString(p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = cloneString(p.LastName)
	}
	if p.Birthday != nil {
		b := *p.Birthday
		u.Birthday = &b
	}
	if p.Gender != nil {
		g := *p.Gender
		u.Gender = &g
	}
}

func ToSummary(u domain.User) SummaryDTO {
	return SummaryDTO{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func ToSummaries(us []domain.User) []SummaryDTO {
	out := make([]SummaryDTO, 0, len(us))
	for _, u := range us {
		out = append(out, ToSummary(u))
	}
	return out
}

func ToDetail(u domain.User) DetailDTO {
	return DetailDTO{
		SummaryDTO: ToSummary(u),
		Birthday:   u.Birthday,
		Gender:     u.Gender,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
