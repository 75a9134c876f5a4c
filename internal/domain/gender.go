package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Gender uint8

const (
	GenderMale Gender = iota + 1
	GenderFemale
	GenderOther
)

var genderNames = map[Gender]string{
	GenderMale:   "male",
	GenderFemale: "female",
	GenderOther:  "other",
}

func (g Gender) String() string {
	if s, ok := genderNames[g]; ok {
		return s
	}
	return "unknown"
}

func (g Gender) Valid() bool {
	_, ok := genderNames[g]
	return ok
}

// ParseGender 接受名称（不区分大小写）或数字
func ParseGender(s string) (Gender, error) {
	s = strings.TrimSpace(s)
	for g, name := range genderNames {
		if strings.EqualFold(name, s) {
			return g, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Gender(n).Valid() {
		return Gender(n), nil
	}
	return 0, fmt.Errorf("invalid gender %q", s)
}

func (g Gender) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON 同时兼容字符串和整数两种写法
func (g *Gender) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseGender(s)
		if err != nil {
			return err
		}
		*g = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("gender must be a string or an integer")
	}
	if !Gender(n).Valid() {
		return fmt.Errorf("invalid gender %d", n)
	}
	*g = Gender(n)
	return nil
}
