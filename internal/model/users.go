package model

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// UserIDs is a sorted, duplicate-free list of user ids stored as a comma list.
type UserIDs []uint

func NewUserIDs(ids ...uint) UserIDs {
	out := make(UserIDs, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (u UserIDs) GormDataType() string { return "string" }

func (u UserIDs) Value() (driver.Value, error) {
	parts := make([]string, 0, len(u))
	for _, id := range u {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ","), nil
}

func (u *UserIDs) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*u = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan user ids: unsupported type %T", src)
	}
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return fmt.Errorf("scan user ids: %w", err)
		}
		ids = append(ids, uint(n))
	}
	*u = NewUserIDs(ids...)
	return nil
}
