package biz

import (
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
)

var (
	BadRequest         = "BAD_REQUEST"
	InternalServer     = "INTERNAL_SERVER"
	NotFound           = "NOT_FOUND"
	InvalidCountryCode = "INVALID_COUNTRY_CODE"
	PlaceNotFound      = "PLACE_NOT_FOUND"
	UpdateInProgress   = "UPDATE_IN_PROGRESS"
)

var (
	ErrInternalServer   = errors.New(500, InternalServer, "internal server error")
	ErrUpdateInProgress = errors.Conflict(UpdateInProgress, "update already in progress")
)

// ErrPlaceNotFound 源库中不存在该 place_id。
func ErrPlaceNotFound(table string, placeID int64) *errors.Error {
	return errors.NotFound(PlaceNotFound, fmt.Sprintf("%s place %d not found", table, placeID))
}

// NormalizeCountryCodes 校验并规范化国家过滤：空串忽略，长度必须为 2，统一小写。
func NormalizeCountryCodes(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(c) != 2 {
			return nil, errors.BadRequest(InvalidCountryCode, fmt.Sprintf("country code invalid %s", c))
		}
		out = append(out, strings.ToLower(c))
	}
	return out, nil
}

// SplitCSV splits a comma separated flag value.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
