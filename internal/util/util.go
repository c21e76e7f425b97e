// Package util provides small shared helpers.
package util

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// GenUUID generates a full-length unique id, used for request tracing.
func GenUUID() string {
	return uuid.New().String()
}

// GenShortUID generates a compact unique id for resource names.
func GenShortUID() string {
	return shortuuid.New()
}

// ConvertStringToInt32 parses s as a 32-bit integer.
func ConvertStringToInt32(s string) (int32, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(i), nil
}
