package utils

import (
	"errors"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Sometimes we might get a BulkWriteException
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

func ParseIntDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Pagination turns raw page/limit query values into a clamped page, limit
// and skip offset.
func Pagination(pageStr, limitStr string) (page, limit, skip int) {
	page = ParseIntDefault(pageStr, 1)
	if page < 1 {
		page = 1
	}
	limit = ParseIntDefault(limitStr, DefaultPageLimit)
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit, (page - 1) * limit
}
