package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// Query narrows a statement. Column names always come from code, never from input.
type Query interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryFunc func(db *gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Eq matches column = value.
func Eq(column string, value any) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s = ?", column), value)
	})
}

// EqOpt matches column = *value, or column IS NULL when value is nil.
func EqOpt[V any](column string, value *V) Query {
	if value == nil {
		return IsNull(column)
	}
	return Eq(column, *value)
}

func IsNull(column string) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s IS NULL", column))
	})
}

func NotNull(column string) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s IS NOT NULL", column))
	})
}

func In[V any](column string, values []V) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s IN ?", column), values)
	})
}

func Gt(column string, value any) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s > ?", column), value)
	})
}

func Gte(column string, value any) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s >= ?", column), value)
	})
}

func Lte(column string, value any) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s <= ?", column), value)
	})
}

// Like matches a prefix, used for free-name probing.
func Like(column, pattern string) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s LIKE ?", column), pattern)
	})
}

func Limit(n int) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB { return db.Limit(n) })
}

func OrderBy(column string, desc bool) Query {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if desc {
			return db.Order(column + " DESC")
		}
		return db.Order(column + " ASC")
	})
}
