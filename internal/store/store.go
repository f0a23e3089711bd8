// Package store holds the PostgreSQL repositories for attributes, products and
// enrichment jobs, plus the Redis snapshot cache for jobs.
package store

import (
	"database/sql"
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("RESOURCE_NOT_FOUND")
	ErrDuplicateName     = errors.New("DUPLICATE_ATTRIBUTE_NAME")
	ErrInvalidTransition = errors.New("INVALID_JOB_TRANSITION")
	ErrCacheMiss         = errors.New("CACHE_MISS")
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
