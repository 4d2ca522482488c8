package datalake

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateAccessKey is returned by Insert when another document already holds
	// the access key. The unique constraint is the authoritative guard when several
	// loaders race on the same document.
	ErrDuplicateAccessKey = errors.New("access key already persisted")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
)

// Repository defines the persistence contract for fiscal documents.
type Repository interface {
	// DocumentIDByAccessKey reports whether a document with the key exists.
	DocumentIDByAccessKey(ctx context.Context, accessKey string) (int64, bool, error)
	// ExistingAccessKeys returns the subset of keys already persisted.
	ExistingAccessKeys(ctx context.Context, accessKeys []string) (map[string]bool, error)
	// Insert stores a document with its items and installments in one transaction.
	Insert(ctx context.Context, rec Record) (int64, error)
	// ListRaw pages stored bodies ordered by id, starting after afterID.
	ListRaw(ctx context.Context, afterID int64, limit int) ([]RawDocument, error)
	// PatchMissing fills columns that are still NULL from rec, matching items by
	// item number. It returns the number of rows touched.
	PatchMissing(ctx context.Context, documentID int64, rec Record) (int64, error)
}
