package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/rgtrack/internal/domain/model"
)

const (
	importPrefix     = "import:"
	importUserPrefix = "import_user:"
)

func importKey(id string) string { return importPrefix + id }

func importUserKey(doc *model.ImportDocument) string {
	return fmt.Sprintf("%s%d:%020d:%s", importUserPrefix, doc.UserID, doc.TimeFinished.UnixNano(), doc.ImportID)
}

// InsertImport persists a finished import document.
func (s *Store) InsertImport(ctx context.Context, doc *model.ImportDocument) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, importKey(doc.ImportID))
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyExists
		}
		if err := setJSON(txn, importKey(doc.ImportID), doc); err != nil {
			return err
		}
		return txn.Set([]byte(importUserKey(doc)), nil)
	})
}

// GetImport returns an import document or ErrNotFound.
func (s *Store) GetImport(_ context.Context, id string) (*model.ImportDocument, error) {
	var doc *model.ImportDocument
	err := s.view(func(txn *badger.Txn) (err error) {
		doc, err = getJSON[model.ImportDocument](txn, importKey(id))
		return err
	})
	return doc, err
}

// ImportFilter narrows ListImports.
type ImportFilter struct {
	// FinishedBefore, when non-zero, only returns imports finished strictly before it.
	FinishedBefore time.Time
	// UserIntentOnly only returns imports the user explicitly triggered.
	UserIntentOnly bool
	Limit          int
}

// ListImports returns a user's imports, newest first.
func (s *Store) ListImports(_ context.Context, userID int, f ImportFilter) ([]model.ImportDocument, error) {
	if f.Limit < 1 {
		return nil, ErrInvalidLimit
	}
	var out []model.ImportDocument
	err := s.view(func(txn *badger.Txn) error {
		prefix := fmt.Sprintf("%s%d:", importUserPrefix, userID)
		var keys []string
		scanKeys(txn, prefix, func(key string) bool {
			keys = append(keys, strings.TrimPrefix(key, prefix))
			return true
		})
		for i := len(keys) - 1; i >= 0 && len(out) < f.Limit; i-- {
			nanos, id, _ := strings.Cut(keys[i], ":")
			if !f.FinishedBefore.IsZero() && nanos >= fmt.Sprintf("%020d", f.FinishedBefore.UnixNano()) {
				continue
			}
			doc, err := getJSON[model.ImportDocument](txn, importKey(id))
			if err != nil {
				return err
			}
			if f.UserIntentOnly && !doc.UserIntent {
				continue
			}
			out = append(out, *doc)
		}
		return nil
	})
	return out, err
}
