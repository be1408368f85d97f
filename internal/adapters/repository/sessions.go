package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/rgtrack/internal/domain/model"
)

const (
	sessionPrefix     = "session:"
	sessionUserPrefix = "session_user:"
)

func sessionKey(id string) string { return sessionPrefix + id }

func sessionUserKey(s *model.Session) string {
	return fmt.Sprintf("%s%d:%s:%s:%020d:%s", sessionUserPrefix, s.UserID, s.Game, s.Playtype, s.TimeEnded.UnixNano(), s.SessionID)
}

// PutSession inserts or replaces a session, moving its per-user index key when timeEnded changes.
func (s *Store) PutSession(ctx context.Context, sess *model.Session) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		old, err := getJSON[model.Session](txn, sessionKey(sess.SessionID))
		switch {
		case err == nil:
			if err := del(txn, sessionUserKey(old)); err != nil {
				return err
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := setJSON(txn, sessionKey(sess.SessionID), sess); err != nil {
			return err
		}
		return txn.Set([]byte(sessionUserKey(sess)), []byte(sess.SessionID))
	})
}

// GetSession returns a session or ErrNotFound.
func (s *Store) GetSession(_ context.Context, id string) (*model.Session, error) {
	var sess *model.Session
	err := s.view(func(txn *badger.Txn) (err error) {
		sess, err = getJSON[model.Session](txn, sessionKey(id))
		return err
	})
	return sess, err
}

// LatestSession returns the user's most recently ended session on a GPT, or ErrNotFound.
func (s *Store) LatestSession(_ context.Context, userID int, game, playtype string) (*model.Session, error) {
	var sess *model.Session
	err := s.view(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%d:%s:%s:", sessionUserPrefix, userID, game, playtype))
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key at or below the prefix upper bound.
		it.Seek(append(append([]byte{}, prefix...), 0xff))
		if !it.ValidForPrefix(prefix) {
			return ErrNotFound
		}
		var id []byte
		if err := it.Item().Value(func(val []byte) error {
			id = append(id, val...)
			return nil
		}); err != nil {
			return err
		}
		got, err := getJSON[model.Session](txn, sessionKey(string(id)))
		sess = got
		return err
	})
	return sess, err
}

// ListSessions returns a user's sessions on a GPT, newest first.
func (s *Store) ListSessions(_ context.Context, userID int, game, playtype string, limit int) ([]model.Session, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var out []model.Session
	err := s.view(func(txn *badger.Txn) error {
		var ids []string
		prefix := fmt.Sprintf("%s%d:%s:%s:", sessionUserPrefix, userID, game, playtype)
		scanKeys(txn, prefix, func(key string) bool {
			ids = append(ids, key[strings.LastIndexByte(key, ':')+1:])
			return true
		})
		for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
			sess, err := getJSON[model.Session](txn, sessionKey(ids[i]))
			if err != nil {
				return err
			}
			out = append(out, *sess)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeEnded.After(out[j].TimeEnded) })
	return out, err
}
