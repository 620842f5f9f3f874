package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/model"
)

// fileDocument is the on-disk layout: {"users":[{"email","passwordHash"}]}.
type fileDocument struct {
	Users []fileRecord `json:"users"`
}

// fileRecord also reads the "password" field that older files used for the hash.
type fileRecord struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// FileStore keeps every account in memory and rewrites the whole JSON
// document on each Create. All access goes through mu.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	log      *logger.Logger
	accounts []model.Account
	// index holds the position of the first record per email, counts how
	// many records share it.
	index  map[string]int
	counts map[string]int
}

// OpenFileStore loads the document at path. A missing file, or one that
// cannot be read or parsed, yields an empty store that is written out
// immediately. Unparsable contents are first moved to <path>.corrupt-<millis>.
func OpenFileStore(path string, log *logger.Logger) (*FileStore, error) {
	s := &FileStore{
		path: path,
		log:  log,
	}
	s.reset(nil)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		accounts, skipped, perr := parseDocument(data)
		if perr == nil {
			if skipped > 0 {
				log.Warn().Int("records", skipped).Str("path", path).Msg("skipping credential records without email or password hash")
			}
			s.reset(accounts)
			s.warnDuplicates()
			log.Info().Str("path", path).Int("accounts", len(s.accounts)).Msg("credential file loaded")
			return s, nil
		}
		log.Warn().Err(perr).Str("path", path).Msg("credential file unreadable, starting empty")
		s.quarantine()

	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", path).Msg("credential file not found, initializing")

	default:
		log.Warn().Err(err).Str("path", path).Msg("credential file unreadable, starting empty")
		s.quarantine()
	}

	if err := s.persist(); err != nil {
		return nil, fmt.Errorf("initializing credential file: %w", err)
	}

	return s, nil
}

// parseDocument returns the complete records of data and how many
// incomplete ones (no email or no hash) it dropped.
func parseDocument(data []byte) ([]model.Account, int, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, err
	}

	skipped := 0
	accounts := make([]model.Account, 0, len(doc.Users))
	for _, rec := range doc.Users {
		hash := rec.PasswordHash
		if hash == "" {
			hash = rec.Password
		}
		if rec.Email == "" || hash == "" {
			skipped++
			continue
		}
		accounts = append(accounts, model.Account{Email: rec.Email, PasswordHash: hash})
	}

	return accounts, skipped, nil
}

func (s *FileStore) reset(accounts []model.Account) {
	s.accounts = accounts
	s.index = make(map[string]int, len(accounts))
	s.counts = make(map[string]int, len(accounts))
	for i, a := range accounts {
		if s.counts[a.Email] == 0 {
			s.index[a.Email] = i
		}
		s.counts[a.Email]++
	}
}

func (s *FileStore) warnDuplicates() {
	dup := 0
	for _, n := range s.counts {
		if n > 1 {
			dup++
		}
	}
	if dup > 0 {
		s.log.Warn().Int("emails", dup).Msg("credential file holds duplicate emails, logins for them will fail")
	}
}

// quarantine moves an unreadable file out of the way so it is not overwritten.
func (s *FileStore) quarantine() {
	backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixMilli())
	if err := os.Rename(s.path, backup); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("could not move unreadable credential file aside")
		return
	}
	s.log.Warn().Str("backup", backup).Msg("unreadable credential file moved aside")
}

// persist writes the document to a temp file in the same directory and
// renames it over the target. Callers hold mu (or own s exclusively).
func (s *FileStore) persist() error {
	doc := struct {
		Users []model.Account `json:"users"`
	}{Users: s.accounts}
	if doc.Users == nil {
		doc.Users = []model.Account{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}

	return nil
}

func (s *FileStore) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.counts[email] {
	case 0:
		return model.Account{}, ErrAccountNotFound
	case 1:
		return s.accounts[s.index[email]], nil
	default:
		return model.Account{}, ErrMultipleAccounts
	}
}

// Create appends account and rewrites the file. If the write fails the
// append is undone, so memory never runs ahead of disk.
func (s *FileStore) Create(ctx context.Context, account model.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !utf8.ValidString(account.Email) {
		return ErrInvalidEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts[account.Email] > 0 {
		return ErrDuplicateEmail
	}

	s.accounts = append(s.accounts, account)
	s.index[account.Email] = len(s.accounts) - 1
	s.counts[account.Email] = 1

	if err := s.persist(); err != nil {
		s.accounts = s.accounts[:len(s.accounts)-1]
		delete(s.index, account.Email)
		delete(s.counts, account.Email)
		return fmt.Errorf("persisting accounts: %w", err)
	}

	return nil
}

// Close is a no-op; every Create is already on disk.
func (s *FileStore) Close() error {
	return nil
}
