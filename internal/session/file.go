package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/securecookie"
)

const fileCookieName = "opbook_session"

// FileStore keeps the session in a single sealed file, the CLI's stand-in
// for browser local storage.
type FileStore struct {
	path string
	sc   *securecookie.SecureCookie
}

func NewFileStore(path string, hashKey, blockKey []byte) *FileStore {
	sc := securecookie.New(hashKey, blockKey)
	// local storage entries never expire on their own
	sc.MaxAge(0)
	return &FileStore{path: path, sc: sc}
}

func (f *FileStore) Load() (User, bool, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	entries := map[string]string{}
	if err := f.sc.Decode(fileCookieName, strings.TrimSpace(string(b)), &entries); err != nil {
		return User{}, false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	u, ok := fromEntries(entries)
	return u, ok, nil
}

func (f *FileStore) Save(u User) error {
	encoded, err := f.sc.Encode(fileCookieName, toEntries(u))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(encoded+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
