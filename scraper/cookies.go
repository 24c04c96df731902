package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/proto"
)

// CookieStore persists browser cookies as a JSON file.
type CookieStore struct {
	path string
}

// NewCookieStore creates a store backed by path.
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// Path returns the cookie file path.
func (s *CookieStore) Path() string {
	return s.path
}

// Exists reports whether a cookie file is present.
func (s *CookieStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Delete removes the cookie file. A missing file is not an error.
func (s *CookieStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Save writes the browser's current cookies to the store.
func (s *CookieStore) Save(b *Browser) error {
	cookies, err := b.Cookies()
	if err != nil {
		return fmt.Errorf("read browser cookies: %w", err)
	}
	return s.Write(cookies)
}

// Load installs the stored cookies into the browser.
func (s *CookieStore) Load(b *Browser) error {
	cookies, err := s.Read()
	if err != nil {
		return err
	}
	if err := b.SetCookies(cookies); err != nil {
		return fmt.Errorf("set browser cookies: %w", err)
	}
	return nil
}

// Write stores cookies, creating the parent directory if needed.
func (s *CookieStore) Write(cookies []*proto.NetworkCookie) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Read returns the stored cookies.
func (s *CookieStore) Read() ([]*proto.NetworkCookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", s.path, err)
	}
	return cookies, nil
}
