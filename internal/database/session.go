// Package database provides the persistent session store and the
// host video-database reader.
package database

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCookies  = []byte("cookies")
	bucketDevice   = []byte("device")
	bucketSearches = []byte("searches")
)

var (
	keyDeviceID  = []byte("device_id")
	keyProfileID = []byte("profile_id")
)

// storedCookie is the serialized form of a jar entry.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"httpOnly"`
}

// SessionStore persists authentication cookies, the device identity
// and the search history in a single bbolt file. It implements
// http.CookieJar so it can be attached directly to an http.Client.
type SessionStore struct {
	db *bolt.DB

	mu      sync.Mutex
	cookies map[string][]storedCookie // keyed by cookie domain
}

// NewSessionStore opens (or creates) the store at path and loads the
// cookie jar into memory.
func NewSessionStore(path string) (*SessionStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("session store: opening %s: %w", path, err)
	}
	s := &SessionStore{db: db, cookies: make(map[string][]storedCookie)}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCookies, bucketDevice, bucketSearches} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketCookies).ForEach(func(k, v []byte) error {
			var list []storedCookie
			if err := json.Unmarshal(v, &list); err != nil {
				return nil // discard corrupt entries
			}
			s.cookies[string(k)] = list
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session store: init: %w", err)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// SetCookies merges cookies into the jar, replacing entries that match
// on name, domain and path.
func (s *SessionStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = u.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		sc := storedCookie{
			Name: c.Name, Value: c.Value, Domain: domain, Path: path,
			Expires: c.Expires, Secure: c.Secure, HTTPOnly: c.HttpOnly,
		}
		list := s.cookies[domain]
		replaced := false
		for i := range list {
			if list[i].Name == sc.Name && list[i].Path == sc.Path {
				list[i] = sc
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, sc)
		}
		s.cookies[domain] = list
	}
}

// Cookies returns the unexpired cookies applicable to u.
func (s *SessionStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	host := u.Hostname()
	now := time.Now()
	var out []*http.Cookie
	for domain, list := range s.cookies {
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		for _, sc := range list {
			if !sc.Expires.IsZero() && sc.Expires.Before(now) {
				continue
			}
			if !strings.HasPrefix(u.Path, sc.Path) && sc.Path != "/" {
				continue
			}
			out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value})
		}
	}
	return out
}

// CookieValue returns the value of the first cookie with name across
// all domains, or "".
func (s *SessionStore) CookieValue(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.cookies {
		for _, sc := range list {
			if sc.Name == name {
				return sc.Value
			}
		}
	}
	return ""
}

// Save writes the in-memory jar to disk in one transaction.
func (s *SessionStore) Save() error {
	s.mu.Lock()
	snapshot := make(map[string][]byte, len(s.cookies))
	for domain, list := range s.cookies {
		data, err := json.Marshal(list)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session store: encoding cookies: %w", err)
		}
		snapshot[domain] = data
	}
	s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketCookies); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketCookies)
		if err != nil {
			return err
		}
		for domain, data := range snapshot {
			if err := b.Put([]byte(domain), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset drops all cookie state, in memory and on disk. Device identity
// and search history survive a logout.
func (s *SessionStore) Reset() error {
	s.mu.Lock()
	s.cookies = make(map[string][]storedCookie)
	s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketCookies); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketCookies)
		return err
	})
}

// DeviceID returns the stable device identifier, generating and
// persisting a UUID on first use.
func (s *SessionStore) DeviceID() (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevice)
		if v := b.Get(keyDeviceID); v != nil {
			id = string(v)
			return nil
		}
		id = uuid.NewString()
		return b.Put(keyDeviceID, []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("session store: device id: %w", err)
	}
	return id, nil
}

// ProfileID returns the stored account profile id, or "".
func (s *SessionStore) ProfileID() string {
	var id string
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketDevice).Get(keyProfileID); v != nil {
			id = string(v)
		}
		return nil
	})
	return id
}

// SetProfileID persists the account profile id.
func (s *SessionStore) SetProfileID(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDevice).Put(keyProfileID, []byte(id))
	})
}

// AddSearch records a query in the search history. Re-searching an
// existing query moves it to the front.
func (s *SessionStore) AddSearch(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		stamp := time.Now().UTC().Format(time.RFC3339Nano)
		return tx.Bucket(bucketSearches).Put([]byte(query), []byte(stamp))
	})
}

// Searches returns the history, most recent first.
func (s *SessionStore) Searches() ([]string, error) {
	type entry struct {
		query string
		when  string
	}
	var entries []entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSearches).ForEach(func(k, v []byte) error {
			entries = append(entries, entry{string(k), string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].when > entries[j].when })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.query
	}
	return out, nil
}

// RemoveSearch deletes one query from the history.
func (s *SessionStore) RemoveSearch(query string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSearches).Delete([]byte(query))
	})
}
