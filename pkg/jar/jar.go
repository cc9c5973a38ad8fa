package jar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/gradeclient/pkg/logger"
)

// Jar is an http.CookieJar with optional file persistence.
type Jar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	path    string
	log     *slog.Logger
	now     func() time.Time
	entries map[string]map[string]*http.Cookie // origin -> cookie key -> cookie
}

// Option configures a Jar.
type Option func(*Jar)

// WithFile persists cookies to path.
func WithFile(path string) Option {
	return func(j *Jar) {
		j.path = path
	}
}

// WithLogger reports persistence failures to l.
func WithLogger(l *slog.Logger) Option {
	return func(j *Jar) {
		if l != nil {
			j.log = l
		}
	}
}

// New creates a jar, loading previously persisted cookies when a file is set.
func New(opts ...Option) (*Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	j := &Jar{
		inner:   inner,
		log:     logger.Discard(),
		now:     time.Now,
		entries: make(map[string]map[string]*http.Cookie),
	}
	for _, opt := range opts {
		opt(j)
	}

	if j.path != "" {
		if err := j.load(); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	if j.path == "" || len(cookies) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	origin := originOf(u)
	bucket := j.entries[origin]
	if bucket == nil {
		bucket = make(map[string]*http.Cookie)
		j.entries[origin] = bucket
	}

	now := j.now()
	for _, c := range cookies {
		if c.Path == "" {
			cp := *c
			cp.Path = defaultPath(u.Path)
			c = &cp
		}
		key := cookieKey(c)
		if expired(c, now) {
			delete(bucket, key)
			continue
		}
		bucket[key] = persistable(c, now)
	}
	if len(bucket) == 0 {
		delete(j.entries, origin)
	}

	if err := j.save(); err != nil {
		j.log.Warn("failed to persist cookies", slog.String("path", j.path), logger.Error(err))
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

type fileFormat struct {
	Origins map[string][]*http.Cookie `json:"origins"`
}

func (j *Jar) load() error {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	now := j.now()
	for origin, cookies := range f.Origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		bucket := make(map[string]*http.Cookie, len(cookies))
		live := make([]*http.Cookie, 0, len(cookies))
		for _, c := range cookies {
			if c == nil || expired(c, now) {
				continue
			}
			bucket[cookieKey(c)] = c
			live = append(live, c)
		}
		if len(live) == 0 {
			continue
		}
		j.entries[origin] = bucket
		// Path "/" so the inner jar accepts cookies scoped to any path.
		j.inner.SetCookies(&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, live)
	}
	return nil
}

func (j *Jar) save() error {
	f := fileFormat{Origins: make(map[string][]*http.Cookie, len(j.entries))}
	for origin, bucket := range j.entries {
		list := make([]*http.Cookie, 0, len(bucket))
		for _, c := range bucket {
			list = append(list, c)
		}
		f.Origins[origin] = list
	}

	data, err := json.Marshal(f)
	if err != nil {
		return errors.Join(ErrSaveFailed, err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Join(ErrSaveFailed, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Join(ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	return nil
}

func originOf(u *url.URL) string {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + u.Host
}

func cookieKey(c *http.Cookie) string {
	return c.Domain + ";" + c.Path + ";" + c.Name
}

func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	if c.MaxAge == 0 && !c.Expires.IsZero() && !c.Expires.After(now) {
		return true
	}
	return false
}

// defaultPath implements the RFC 6265 default-path rule.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

// persistable converts a relative Max-Age into an absolute expiry so the
// cookie keeps its lifetime when read back later.
func persistable(c *http.Cookie, now time.Time) *http.Cookie {
	cp := *c
	if cp.MaxAge > 0 {
		cp.Expires = now.Add(time.Duration(cp.MaxAge) * time.Second)
		cp.MaxAge = 0
	}
	cp.Raw = ""
	cp.Unparsed = nil
	return &cp
}
