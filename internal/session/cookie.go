package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	userCookieName    = "opbook_session"
	browserCookieName = "opbook_browser"
	cookieMaxAge      = 14 * 24 * time.Hour
)

// CookieCodec seals session entries into browser cookies.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

func NewCookieCodec(hashKey, blockKey []byte) *CookieCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(cookieMaxAge.Seconds()))
	return &CookieCodec{sc: sc}
}

// Store binds the codec to one request/response pair.
func (c *CookieCodec) Store(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{codec: c, w: w, r: r}
}

// BrowserID returns the stable id of this browser, issuing one on first
// visit. It survives logout so a half-filled draft is not lost.
func (c *CookieCodec) BrowserID(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(browserCookieName); err == nil {
		var id string
		if err := c.sc.Decode(browserCookieName, ck.Value, &id); err == nil {
			if _, err := uuid.Parse(id); err == nil {
				return id
			}
		}
	}
	id := uuid.NewString()
	if encoded, err := c.sc.Encode(browserCookieName, id); err == nil {
		http.SetCookie(w, c.cookie(r, browserCookieName, encoded))
		// visible to later reads within the same request
		r.AddCookie(&http.Cookie{Name: browserCookieName, Value: encoded})
	}
	return id
}

func (c *CookieCodec) cookie(r *http.Request, name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(cookieMaxAge.Seconds()),
	}
}

type CookieStore struct {
	codec *CookieCodec
	w     http.ResponseWriter
	r     *http.Request
}

func (s *CookieStore) Load() (User, bool, error) {
	ck, err := s.r.Cookie(userCookieName)
	if err != nil {
		return User{}, false, nil
	}
	entries := map[string]string{}
	if err := s.codec.sc.Decode(userCookieName, ck.Value, &entries); err != nil {
		return User{}, false, ErrInvalid
	}
	u, ok := fromEntries(entries)
	return u, ok, nil
}

func (s *CookieStore) Save(u User) error {
	encoded, err := s.codec.sc.Encode(userCookieName, toEntries(u))
	if err != nil {
		return err
	}
	http.SetCookie(s.w, s.codec.cookie(s.r, userCookieName, encoded))
	return nil
}

func (s *CookieStore) Clear() error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     userCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	return nil
}
