package preview

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/cryptoutil"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

const (
	CookieName    = "bhfe_draft"
	DefaultMaxAge = time.Hour

	cookieVersion = "v1"
)

// ErrDisabled is returned by Enable when no signer is configured.
var ErrDisabled = errors.New("preview is not configured")

// Session is the preview state of one request.
type Session struct {
	Enabled  bool
	PostID   string
	PostType string
}

type Options struct {
	// Secure marks the cookie Secure. Off only for plain http development.
	Secure bool
	MaxAge time.Duration
	Now    func() time.Time
}

// Manager issues and reads preview cookies.
type Manager struct {
	signer cryptoutil.Signer
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

// NewManager returns a Manager. A nil signer disables preview: Read
// always reports a disabled session and Enable fails.
func NewManager(signer cryptoutil.Signer, opts Options) *Manager {
	m := &Manager{signer: signer, secure: opts.Secure, maxAge: opts.MaxAge, now: opts.Now}
	if m.maxAge <= 0 {
		m.maxAge = DefaultMaxAge
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) Configured() bool { return m != nil && m.signer != nil }

var (
	validPostID   = regexp.MustCompile(`^[0-9]{1,20}$`)
	validPostType = regexp.MustCompile(`^[a-z0-9_-]{1,40}$`)
)

// Enable signs a session for postID and sets the cookie on w.
func (m *Manager) Enable(ctx context.Context, w http.ResponseWriter, postID, postType string) error {
	if !m.Configured() {
		return ErrDisabled
	}
	if !validPostID.MatchString(postID) {
		return xerrors.Newf("invalid preview post id %q", postID)
	}
	if postType == "" {
		postType = "post"
	}
	if !validPostType.MatchString(postType) {
		return xerrors.Newf("invalid preview post type %q", postType)
	}
	exp := m.now().Add(m.maxAge).Unix()
	payload := strings.Join([]string{cookieVersion, strconv.FormatInt(exp, 10), postID, postType}, "|")
	tag, err := m.signer.Sign(ctx, []byte(payload))
	if err != nil {
		return xerrors.Wrap(err, "sign preview cookie")
	}
	value := b64(payload) + "." + base64.RawURLEncoding.EncodeToString(tag)
	http.SetCookie(w, m.cookie(value, int(m.maxAge/time.Second)))
	return nil
}

// Clear expires the preview cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

// Read returns the session carried by r. Missing, malformed, expired or
// badly signed cookies all yield a disabled session.
func (m *Manager) Read(ctx context.Context, r *http.Request) Session {
	if !m.Configured() {
		return Session{}
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Session{}
	}
	s, err := m.decode(ctx, c.Value)
	if err != nil {
		return Session{}
	}
	return s
}

func (m *Manager) decode(ctx context.Context, value string) (Session, error) {
	enc, encTag, ok := strings.Cut(value, ".")
	if !ok {
		return Session{}, xerrors.New("malformed preview cookie")
	}
	payload, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return Session{}, xerrors.Wrap(err, "decode preview payload")
	}
	tag, err := base64.RawURLEncoding.DecodeString(encTag)
	if err != nil {
		return Session{}, xerrors.Wrap(err, "decode preview tag")
	}
	if err := m.signer.Verify(ctx, payload, tag); err != nil {
		return Session{}, err
	}

	parts := strings.Split(string(payload), "|")
	if len(parts) != 4 || parts[0] != cookieVersion {
		return Session{}, xerrors.New("unsupported preview cookie")
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Session{}, xerrors.Wrap(err, "parse preview expiry")
	}
	if m.now().Unix() >= exp {
		return Session{}, xerrors.New("preview cookie expired")
	}
	return Session{Enabled: true, PostID: parts[2], PostType: parts[3]}, nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func b64(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
