package media

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	snapshotName = "product_media"

	// DefaultSnapshotMaxAge bounds how long an editor may keep a grid open between requests.
	DefaultSnapshotMaxAge = 12 * time.Hour

	maxSnapshotLength = 16 << 10
)

var (
	// ErrSnapshotInvalid reports a snapshot that was not issued by this server or has expired.
	ErrSnapshotInvalid = errors.New("media: invalid snapshot")
	// ErrSnapshotForeign reports a signed snapshot issued to another user or product.
	ErrSnapshotForeign = errors.New("media: snapshot belongs to another editor")
)

// Sealed is a snapshot together with the editor it was issued to. ProductID is empty while
// creating a product.
type Sealed struct {
	Owner     string   `json:"o"`
	ProductID string   `json:"p,omitempty"`
	Snapshot  Snapshot `json:"s"`
}

// SnapshotCodec signs snapshots for the hidden form field so clients cannot alter stored image
// URLs or staging IDs.
type SnapshotCodec struct {
	codec *securecookie.SecureCookie
}

// NewSnapshotCodec builds a codec from an HMAC key. An empty key generates a per-process key,
// which invalidates open editors on restart.
func NewSnapshotCodec(hashKey []byte, maxAge time.Duration) (*SnapshotCodec, error) {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, errors.New("media: generate snapshot key")
		}
	}
	if maxAge <= 0 {
		maxAge = DefaultSnapshotMaxAge
	}
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(maxAge / time.Second))
	codec.MaxLength(maxSnapshotLength)
	return &SnapshotCodec{codec: codec}, nil
}

// Seal signs s.
func (c *SnapshotCodec) Seal(s Sealed) (string, error) {
	encoded, err := c.codec.Encode(snapshotName, s)
	if err != nil {
		return "", fmt.Errorf("media: seal snapshot: %w", err)
	}
	return encoded, nil
}

// Open verifies raw and checks it was issued to owner.
func (c *SnapshotCodec) Open(raw, owner string) (Sealed, error) {
	var s Sealed
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sealed{}, ErrSnapshotInvalid
	}
	if err := c.codec.Decode(snapshotName, raw, &s); err != nil {
		return Sealed{}, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if s.Owner != owner {
		return Sealed{}, ErrSnapshotForeign
	}
	return s, nil
}

// Restore opens raw and rebuilds a Manager from it.
func (c *SnapshotCodec) Restore(raw, owner string) (Sealed, *Manager, error) {
	s, err := c.Open(raw, owner)
	if err != nil {
		return Sealed{}, nil, err
	}
	mgr := NewManager(s.Snapshot.Mode)
	if err := mgr.Restore(s.Snapshot); err != nil {
		return Sealed{}, nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if (s.ProductID == "") != (mgr.Mode() == ModeAdd) {
		return Sealed{}, nil, fmt.Errorf("%w: mode %s for product %q", ErrSnapshotInvalid, mgr.Mode(), s.ProductID)
	}
	return s, mgr, nil
}
