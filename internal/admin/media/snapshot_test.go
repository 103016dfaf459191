package media

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-admin/internal/admin/catalog"
)

var testSnapshotKey = []byte("0123456789abcdef0123456789abcdef")

func TestSnapshotCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := NewSnapshotCodec(testSnapshotKey, 0)
	require.NoError(t, err)

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png", SecondImg: "two.png"})
	_, err = m.Remove(0)
	require.NoError(t, err)
	m.Add(files("a"))

	raw, err := codec.Seal(Sealed{Owner: "u1", ProductID: "7", Snapshot: m.Snapshot()})
	require.NoError(t, err)

	sealed, restored, err := codec.Restore(raw, "u1")
	require.NoError(t, err)
	require.Equal(t, "7", sealed.ProductID)
	require.Equal(t, ModeEdit, restored.Mode())
	require.Equal(t, m.Items(), restored.Items())
	require.Equal(t, m.RemovedSlots(), restored.RemovedSlots())
}

func TestSnapshotCodecRejectsForgedAndForeignSnapshots(t *testing.T) {
	t.Parallel()

	codec, err := NewSnapshotCodec(testSnapshotKey, 0)
	require.NoError(t, err)
	other, err := NewSnapshotCodec([]byte("fedcba9876543210fedcba9876543210"), 0)
	require.NoError(t, err)

	forged := NewManager(ModeEdit)
	forged.LoadExisting(catalog.ProductImages{FirstImg: "https://evil.example/x.png"})
	raw, err := other.Seal(Sealed{Owner: "u1", ProductID: "1", Snapshot: forged.Snapshot()})
	require.NoError(t, err)

	_, err = codec.Open(raw, "u1")
	require.ErrorIs(t, err, ErrSnapshotInvalid)

	_, err = codec.Open("not-a-snapshot", "u1")
	require.ErrorIs(t, err, ErrSnapshotInvalid)
	_, err = codec.Open("", "u1")
	require.ErrorIs(t, err, ErrSnapshotInvalid)

	raw, err = codec.Seal(Sealed{Owner: "u2", Snapshot: NewManager(ModeAdd).Snapshot()})
	require.NoError(t, err)
	_, err = codec.Open(raw, "u1")
	require.ErrorIs(t, err, ErrSnapshotForeign)
}

func TestSnapshotCodecRestoreChecksModeAgainstProduct(t *testing.T) {
	t.Parallel()

	codec, err := NewSnapshotCodec(testSnapshotKey, 0)
	require.NoError(t, err)

	raw, err := codec.Seal(Sealed{Owner: "u1", ProductID: "3", Snapshot: NewManager(ModeAdd).Snapshot()})
	require.NoError(t, err)
	_, _, err = codec.Restore(raw, "u1")
	require.ErrorIs(t, err, ErrSnapshotInvalid)

	raw, err = codec.Seal(Sealed{Owner: "u1", Snapshot: NewManager(ModeEdit).Snapshot()})
	require.NoError(t, err)
	_, _, err = codec.Restore(raw, "u1")
	require.ErrorIs(t, err, ErrSnapshotInvalid)
}

func TestNewSnapshotCodecGeneratesKey(t *testing.T) {
	t.Parallel()

	codec, err := NewSnapshotCodec(nil, 0)
	require.NoError(t, err)
	raw, err := codec.Seal(Sealed{Owner: "u1", Snapshot: NewManager(ModeAdd).Snapshot()})
	require.NoError(t, err)
	_, mgr, err := codec.Restore(raw, "u1")
	require.NoError(t, err)
	require.Equal(t, ModeAdd, mgr.Mode())
}
