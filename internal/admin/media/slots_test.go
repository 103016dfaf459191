package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-admin/internal/admin/catalog"
)

func files(names ...string) []File {
	out := make([]File, len(names))
	for i, n := range names {
		out[i] = File{StagingID: "stg-" + n, Name: n + ".png", ContentType: "image/png"}
	}
	return out
}

func TestAddTruncatesToCapacity(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeAdd)
	res := m.Add(files("a", "b"))
	require.Len(t, res.Accepted, 2)
	require.Empty(t, res.Message)

	res = m.Add(files("c", "d", "e"))
	require.Len(t, res.Accepted, 1)
	require.Equal(t, 2, res.Rejected)
	require.Equal(t, "Only added 1 images. Maximum limit is 3 images.", res.Message)
	require.Equal(t, 3, m.EffectiveCount())

	res = m.Add(files("f"))
	require.Empty(t, res.Accepted)
	require.Equal(t, "You can only upload a maximum of 3 images. Please remove some images first.", res.Message)
}

func TestRemovePendingShiftsLaterFiles(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeAdd)
	m.Add(files("a", "b", "c"))

	removed, err := m.Remove(1)
	require.NoError(t, err)
	require.Equal(t, "b.png", removed.File.Name)

	items := m.Items()
	require.Len(t, items, 2)
	require.Equal(t, 0, items[0].DisplayIndex)
	require.Equal(t, "a.png", items[0].File.Name)
	require.Equal(t, 1, items[1].DisplayIndex)
	require.Equal(t, 1, items[1].FileIndex)
	require.Equal(t, "c.png", items[1].File.Name)

	_, err = m.Remove(5)
	require.ErrorIs(t, err, ErrInvalidIndex)
}

func TestEditModeRemoveExistingFreesCapacity(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png", SecondImg: "two.png", ThirdImg: "three.png"})
	require.Equal(t, 3, m.EffectiveCount())
	require.Equal(t, 0, m.Remaining())

	removed, err := m.Remove(1)
	require.NoError(t, err)
	require.Equal(t, catalog.SlotSecond, removed.Slot)
	require.Equal(t, []catalog.Slot{catalog.SlotSecond}, m.RemovedSlots())

	res := m.Add(files("new"))
	require.Len(t, res.Accepted, 1)

	items := m.Items()
	require.Len(t, items, 3)
	require.Equal(t, KindExisting, items[0].Kind)
	require.Equal(t, catalog.SlotThird, items[1].Slot)
	require.Equal(t, KindPending, items[2].Kind)

	images, err := m.Resolve([]string{"https://cdn/new.png"})
	require.NoError(t, err)
	require.Equal(t, catalog.ProductImages{FirstImg: "one.png", SecondImg: "https://cdn/new.png", ThirdImg: "three.png"}, images)
}

func TestResolveAddModeIsPositional(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeAdd)
	m.Add(files("a", "b"))
	images, err := m.Resolve([]string{"u1", "u2"})
	require.NoError(t, err)
	require.Equal(t, catalog.ProductImages{FirstImg: "u1", SecondImg: "u2"}, images)

	_, err = m.Resolve([]string{"1", "2", "3", "4"})
	require.ErrorIs(t, err, ErrTooManyImages)
}

func TestRemoveAllAndValidate(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png", ThirdImg: "three.png"})
	m.Add(files("a"))
	require.NoError(t, m.Validate())

	dropped := m.RemoveAll()
	require.Len(t, dropped, 1)
	require.Empty(t, m.Items())
	require.Equal(t, []catalog.Slot{catalog.SlotFirst, catalog.SlotThird}, m.RemovedSlots())
	require.Equal(t, []string{"one.png", "three.png"}, m.ExistingURLs())

	err := m.Validate()
	require.True(t, errors.Is(err, ErrNoImages))
	require.Contains(t, err.Error(), "keep at least one existing image")

	add := NewManager(ModeAdd)
	err = add.Validate()
	require.ErrorIs(t, err, ErrNoImages)
	require.Contains(t, err.Error(), "before saving the product")
}

func TestSnapshotRestoreRejectsInconsistentState(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png", SecondImg: "two.png"})
	_, err := m.Remove(0)
	require.NoError(t, err)
	m.Add(files("a"))

	restored := NewManager(ModeAdd)
	require.NoError(t, restored.Restore(m.Snapshot()))
	require.Equal(t, ModeEdit, restored.Mode())
	require.Equal(t, m.Items(), restored.Items())
	require.Equal(t, m.RemovedSlots(), restored.RemovedSlots())

	require.Error(t, restored.Restore(Snapshot{Mode: ModeAdd, Existing: catalog.ProductImages{FirstImg: "x"}}))
	require.Error(t, restored.Restore(Snapshot{Mode: ModeEdit, Removed: []catalog.Slot{"fourthImg"}}))
}

func TestAddInEditModeKeepsOneFreeSlot(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png", SecondImg: "two.png"})

	res := m.Add(files("a", "b"))
	require.Len(t, res.Accepted, 1)
	require.Equal(t, "a.png", res.Accepted[0].Name)
	require.Equal(t, 1, res.Rejected)
	require.Equal(t, "Only added 1 images. Maximum limit is 3 images.", res.Message)
	require.Equal(t, 3, m.EffectiveCount())
	require.Equal(t, 0, m.Remaining())
}

func TestRemovePendingAfterExistingUsesFileIndex(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png"})
	m.Add(files("a", "b"))

	items := m.Items()
	require.Len(t, items, 3)
	require.Equal(t, KindPending, items[2].Kind)
	require.Equal(t, 2, items[2].DisplayIndex)
	require.Equal(t, 1, items[2].FileIndex)

	removed, err := m.Remove(1)
	require.NoError(t, err)
	require.Equal(t, KindPending, removed.Kind)
	require.Equal(t, "a.png", removed.File.Name)

	items = m.Items()
	require.Len(t, items, 2)
	require.Equal(t, KindExisting, items[0].Kind)
	require.Equal(t, "b.png", items[1].File.Name)
	require.Equal(t, 1, items[1].DisplayIndex)
	require.Equal(t, 0, items[1].FileIndex)
	require.Equal(t, []File{{StagingID: "stg-b", Name: "b.png", ContentType: "image/png"}}, m.PendingFiles())
}

func TestRebaseDropsRemovalsAndOverflow(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png"})
	_, err := m.Remove(0)
	require.NoError(t, err)
	m.Add(files("a", "b"))

	stored := catalog.ProductImages{FirstImg: "one.png", SecondImg: "two.png"}
	require.False(t, m.MatchesStored(stored))

	dropped := m.Rebase(stored)
	require.Equal(t, []File{{StagingID: "stg-b", Name: "b.png", ContentType: "image/png"}}, dropped)
	require.True(t, m.MatchesStored(stored))
	require.Empty(t, m.RemovedSlots())
	require.Equal(t, 3, m.EffectiveCount())
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()

	m := NewManager(ModeEdit)
	m.LoadExisting(catalog.ProductImages{FirstImg: "one.png"})
	m.Add(files("a"))
	m.Reset(ModeAdd)
	require.Empty(t, m.Items())
	require.Empty(t, m.PendingFiles())
	require.Equal(t, ModeAdd, m.Mode())
}
