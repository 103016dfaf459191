package media

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"finitefield.org/catalog-admin/internal/admin/catalog"
)

// MaxImages is the number of image slots a product has.
const MaxImages = 3

// Mode selects add (new product) or edit (existing product) reconciliation.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

var (
	// ErrNoImages is matched by errors.Is when a submission would leave the product without images.
	ErrNoImages = errors.New("media: at least one product image is required")
	// ErrInvalidIndex reports a display index outside the current items.
	ErrInvalidIndex = errors.New("media: invalid image index")
	// ErrTooManyImages reports more uploaded URLs than free slots.
	ErrTooManyImages = errors.New("media: more images than free slots")
)

// NoImagesError is the mode-specific form of ErrNoImages.
type NoImagesError struct {
	Mode Mode
}

// Error returns the message shown to the user.
func (e *NoImagesError) Error() string {
	if e.Mode == ModeEdit {
		return "At least one product image is required. Please upload a new image or keep at least one existing image."
	}
	return "At least one product image is required. Please upload at least one image before saving the product."
}

// Is allows errors.Is(err, ErrNoImages).
func (e *NoImagesError) Is(target error) bool {
	return target == ErrNoImages
}

// File is a pending upload. Its bytes live in a StagingStore under StagingID.
type File struct {
	StagingID   string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"type"`
	Size        int64  `json:"size"`
}

// ItemKind distinguishes stored images from pending uploads.
type ItemKind string

const (
	KindExisting ItemKind = "existing"
	KindPending  ItemKind = "pending"
)

// Item is one visible image tile. DisplayIndex is contiguous from 0.
type Item struct {
	DisplayIndex int
	Kind         ItemKind
	Slot         catalog.Slot
	URL          string
	FileIndex    int
	File         File
}

// AddResult reports how many files Add accepted.
type AddResult struct {
	Accepted []File
	Rejected int
	Message  string
}

// Manager reconciles the three positional image slots of a product with pending uploads and
// removals.
type Manager struct {
	mu       sync.Mutex
	mode     Mode
	existing catalog.ProductImages
	removed  map[catalog.Slot]bool
	pending  []File
}

// NewManager constructs an empty Manager in mode.
func NewManager(mode Mode) *Manager {
	m := &Manager{}
	m.Reset(mode)
	return m
}

// Reset clears all state and enters mode.
func (m *Manager) Reset(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode != ModeEdit {
		mode = ModeAdd
	}
	m.mode = mode
	m.existing = catalog.ProductImages{}
	m.removed = make(map[catalog.Slot]bool)
	m.pending = nil
}

// Mode returns the current mode.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// LoadExisting records the stored images of the product being edited.
func (m *Manager) LoadExisting(images catalog.ProductImages) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range catalog.Slots {
		images.Set(slot, strings.TrimSpace(images.Get(slot)))
	}
	m.existing = images
	m.removed = make(map[catalog.Slot]bool)
}

// Add appends files up to the remaining capacity.
func (m *Manager) Add(files []File) AddResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(files) == 0 {
		return AddResult{}
	}
	remaining := MaxImages - m.effectiveCountLocked()
	if remaining <= 0 {
		return AddResult{
			Rejected: len(files),
			Message:  "You can only upload a maximum of 3 images. Please remove some images first.",
		}
	}
	res := AddResult{}
	accepted := files
	if len(files) > remaining {
		accepted = files[:remaining]
		res.Rejected = len(files) - remaining
		res.Message = fmt.Sprintf("Only added %d images. Maximum limit is %d images.", remaining, MaxImages)
	}
	m.pending = append(m.pending, accepted...)
	res.Accepted = append([]File(nil), accepted...)
	return res
}

// Remove deletes the tile at displayIndex. Stored images are marked removed; pending files are
// dropped and later pending files shift down.
func (m *Manager) Remove(displayIndex int) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.itemsLocked()
	if displayIndex < 0 || displayIndex >= len(items) {
		return Item{}, fmt.Errorf("%w: %d", ErrInvalidIndex, displayIndex)
	}
	item := items[displayIndex]
	switch item.Kind {
	case KindExisting:
		m.removed[item.Slot] = true
	case KindPending:
		m.pending = append(m.pending[:item.FileIndex], m.pending[item.FileIndex+1:]...)
	}
	return item, nil
}

// RemoveAll marks every stored image removed and drops all pending files. It returns the
// dropped pending files so their staged bytes can be released.
func (m *Manager) RemoveAll() []File {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range catalog.Slots {
		if m.existing.Get(slot) != "" {
			m.removed[slot] = true
		}
	}
	dropped := m.pending
	m.pending = nil
	return dropped
}

// Items returns the visible tiles: kept stored images in slot order, then pending files.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsLocked()
}

// PendingFiles returns the pending uploads in order.
func (m *Manager) PendingFiles() []File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]File(nil), m.pending...)
}

// RemovedSlots returns the removed stored slots in slot order.
func (m *Manager) RemovedSlots() []catalog.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Slot
	for _, slot := range catalog.Slots {
		if m.removed[slot] {
			out = append(out, slot)
		}
	}
	return out
}

// ExistingURLs returns the stored image URLs, removed or not, in slot order.
func (m *Manager) ExistingURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, slot := range catalog.Slots {
		if url := m.existing.Get(slot); url != "" {
			out = append(out, url)
		}
	}
	return out
}

// EffectiveCount is kept stored images plus pending uploads.
func (m *Manager) EffectiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.effectiveCountLocked()
}

// Remaining is the number of files Add would still accept.
func (m *Manager) Remaining() int {
	return MaxImages - m.EffectiveCount()
}

// Validate fails with a NoImagesError when the submission would have no images.
func (m *Manager) Validate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == ModeAdd {
		if len(m.pending) == 0 {
			return &NoImagesError{Mode: ModeAdd}
		}
		return nil
	}
	if m.effectiveCountLocked() <= 0 {
		return &NoImagesError{Mode: ModeEdit}
	}
	return nil
}

// Resolve produces the final slot assignment from the uploaded URLs of the pending files.
// Add mode assigns positionally. Edit mode keeps stored images that were not removed and fills
// the empty slots in slot order.
func (m *Manager) Resolve(uploaded []string) (catalog.ProductImages, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out catalog.ProductImages
	if m.mode == ModeAdd {
		if len(uploaded) > MaxImages {
			return out, fmt.Errorf("%w: %d uploads", ErrTooManyImages, len(uploaded))
		}
		for i, url := range uploaded {
			out.Set(catalog.Slots[i], url)
		}
		return out, nil
	}

	for _, slot := range catalog.Slots {
		if !m.removed[slot] {
			out.Set(slot, m.existing.Get(slot))
		}
	}
	next := 0
	for _, slot := range catalog.Slots {
		if next >= len(uploaded) {
			break
		}
		if out.Get(slot) == "" {
			out.Set(slot, uploaded[next])
			next++
		}
	}
	if next < len(uploaded) {
		return catalog.ProductImages{}, fmt.Errorf("%w: %d left over", ErrTooManyImages, len(uploaded)-next)
	}
	return out, nil
}

func (m *Manager) effectiveCountLocked() int {
	n := len(m.pending)
	for _, slot := range catalog.Slots {
		if m.existing.Get(slot) != "" && !m.removed[slot] {
			n++
		}
	}
	return n
}

func (m *Manager) itemsLocked() []Item {
	items := make([]Item, 0, MaxImages)
	for _, slot := range catalog.Slots {
		url := m.existing.Get(slot)
		if url == "" || m.removed[slot] {
			continue
		}
		items = append(items, Item{DisplayIndex: len(items), Kind: KindExisting, Slot: slot, URL: url, FileIndex: -1})
	}
	for i, f := range m.pending {
		items = append(items, Item{DisplayIndex: len(items), Kind: KindPending, FileIndex: i, File: f})
	}
	return items
}

// Snapshot is the serialisable state of a Manager, carried between requests in a hidden field.
type Snapshot struct {
	Mode     Mode                  `json:"mode"`
	Existing catalog.ProductImages `json:"existing"`
	Removed  []catalog.Slot        `json:"removed,omitempty"`
	Pending  []File                `json:"pending,omitempty"`
}

// Snapshot captures the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{Mode: m.mode, Existing: m.existing, Pending: append([]File(nil), m.pending...)}
	for _, slot := range catalog.Slots {
		if m.removed[slot] {
			snap.Removed = append(snap.Removed, slot)
		}
	}
	return snap
}

// Restore replaces the state with snap after checking it is consistent.
func (m *Manager) Restore(snap Snapshot) error {
	removed := make(map[catalog.Slot]bool, len(snap.Removed))
	for _, slot := range snap.Removed {
		if _, ok := catalog.ParseSlot(string(slot)); !ok {
			return fmt.Errorf("media: restore: unknown slot %q", slot)
		}
		removed[slot] = true
	}
	mode := snap.Mode
	if mode != ModeEdit {
		mode = ModeAdd
		if snap.Existing.Count() > 0 {
			return errors.New("media: restore: add mode cannot carry stored images")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	m.existing = snap.Existing
	m.removed = removed
	m.pending = append([]File(nil), snap.Pending...)
	if m.effectiveCountLocked() > MaxImages {
		m.pending = m.pending[:max(0, len(m.pending)-(m.effectiveCountLocked()-MaxImages))]
	}
	return nil
}

// MatchesStored reports whether the images the manager started from are still the stored ones.
func (m *Manager) MatchesStored(images catalog.ProductImages) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range catalog.Slots {
		if strings.TrimSpace(images.Get(slot)) != m.existing.Get(slot) {
			return false
		}
	}
	return true
}

// Rebase replaces the existing images with images and forgets removals. Pending files are kept
// up to the free capacity; the dropped ones are returned.
func (m *Manager) Rebase(images catalog.ProductImages) []File {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range catalog.Slots {
		images.Set(slot, strings.TrimSpace(images.Get(slot)))
	}
	m.existing = images
	m.removed = make(map[catalog.Slot]bool)
	free := max(0, MaxImages-images.Count())
	if len(m.pending) <= free {
		return nil
	}
	dropped := append([]File(nil), m.pending[free:]...)
	m.pending = m.pending[:free]
	return dropped
}
