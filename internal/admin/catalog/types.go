package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID identifies a catalog entity. The backend emits either JSON strings or numbers.
type ID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as a string.
func (id ID) String() string {
	return string(id)
}

// Millis is a Unix millisecond timestamp. The backend sometimes sends it as a string.
type Millis int64

// UnmarshalJSON accepts numbers, numeric strings and RFC 3339 strings.
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = 0
			return nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*m = Millis(int64(n))
			return nil
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			*m = Millis(ts.UnixMilli())
			return nil
		}
		return fmt.Errorf("catalog: invalid timestamp %q", s)
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: invalid timestamp %s: %w", string(data), err)
	}
	*m = Millis(int64(n))
	return nil
}

// Time converts the timestamp to time.Time; zero stays zero.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}

// Slot names one of the three positional product image slots.
type Slot string

const (
	SlotFirst  Slot = "firstImg"
	SlotSecond Slot = "secondImg"
	SlotThird  Slot = "thirdImg"
)

// Slots lists the image slots in display order.
var Slots = []Slot{SlotFirst, SlotSecond, SlotThird}

// ParseSlot validates a raw slot name.
func ParseSlot(raw string) (Slot, bool) {
	s := Slot(strings.TrimSpace(raw))
	for _, slot := range Slots {
		if slot == s {
			return s, true
		}
	}
	return "", false
}

// ProductImages is the fixed three-slot image structure of a product.
type ProductImages struct {
	FirstImg  string `json:"firstImg" firestore:"firstImg"`
	SecondImg string `json:"secondImg" firestore:"secondImg"`
	ThirdImg  string `json:"thirdImg" firestore:"thirdImg"`
}

// Get returns the URL stored in slot.
func (p ProductImages) Get(slot Slot) string {
	switch slot {
	case SlotFirst:
		return p.FirstImg
	case SlotSecond:
		return p.SecondImg
	case SlotThird:
		return p.ThirdImg
	default:
		return ""
	}
}

// Set stores url in slot.
func (p *ProductImages) Set(slot Slot, url string) {
	switch slot {
	case SlotFirst:
		p.FirstImg = url
	case SlotSecond:
		p.SecondImg = url
	case SlotThird:
		p.ThirdImg = url
	}
}

// Count returns the number of occupied slots.
func (p ProductImages) Count() int {
	n := 0
	for _, slot := range Slots {
		if strings.TrimSpace(p.Get(slot)) != "" {
			n++
		}
	}
	return n
}

// Primary returns the first occupied slot's URL.
func (p ProductImages) Primary() string {
	for _, slot := range Slots {
		if url := strings.TrimSpace(p.Get(slot)); url != "" {
			return url
		}
	}
	return ""
}

// Product is a sellable catalog item.
type Product struct {
	ID            ID            `json:"id,omitempty" firestore:"-"`
	Name          string        `json:"name" firestore:"name"`
	SKU           string        `json:"sku" firestore:"sku"`
	Category      string        `json:"category" firestore:"category"`
	CategoryID    string        `json:"categoryID" firestore:"categoryID"`
	Price         float64       `json:"price" firestore:"price"`
	Status        string        `json:"status" firestore:"status"`
	Added         string        `json:"added" firestore:"added"`
	Description   string        `json:"description" firestore:"description"`
	Images        ProductImages `json:"ImageSrc" firestore:"ImageSrc"`
	DiscountType  string        `json:"discountType,omitempty" firestore:"discountType"`
	DiscountValue float64       `json:"discount_value,omitempty" firestore:"discount_value"`
	TaxClass      string        `json:"taxClass,omitempty" firestore:"taxClass"`
	VATAmount     float64       `json:"vat_amount,omitempty" firestore:"vat_amount"`
	Barcode       string        `json:"barcode" firestore:"barcode"`
	Quantity      int           `json:"quantity" firestore:"quantity"`
	Variants      string        `json:"variants,omitempty" firestore:"variants"`
	Stock         int           `json:"stock" firestore:"stock"`
	LastModified  string        `json:"lastModified,omitempty" firestore:"lastModified"`
}

// StampLayout formats added/lastModified stamps: UTC with millisecond precision.
const StampLayout = "2006-01-02T15:04:05.000Z07:00"

// ChangedSince reports whether the product was saved after an editor loaded lastModified.
// A missing stamp on either side never conflicts.
func (p Product) ChangedSince(lastModified string) bool {
	expected := strings.TrimSpace(lastModified)
	stored := strings.TrimSpace(p.LastModified)
	return expected != "" && stored != "" && expected != stored
}

// AddedAt parses the Added timestamp; zero when absent or malformed.
func (p Product) AddedAt() time.Time {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(p.Added))
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Category groups products.
type Category struct {
	ID          ID     `json:"id,omitempty" firestore:"-"`
	Name        string `json:"name" firestore:"name"`
	Description string `json:"description" firestore:"description"`
	Image       string `json:"image,omitempty" firestore:"image"`
	Avatar      string `json:"avatar,omitempty" firestore:"avatar"`
	Status      string `json:"status,omitempty" firestore:"status"`
	Stock       int    `json:"stock" firestore:"stock"`
	Sold        int    `json:"sold" firestore:"sold"`
	CreatedAt   Millis `json:"createdAt,omitempty" firestore:"createdAt"`
	CategoryID  string `json:"categoryID,omitempty" firestore:"categoryID"`
}

// Thumbnail returns the category image, falling back to the avatar field.
func (c Category) Thumbnail() string {
	if strings.TrimSpace(c.Image) != "" {
		return c.Image
	}
	return c.Avatar
}
