package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedItem is returned when an item id is not part of the catalog
var ErrUnsupportedItem = errors.New("unsupported item")

// Profile holds the reference shelf-life durations (in days) for one item
type Profile struct {
	ItemID    string  `json:"id"`
	Label     string  `json:"label"`
	IdealDays float64 `json:"ideal"`
	RoomDays  float64 `json:"room"`
	HumidDays float64 `json:"humid"`
}

// Item is the public listing entry for a supported item
type Item struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ShelfLife is the raw per-condition durations for one item
type ShelfLife struct {
	Ideal float64 `json:"ideal"`
	Room  float64 `json:"room"`
	Humid float64 `json:"humid"`
}

// ShelfLife returns the three raw durations of the profile
func (p Profile) ShelfLife() ShelfLife {
	return ShelfLife{Ideal: p.IdealDays, Room: p.RoomDays, Humid: p.HumidDays}
}

// supportedIDs is the closed set of items, in display order.
var supportedIDs = []string{
	"apple", "banana", "tomato", "orange",
	"potato", "cucumber", "capsicum", "okra",
}

var defaultProfiles = []Profile{
	{ItemID: "apple", Label: "Apple", IdealDays: 35, RoomDays: 7, HumidDays: 3},
	{ItemID: "banana", Label: "Banana", IdealDays: 5, RoomDays: 3, HumidDays: 2},
	{ItemID: "tomato", Label: "Tomato", IdealDays: 7, RoomDays: 5, HumidDays: 3},
	{ItemID: "orange", Label: "Orange", IdealDays: 28, RoomDays: 10, HumidDays: 5},
	{ItemID: "potato", Label: "Potato", IdealDays: 30, RoomDays: 7, HumidDays: 3},
	{ItemID: "cucumber", Label: "Cucumber", IdealDays: 10, RoomDays: 3, HumidDays: 2},
	{ItemID: "capsicum", Label: "Capsicum", IdealDays: 14, RoomDays: 3, HumidDays: 2},
	{ItemID: "okra", Label: "Okra", IdealDays: 3, RoomDays: 1, HumidDays: 0.5},
}

// Catalog is the read-only set of shelf-life profiles. It is safe for
// concurrent use once constructed.
type Catalog struct {
	profiles map[string]Profile
	order    []string
}

// DefaultProfiles returns a copy of the built-in reference data
func DefaultProfiles() []Profile {
	out := make([]Profile, len(defaultProfiles))
	copy(out, defaultProfiles)
	return out
}

// Default builds the catalog from the built-in reference data
func Default() *Catalog {
	c, err := New(defaultProfiles)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in profiles: %v", err))
	}
	return c
}

// New builds a catalog from the given profiles. Every id must belong to the
// closed set of supported items and appear at most once.
func New(profiles []Profile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		id := Normalize(p.ItemID)
		if !isSupported(id) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedItem, p.ItemID)
		}
		if _, dup := c.profiles[id]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", id)
		}
		p.ItemID = id
		if p.Label == "" {
			p.Label = strings.ToUpper(id[:1]) + id[1:]
		}
		c.profiles[id] = p
	}
	for _, id := range supportedIDs {
		if _, ok := c.profiles[id]; ok {
			c.order = append(c.order, id)
		}
	}
	return c, nil
}

// Normalize canonicalizes a caller-supplied item id
func Normalize(itemID string) string {
	return strings.ToLower(strings.TrimSpace(itemID))
}

func isSupported(id string) bool {
	for _, s := range supportedIDs {
		if s == id {
			return true
		}
	}
	return false
}

// Lookup returns the profile for itemID. Unknown ids fail with
// ErrUnsupportedItem; no other item is ever substituted.
func (c *Catalog) Lookup(itemID string) (Profile, error) {
	p, ok := c.profiles[Normalize(itemID)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedItem, itemID)
	}
	return p, nil
}

// Items lists the supported items in display order
func (c *Catalog) Items() []Item {
	items := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, Item{Value: id, Label: c.profiles[id].Label})
	}
	return items
}

// ShelfLife returns the raw durations for itemID
func (c *Catalog) ShelfLife(itemID string) (ShelfLife, error) {
	p, err := c.Lookup(itemID)
	if err != nil {
		return ShelfLife{}, err
	}
	return p.ShelfLife(), nil
}

// Len reports how many items the catalog holds
func (c *Catalog) Len() int {
	return len(c.order)
}
