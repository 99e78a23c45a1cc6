package farm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"agri-smart/logging"
	"agri-smart/store"
)

// FilterAll disables the location or status criterion.
const FilterAll = "all"

// seedListings is the sample equipment set written on first load.
var seedListings = []Listing{
	{ID: 1, Name: "Rotavator", Description: "Heavy-duty rotavator for soil preparation", Price: 800, Location: "Haryana", Status: StatusAvailable, Rating: 4.5, Image: "Pictures/rootavator.jpg"},
	{ID: 2, Name: "John Deere Tractor 5050D", Description: "50HP tractor suitable for ploughing and hauling", Price: 1500, Location: "Punjab", Status: StatusAvailable, Rating: 4.8, Image: "Pictures/Johndeer.jpg"},
	{ID: 3, Name: "Seed Drill Machine", Description: "Precision seed drill for row planting", Price: 600, Location: "Punjab", Status: StatusBooked, Rating: 4.3, Image: "Pictures/drill.jpg"},
	{ID: 4, Name: "Harvester Combine", Description: "Self-propelled combine harvester", Price: 3500, Location: "UP", Status: StatusAvailable, Rating: 4.9, Image: "Pictures/combine.jpg"},
	{ID: 5, Name: "Sprayer Pump", Description: "Motorized backpack sprayer 20L capacity", Price: 200, Location: "Maharashtra", Status: StatusAvailable, Rating: 4.2, Image: "Pictures/sprayerpump.jpg"},
	{ID: 6, Name: "Thresher Machine", Description: "Multi-crop thresher with high output", Price: 1200, Location: "Haryana", Status: StatusMaintenance, Rating: 4.6, Image: "Pictures/ThresherMachine.jpg"},
	{ID: 7, Name: "Cultivator", Description: "9-tyne spring loaded cultivator", Price: 500, Location: "MP", Status: StatusAvailable, Rating: 4.4, Image: "Pictures/Cultivator.jpg"},
	{ID: 8, Name: "Laser Land Leveler", Description: "Precision laser-guided land leveler", Price: 2000, Location: "Punjab", Status: StatusAvailable, Rating: 4.7, Image: "Pictures/LaserLandLeveler.jpg"},
}

// SeedListings returns a copy of the sample equipment set.
func SeedListings() []Listing {
	return append([]Listing(nil), seedListings...)
}

// Criteria narrows a listing view. Empty fields match everything.
type Criteria struct {
	Search   string
	Location string
	Status   string
}

// Catalog is the persisted equipment list.
type Catalog struct {
	kv  store.Store
	log *zap.Logger
}

func NewCatalog(kv store.Store, log *zap.Logger) *Catalog {
	return &Catalog{kv: kv, log: logging.OrNop(log).Named("catalog")}
}

// Load returns the persisted listings in stored order, writing the seed set
// first when nothing usable is stored.
func (c *Catalog) Load(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	err := c.kv.Update(ctx, func(tx store.Tx) error {
		var err error
		listings, err = loadOrSeed(ctx, tx, c.log)
		return err
	})
	return listings, err
}

// Stored returns the persisted listings without seeding. An absent or
// undecodable catalog yields no listings.
func (c *Catalog) Stored(ctx context.Context) ([]Listing, error) {
	listings, _, err := loadList[Listing](ctx, c.kv, KeyListings, c.log)
	return listings, err
}

// loadOrSeed reads the catalog inside tx and persists the seed set when the
// key is absent or undecodable.
func loadOrSeed(ctx context.Context, tx store.Tx, log *zap.Logger) ([]Listing, error) {
	raw, present, err := tx.Get(ctx, KeyListings)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyListings, err)
	}
	listings, corrupt := decodeList[Listing](KeyListings, raw, present, log)
	if present && !corrupt {
		return listings, nil
	}
	listings = SeedListings()
	if err := saveList(ctx, tx, KeyListings, listings); err != nil {
		return nil, err
	}
	log.Info("seeded equipment catalog", zap.Int("listings", len(listings)))
	return listings, nil
}

// Get returns one listing by id.
func (c *Catalog) Get(ctx context.Context, id int64) (*Listing, error) {
	listings, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := findListing(listings, id)
	if i < 0 {
		return nil, ErrListingNotFound
	}
	l := listings[i]
	return &l, nil
}

func findListing(listings []Listing, id int64) int {
	for i := range listings {
		if listings[i].ID == id {
			return i
		}
	}
	return -1
}

// Filter returns the listings matching every criterion, in their original
// order. It never modifies listings.
func Filter(listings []Listing, c Criteria) []Listing {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Name), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		if !matchesAll(c.Location) && l.Location != c.Location {
			continue
		}
		if !matchesAll(c.Status) && string(l.Status) != c.Status {
			continue
		}
		out = append(out, l)
	}
	return out
}

func matchesAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}

// Locations lists the distinct listing locations in first-seen order.
func Locations(listings []Listing) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range listings {
		if !seen[l.Location] {
			seen[l.Location] = true
			out = append(out, l.Location)
		}
	}
	return out
}

// Statuses lists the listing statuses a filter can select.
func Statuses() []ListingStatus {
	return []ListingStatus{StatusAvailable, StatusBooked, StatusMaintenance}
}
