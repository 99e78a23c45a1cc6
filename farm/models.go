package farm

// Keys under which the dashboard keeps its collections. The names match the
// browser's local storage so a dump can be imported unchanged.
const (
	KeyUsers            = "users"
	KeyCurrentUser      = "currentUser"
	KeyListings         = "equipment"
	KeyBookings         = "bookings"
	KeyDemo             = "agri_demo"
	KeySavedPredictions = "savedPredictions"
)

// Profile is the farm details shown on the profile page.
type Profile struct {
	Farm string `json:"farm"`
	Size string `json:"size"`
}

// Account is a registered user. Email is the unique key.
type Account struct {
	ID           int64   `json:"id"` // creation time, Unix ms
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"passwordHash"`
	Profile      Profile `json:"profile"`
}

// ListingStatus is the availability of a piece of equipment.
type ListingStatus string

const (
	StatusAvailable   ListingStatus = "available"
	StatusBooked      ListingStatus = "booked"
	StatusMaintenance ListingStatus = "maintenance"
)

// Listing is a rentable equipment record.
type Listing struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"desc"`
	Price       float64       `json:"price"` // currency units per day
	Location    string        `json:"location"`
	Status      ListingStatus `json:"status"`
	Rating      float64       `json:"rating"`
	Image       string        `json:"image,omitempty"`
}

// Booking is an append-only record of a successful booking. Item holds the
// listing name rather than its id, as the browser version did.
type Booking struct {
	ID    int64   `json:"id"` // creation time, Unix ms
	Item  string  `json:"item"`
	Dates string  `json:"dates"`
	User  string  `json:"user"`
	Cost  float64 `json:"cost"`
}
