package farm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"agri-smart/logging"
	"agri-smart/store"
)

// Bookings converts available listings into bookings.
type Bookings struct {
	kv       store.Store
	costDays int
	log      *zap.Logger
	now      func() time.Time
}

// NewBookings charges costDays days of the listing price per booking.
func NewBookings(kv store.Store, costDays int, log *zap.Logger) *Bookings {
	if costDays <= 0 {
		costDays = 2
	}
	return &Bookings{
		kv:       kv,
		costDays: costDays,
		log:      logging.OrNop(log).Named("booking"),
		now:      time.Now,
	}
}

// Book reserves listingID for the session's account.
//
// It fails without changing anything when there is no session, when the id is
// unknown (ErrListingNotFound) or when the listing is not available
// (ErrListingUnavailable). On success the booking is appended and the listing
// flips to booked in the same transaction.
func (b *Bookings) Book(ctx context.Context, sess Session, listingID int64, dates string) (*Booking, error) {
	var booking Booking
	err := b.kv.Update(ctx, func(tx store.Tx) error {
		email, err := sessionEmail(ctx, tx, sess, b.log)
		if err != nil {
			return err
		}

		listings, err := loadOrSeed(ctx, tx, b.log)
		if err != nil {
			return err
		}
		i := findListing(listings, listingID)
		if i < 0 {
			return ErrListingNotFound
		}
		if listings[i].Status != StatusAvailable {
			return ErrListingUnavailable
		}

		log, _, err := loadList[Booking](ctx, tx, KeyBookings, b.log)
		if err != nil {
			return err
		}
		ids := make([]int64, len(log))
		for j, bk := range log {
			ids[j] = bk.ID
		}

		booking = Booking{
			ID:    nextID(b.now(), ids),
			Item:  listings[i].Name,
			Dates: strings.TrimSpace(dates),
			User:  email,
			Cost:  listings[i].Price * float64(b.costDays),
		}
		listings[i].Status = StatusBooked

		if err := saveList(ctx, tx, KeyBookings, append(log, booking)); err != nil {
			return err
		}
		return saveList(ctx, tx, KeyListings, listings)
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("listing booked",
		zap.Int64("listing", listingID),
		zap.String("user", booking.User),
		zap.Float64("cost", booking.Cost))
	return &booking, nil
}

// List returns the whole booking log in creation order.
func (b *Bookings) List(ctx context.Context) ([]Booking, error) {
	log, _, err := loadList[Booking](ctx, b.kv, KeyBookings, b.log)
	return log, err
}

// ListFor returns the bookings made by email.
func (b *Bookings) ListFor(ctx context.Context, email string) ([]Booking, error) {
	all, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Booking{}
	for _, bk := range all {
		if strings.EqualFold(bk.User, email) {
			out = append(out, bk)
		}
	}
	return out, nil
}
