package postgresql

import (
	"context"
	"fmt"

	"pawsitter-api/res/store"
)

type bookingStore struct {
	*storeImpl
}

func NewBookingStore(rootStore *storeImpl) *bookingStore {
	return &bookingStore{storeImpl: rootStore}
}

func (bs *bookingStore) Create(ctx context.Context, booking *store.Booking) error {
	result := bs.db.WithContext(ctx).Create(booking)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("failed to create booking")
	}
	return nil
}

func (bs *bookingStore) Get(ctx context.Context, id string) (*store.Booking, error) {
	var booking store.Booking
	result := bs.db.WithContext(ctx).Where("id = ?", id).First(&booking)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return &booking, nil
}

func (bs *bookingStore) GetBySeriesVisit(ctx context.Context, seriesID string, visitNumber int) (*store.Booking, error) {
	var booking store.Booking
	result := bs.db.WithContext(ctx).
		Where("recurring_series_id = ? AND visit_number = ?", seriesID, visitNumber).
		First(&booking)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return &booking, nil
}

func (bs *bookingStore) GetBySeries(ctx context.Context, seriesID string) ([]*store.Booking, error) {
	var bookings []*store.Booking
	err := bs.db.WithContext(ctx).
		Where("recurring_series_id = ?", seriesID).
		Order("visit_number ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, translateError(err)
	}
	return bookings, nil
}

func (bs *bookingStore) GetByClient(ctx context.Context, clientID string, filters store.BookingFilters) ([]*store.Booking, error) {
	query := bs.db.WithContext(ctx).Where("client_id = ?", clientID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ServiceType != nil {
		query = query.Where("service_type = ?", *filters.ServiceType)
	}
	if filters.StartDate != nil {
		query = query.Where("scheduled_date >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		query = query.Where("scheduled_date <= ?", *filters.EndDate)
	}
	if filters.IsRecurring != nil {
		query = query.Where("is_recurring = ?", *filters.IsRecurring)
	}

	if filters.OrderBy != "" {
		query = query.Order(filters.OrderBy)
	} else {
		query = query.Order("scheduled_date DESC, created_at DESC")
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var bookings []*store.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, translateError(err)
	}
	return bookings, nil
}

func (bs *bookingStore) UpdateStatus(ctx context.Context, bookingID string, status store.BookingStatus) error {
	result := bs.db.WithContext(ctx).Model(&store.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("booking not found (id: %s)", bookingID)
	}
	return nil
}

var _ store.BookingStore = (*bookingStore)(nil)
