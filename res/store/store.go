package store

type Store interface {
	Series() SeriesStore
	Batches() BatchStore
	Bookings() BookingStore

	// Database access for advanced operations
	GetDB() interface{} // Returns the underlying database connection
}
