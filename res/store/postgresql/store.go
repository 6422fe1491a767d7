package postgresql

import (
	"errors"
	"fmt"
	"runtime"

	"pawsitter-api/res/store"

	sqlCommenter "github.com/gouyelliot/gorm-sqlcommenter-plugin"
	"github.com/graph-gophers/dataloader"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type storeImpl struct {
	db *gorm.DB

	seriesStore  *seriesStore
	batchStore   *batchStore
	bookingStore *bookingStore
}

func (sImpl *storeImpl) Series() store.SeriesStore {
	return sImpl.seriesStore
}

func (sImpl *storeImpl) Batches() store.BatchStore {
	return sImpl.batchStore
}

func (sImpl *storeImpl) Bookings() store.BookingStore {
	return sImpl.bookingStore
}

func (sImpl *storeImpl) GetDB() interface{} {
	return sImpl.db
}

func Connect(connectionUrl string) (*storeImpl, error) {
	db, err := gorm.Open(postgres.Open(connectionUrl), &gorm.Config{TranslateError: true, PrepareStmt: false})
	if err != nil {
		return nil, err
	}

	err = db.Use(sqlCommenter.New())
	if err != nil {
		return nil, err
	}

	err = decorateDBOperationsWithAdditionalInfo(db)
	if err != nil {
		return nil, err
	}

	s := &storeImpl{db: db}

	s.seriesStore = NewSeriesStore(s)
	s.batchStore = NewBatchStore(s)
	s.bookingStore = NewBookingStore(s)

	return s, nil
}

// Migrate creates/updates the schema for the scheduling tables.
func (sImpl *storeImpl) Migrate() error {
	return sImpl.db.AutoMigrate(
		&seriesRow{},
		&batchRow{},
		&store.Booking{},
	)
}

// COMMON UTILITIES

func decorateBatchedQueriesWithError(err error, keys []dataloader.Key) []*dataloader.Result {
	var results []*dataloader.Result

	for i := 0; i < len(keys); i++ {
		results = append(results, &dataloader.Result{Data: nil, Error: err})
	}

	return results
}

func identifyCallee(stackDepth int) string {
	function, _, line, ok := runtime.Caller(stackDepth)
	if !ok {
		return "<missing-runtime-info>"
	}
	return fmt.Sprintf("%s:%d", runtime.FuncForPC(function).Name(), line)
}

func annotateWithInfoHook(db *gorm.DB) {
	info := identifyCallee(4) // Skip the internal gorm calls & the 2 local setup calls
	db.Clauses(sqlCommenter.NewTag("action", info))
}

func decorateDBOperationsWithAdditionalInfo(db *gorm.DB) error {
	return db.Callback().Query().Before("gorm:query").Register("store::annotate_with_info", annotateWithInfoHook)
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrUniqueViolation
	default:
		return err
	}
}
