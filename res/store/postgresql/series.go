package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pawsitter-api/res/store"

	"github.com/graph-gophers/dataloader"
)

// seriesRow is the persistence shape of a recurring series. List-valued
// fields are stored as JSON text and decoded strictly at this boundary;
// the rest of the codebase only ever sees the typed store.RecurringSeries.
type seriesRow struct {
	ID       string `gorm:"primaryKey;size:50;unique"`
	ClientID string `gorm:"size:50;not null;index:idx_series_client"`

	ServiceType     string `gorm:"size:20;not null"`
	NumberOfVisits  int    `gorm:"not null"`
	Frequency       string `gorm:"size:20;not null"`
	DurationMinutes int    `gorm:"not null"`
	BasePrice       int    `gorm:"not null"`

	StartDate     time.Time `gorm:"not null"`
	PreferredTime string    `gorm:"size:10"`
	PreferredDays string    `gorm:"type:text"` // JSON array of weekday indices 0-6
	VisitsPerDay  int       `gorm:"not null;default:1"`
	DaySchedules  string    `gorm:"type:text"` // JSON array of day schedule objects
	TimeZone      string    `gorm:"size:50;not null"`

	Pets                string  `gorm:"type:text"` // JSON array of pet identifiers
	PreferredSitterID   *string `gorm:"size:50"`
	AssignedSitterID    *string `gorm:"size:50"`
	SpecialInstructions string  `gorm:"type:text"`
	Address             string  `gorm:"type:text"`

	Cancelled bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

func (seriesRow) TableName() string { return "recurring_series" }

// dayScheduleJSON is the stored form of a store.DaySchedule.
type dayScheduleJSON struct {
	Weekday    int      `json:"weekday"`
	Enabled    bool     `json:"enabled"`
	VisitTimes []string `json:"visitTimes"`
}

func seriesToRow(s *store.RecurringSeries) (*seriesRow, error) {
	days := make([]int, len(s.PreferredDays))
	for i, d := range s.PreferredDays {
		days[i] = int(d)
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferred days: %w", err)
	}

	schedules := make([]dayScheduleJSON, len(s.DaySchedules))
	for i, ds := range s.DaySchedules {
		schedules[i] = dayScheduleJSON{Weekday: int(ds.Weekday), Enabled: ds.Enabled, VisitTimes: ds.VisitTimes}
	}
	schedulesJSON, err := json.Marshal(schedules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode day schedules: %w", err)
	}

	petsJSON, err := json.Marshal(s.Pets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pets: %w", err)
	}

	return &seriesRow{
		ID:                  s.ID,
		ClientID:            s.ClientID,
		ServiceType:         string(s.ServiceType),
		NumberOfVisits:      s.NumberOfVisits,
		Frequency:           string(s.Frequency),
		DurationMinutes:     s.DurationMinutes,
		BasePrice:           s.BasePrice,
		StartDate:           s.StartDate,
		PreferredTime:       s.PreferredTime,
		PreferredDays:       string(daysJSON),
		VisitsPerDay:        s.VisitsPerDay,
		DaySchedules:        string(schedulesJSON),
		TimeZone:            s.TimeZone,
		Pets:                string(petsJSON),
		PreferredSitterID:   s.PreferredSitterID,
		AssignedSitterID:    s.AssignedSitterID,
		SpecialInstructions: s.SpecialInstructions,
		Address:             s.Address,
		Cancelled:           s.Cancelled,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}, nil
}

func seriesToDomain(r *seriesRow) (*store.RecurringSeries, error) {
	var days []int
	if r.PreferredDays != "" {
		if err := json.Unmarshal([]byte(r.PreferredDays), &days); err != nil {
			return nil, fmt.Errorf("series %s: malformed preferred days: %w", r.ID, err)
		}
	}
	preferredDays := make([]time.Weekday, len(days))
	for i, d := range days {
		preferredDays[i] = time.Weekday(d)
	}

	var schedules []dayScheduleJSON
	if r.DaySchedules != "" {
		if err := json.Unmarshal([]byte(r.DaySchedules), &schedules); err != nil {
			return nil, fmt.Errorf("series %s: malformed day schedules: %w", r.ID, err)
		}
	}
	daySchedules := make([]store.DaySchedule, len(schedules))
	for i, ds := range schedules {
		daySchedules[i] = store.DaySchedule{Weekday: time.Weekday(ds.Weekday), Enabled: ds.Enabled, VisitTimes: ds.VisitTimes}
	}

	var pets []string
	if r.Pets != "" {
		if err := json.Unmarshal([]byte(r.Pets), &pets); err != nil {
			return nil, fmt.Errorf("series %s: malformed pets: %w", r.ID, err)
		}
	}

	return &store.RecurringSeries{
		ID:                  r.ID,
		ClientID:            r.ClientID,
		ServiceType:         store.ServiceType(r.ServiceType),
		NumberOfVisits:      r.NumberOfVisits,
		Frequency:           store.Frequency(r.Frequency),
		DurationMinutes:     r.DurationMinutes,
		BasePrice:           r.BasePrice,
		StartDate:           r.StartDate,
		PreferredTime:       r.PreferredTime,
		PreferredDays:       preferredDays,
		VisitsPerDay:        r.VisitsPerDay,
		DaySchedules:        daySchedules,
		TimeZone:            r.TimeZone,
		Pets:                pets,
		PreferredSitterID:   r.PreferredSitterID,
		AssignedSitterID:    r.AssignedSitterID,
		SpecialInstructions: r.SpecialInstructions,
		Address:             r.Address,
		Cancelled:           r.Cancelled,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

type seriesStore struct {
	*storeImpl

	loader *dataloader.Loader
}

func NewSeriesStore(rootStore *storeImpl) *seriesStore {
	ss := &seriesStore{storeImpl: rootStore}
	// Batched lookups for list views resolving series metadata per batch.
	// No cache: every load must observe current data.
	ss.loader = dataloader.NewBatchedLoader(ss.batchedGet, dataloader.WithCache(&dataloader.NoCache{}))
	return ss
}

func (ss *seriesStore) Create(ctx context.Context, series *store.RecurringSeries) error {
	row, err := seriesToRow(series)
	if err != nil {
		return err
	}

	result := ss.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("failed to create series")
	}
	return nil
}

func (ss *seriesStore) Get(ctx context.Context, id string) (*store.RecurringSeries, error) {
	var row seriesRow
	result := ss.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return seriesToDomain(&row)
}

func (ss *seriesStore) GetMany(ctx context.Context, ids []string) (map[string]*store.RecurringSeries, error) {
	if len(ids) == 0 {
		return map[string]*store.RecurringSeries{}, nil
	}

	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id)
	}

	values, errs := ss.loader.LoadMany(ctx, keys)()
	out := make(map[string]*store.RecurringSeries, len(ids))
	for i, v := range values {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if series, ok := v.(*store.RecurringSeries); ok && series != nil {
			out[series.ID] = series
		}
	}
	return out, nil
}

// batchedGet is the dataloader batch function: one IN-query per batch of
// concurrent loads. Missing IDs yield nil results, not errors.
func (ss *seriesStore) batchedGet(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
	ids := keys.Keys()

	var rows []*seriesRow
	if err := ss.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return decorateBatchedQueriesWithError(translateError(err), keys)
	}

	byID := make(map[string]*store.RecurringSeries, len(rows))
	for _, row := range rows {
		series, err := seriesToDomain(row)
		if err != nil {
			return decorateBatchedQueriesWithError(err, keys)
		}
		byID[series.ID] = series
	}

	results := make([]*dataloader.Result, len(keys))
	for i, key := range keys {
		if series, ok := byID[key.String()]; ok {
			results[i] = &dataloader.Result{Data: series}
		} else {
			results[i] = &dataloader.Result{Data: nil}
		}
	}
	return results
}

func (ss *seriesStore) UpdateAssignedSitter(ctx context.Context, id, sitterID string) error {
	result := ss.db.WithContext(ctx).Model(&seriesRow{}).
		Where("id = ?", id).
		Update("assigned_sitter_id", sitterID)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return store.ErrNotFound
	}
	return nil
}

func (ss *seriesStore) Cancel(ctx context.Context, id string) error {
	result := ss.db.WithContext(ctx).Model(&seriesRow{}).
		Where("id = ?", id).
		Update("cancelled", true)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return store.ErrNotFound
	}
	return nil
}

func (ss *seriesStore) GetByClient(ctx context.Context, clientID string, filters store.SeriesFilters) ([]*store.RecurringSeries, error) {
	query := ss.db.WithContext(ctx).Where("client_id = ?", clientID)

	if filters.ServiceType != nil {
		query = query.Where("service_type = ?", *filters.ServiceType)
	}
	if filters.Cancelled != nil {
		query = query.Where("cancelled = ?", *filters.Cancelled)
	}
	if filters.OrderBy != "" {
		query = query.Order(filters.OrderBy)
	} else {
		query = query.Order("start_date DESC, created_at DESC")
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []*seriesRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	series := make([]*store.RecurringSeries, 0, len(rows))
	for _, row := range rows {
		s, err := seriesToDomain(row)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

var _ store.SeriesStore = (*seriesStore)(nil)
