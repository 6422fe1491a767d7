package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pawsitter-api/res/store"

	"gorm.io/gorm"
)

// batchRow is the persistence shape of a recurring batch. The embedded
// visit list is stored as JSON text and decoded strictly at this boundary.
type batchRow struct {
	ID       string `gorm:"primaryKey;size:50;unique"`
	SeriesID string `gorm:"size:50;not null;uniqueIndex:idx_batch_series_index,priority:1;index:idx_batch_series"`
	ClientID string `gorm:"size:50;not null;index:idx_batch_client"`

	ServiceType string `gorm:"size:20;not null"`
	BatchIndex  int    `gorm:"not null;uniqueIndex:idx_batch_series_index,priority:2"`
	VisitCount  int    `gorm:"not null"`

	Status          string `gorm:"size:20;not null;default:'scheduled';index:idx_batch_status"`
	RejectionReason string `gorm:"type:text"`

	ScheduledFor time.Time `gorm:"not null;index:idx_batch_scheduled_for"`
	TimeZone     string    `gorm:"size:50;not null"`

	ApprovalDate   *time.Time
	InvoiceDate    *time.Time
	InvoiceDueDate *time.Time

	Visits string `gorm:"type:text;not null"` // JSON array of {visitNumber, scheduledDate}

	MaterializedCount int `gorm:"not null;default:0"`
	PendingCount      int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

func (batchRow) TableName() string { return "recurring_batches" }

func batchToRow(b *store.RecurringBatch) (*batchRow, error) {
	visitsJSON, err := json.Marshal(b.Visits)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch visits: %w", err)
	}

	return &batchRow{
		ID:                b.ID,
		SeriesID:          b.SeriesID,
		ClientID:          b.ClientID,
		ServiceType:       string(b.ServiceType),
		BatchIndex:        b.BatchIndex,
		VisitCount:        b.VisitCount,
		Status:            string(b.Status),
		RejectionReason:   b.RejectionReason,
		ScheduledFor:      b.ScheduledFor,
		TimeZone:          b.TimeZone,
		ApprovalDate:      b.ApprovalDate,
		InvoiceDate:       b.InvoiceDate,
		InvoiceDueDate:    b.InvoiceDueDate,
		Visits:            string(visitsJSON),
		MaterializedCount: b.MaterializedCount,
		PendingCount:      b.PendingCount,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}, nil
}

func batchToDomain(r *batchRow) (*store.RecurringBatch, error) {
	var visits []store.RecurringBatchVisit
	if err := json.Unmarshal([]byte(r.Visits), &visits); err != nil {
		return nil, fmt.Errorf("batch %s: malformed visit list: %w", r.ID, err)
	}

	return &store.RecurringBatch{
		ID:                r.ID,
		SeriesID:          r.SeriesID,
		ClientID:          r.ClientID,
		ServiceType:       store.ServiceType(r.ServiceType),
		BatchIndex:        r.BatchIndex,
		VisitCount:        r.VisitCount,
		Status:            store.BatchStatus(r.Status),
		RejectionReason:   r.RejectionReason,
		ScheduledFor:      r.ScheduledFor,
		TimeZone:          r.TimeZone,
		ApprovalDate:      r.ApprovalDate,
		InvoiceDate:       r.InvoiceDate,
		InvoiceDueDate:    r.InvoiceDueDate,
		Visits:            visits,
		MaterializedCount: r.MaterializedCount,
		PendingCount:      r.PendingCount,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

type batchStore struct {
	*storeImpl
}

func NewBatchStore(rootStore *storeImpl) *batchStore {
	return &batchStore{storeImpl: rootStore}
}

func (bs *batchStore) CreateForSeries(ctx context.Context, seriesID string, batches []*store.RecurringBatch) ([]*store.RecurringBatch, error) {
	var persisted []*store.RecurringBatch

	err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Batches for a series are created exactly once; a retried creation
		// returns the existing set untouched.
		var existing []*batchRow
		if err := tx.Where("series_id = ?", seriesID).Order("batch_index ASC").Find(&existing).Error; err != nil {
			return translateError(err)
		}
		if len(existing) > 0 {
			for _, row := range existing {
				b, err := batchToDomain(row)
				if err != nil {
					return err
				}
				persisted = append(persisted, b)
			}
			return nil
		}

		rows := make([]*batchRow, 0, len(batches))
		for _, b := range batches {
			row, err := batchToRow(b)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return translateError(err)
		}

		persisted = batches
		return nil
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

func (bs *batchStore) Get(ctx context.Context, id string) (*store.RecurringBatch, error) {
	var row batchRow
	result := bs.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return batchToDomain(&row)
}

func (bs *batchStore) GetBySeries(ctx context.Context, seriesID string) ([]*store.RecurringBatch, error) {
	var rows []*batchRow
	err := bs.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("batch_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return batchRowsToDomain(rows)
}

func (bs *batchStore) GetBySeriesIndex(ctx context.Context, seriesID string, batchIndex int) (*store.RecurringBatch, error) {
	var row batchRow
	result := bs.db.WithContext(ctx).
		Where("series_id = ? AND batch_index = ?", seriesID, batchIndex).
		First(&row)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return batchToDomain(&row)
}

func (bs *batchStore) List(ctx context.Context, filters store.BatchFilters) ([]*store.RecurringBatch, error) {
	query := bs.db.WithContext(ctx)

	if filters.SeriesID != nil {
		query = query.Where("series_id = ?", *filters.SeriesID)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ScheduledAfter != nil {
		query = query.Where("scheduled_for >= ?", *filters.ScheduledAfter)
	}
	if filters.ScheduledUntil != nil {
		query = query.Where("scheduled_for <= ?", *filters.ScheduledUntil)
	}

	if filters.OrderBy != "" {
		query = query.Order(filters.OrderBy)
	} else {
		query = query.Order("scheduled_for ASC, batch_index ASC")
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []*batchRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return batchRowsToDomain(rows)
}

// BeginProcessing is the optimistic single-writer guard: the status
// predicate makes concurrent duplicate approvals lose with zero rows
// affected instead of both proceeding.
func (bs *batchStore) BeginProcessing(ctx context.Context, id string) error {
	result := bs.db.WithContext(ctx).Model(&batchRow{}).
		Where("id = ?", id).
		Where("status IN ?", []string{
			string(store.BatchStatusScheduled),
			string(store.BatchStatusFailed),
			string(store.BatchStatusProcessing),
		}).
		Update("status", store.BatchStatusProcessing)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return bs.missingOrConflict(ctx, id)
	}
	return nil
}

func (bs *batchStore) Complete(ctx context.Context, id string, approvalDate, invoiceDate, invoiceDueDate time.Time) error {
	updates := map[string]interface{}{
		"status":             store.BatchStatusCompleted,
		"approval_date":      approvalDate,
		"invoice_date":       invoiceDate,
		"invoice_due_date":   invoiceDueDate,
		"materialized_count": gorm.Expr("visit_count"),
		"pending_count":      0,
	}

	result := bs.db.WithContext(ctx).Model(&batchRow{}).
		Where("id = ? AND status = ?", id, store.BatchStatusProcessing).
		Updates(updates)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return bs.missingOrConflict(ctx, id)
	}
	return nil
}

func (bs *batchStore) Fail(ctx context.Context, id string, materialized, pending int) error {
	updates := map[string]interface{}{
		"status":             store.BatchStatusFailed,
		"materialized_count": materialized,
		"pending_count":      pending,
	}

	result := bs.db.WithContext(ctx).Model(&batchRow{}).
		Where("id = ? AND status = ?", id, store.BatchStatusProcessing).
		Updates(updates)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return bs.missingOrConflict(ctx, id)
	}
	return nil
}

func (bs *batchStore) Reject(ctx context.Context, id, reason string) error {
	updates := map[string]interface{}{
		"status":           store.BatchStatusRejected,
		"rejection_reason": reason,
	}

	result := bs.db.WithContext(ctx).Model(&batchRow{}).
		Where("id = ? AND status = ?", id, store.BatchStatusScheduled).
		Updates(updates)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return bs.missingOrConflict(ctx, id)
	}
	return nil
}

func (bs *batchStore) Reschedule(ctx context.Context, id string, scheduledFor time.Time, visits []store.RecurringBatchVisit) error {
	visitsJSON, err := json.Marshal(visits)
	if err != nil {
		return fmt.Errorf("failed to encode batch visits: %w", err)
	}

	updates := map[string]interface{}{
		"scheduled_for": scheduledFor,
		"visits":        string(visitsJSON),
	}

	result := bs.db.WithContext(ctx).Model(&batchRow{}).
		Where("id = ? AND status = ?", id, store.BatchStatusScheduled).
		Updates(updates)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != 1 {
		return bs.missingOrConflict(ctx, id)
	}
	return nil
}

// missingOrConflict distinguishes "no such batch" from "batch exists but its
// status rejected the guarded update".
func (bs *batchStore) missingOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := bs.db.WithContext(ctx).Model(&batchRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrStatusConflict
}

func batchRowsToDomain(rows []*batchRow) ([]*store.RecurringBatch, error) {
	batches := make([]*store.RecurringBatch, 0, len(rows))
	for _, row := range rows {
		b, err := batchToDomain(row)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

var _ store.BatchStore = (*batchStore)(nil)
