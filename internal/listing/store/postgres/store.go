// Package postgres stores listing documents as JSON rows through gorm.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/pkg/logger"
)

const revisionSequence = "listing_revision_seq"

// ListingDocument is one stored listing. Deleted rows stay behind (soft delete)
// so that deletions advance the collection revision seen by pollers.
type ListingDocument struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Revision  int64  `gorm:"not null;index"`
	Fields    string `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName overrides the gorm default
func (ListingDocument) TableName() string {
	return "listing_documents"
}

// Store is a domain.Store backed by PostgreSQL
type Store struct {
	db           *gorm.DB
	pollInterval time.Duration
}

// New creates a Store. Subscribe polls for changes every pollInterval.
func New(db *gorm.DB, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Store{db: db, pollInterval: pollInterval}
}

// AutoMigrate creates the table and the revision sequence
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ListingDocument{}); err != nil {
		return err
	}
	return s.db.Exec("CREATE SEQUENCE IF NOT EXISTS " + revisionSequence).Error
}

// changeMarker summarises every row, deleted ones included. Each committed write
// replaces a revision with a larger one or adds a row, so the sum grows with every
// commit even when transactions commit out of revision order.
type changeMarker struct {
	RowCount    int64
	RevisionSum int64
}

// Subscribe delivers the current snapshot and polls for committed changes.
func (s *Store) Subscribe(ctx context.Context) (<-chan domain.Snapshot, error) {
	first, mark, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Snapshot, 1)
	out <- first
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		last := mark
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := s.marker(s.db.WithContext(ctx))
			if err != nil {
				if ctx.Err() == nil {
					logger.WithContext(ctx).Error().Err(err).Msg("Failed to poll listing changes")
				}
				continue
			}
			if current == last {
				continue
			}
			snap, seen, err := s.list(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.WithContext(ctx).Error().Err(err).Msg("Failed to load listing snapshot")
				}
				continue
			}
			last = seen

			select {
			case <-out:
			default:
			}
			out <- snap
		}
	}()
	return out, nil
}

// List reads all live documents within one repeatable-read transaction
func (s *Store) List(ctx context.Context) (domain.Snapshot, error) {
	snap, _, err := s.list(ctx)
	return snap, err
}

func (s *Store) list(ctx context.Context) (domain.Snapshot, changeMarker, error) {
	var (
		snap domain.Snapshot
		mark changeMarker
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rev, err := s.maxRevision(tx)
		if err != nil {
			return err
		}
		if mark, err = s.marker(tx); err != nil {
			return err
		}
		var rows []ListingDocument
		if err := tx.Order("id").Find(&rows).Error; err != nil {
			return err
		}

		snap = domain.Snapshot{Revision: rev, Documents: make([]domain.Document, 0, len(rows))}
		for _, row := range rows {
			doc, err := row.document()
			if err != nil {
				logger.WithContext(ctx).Warn().Err(err).Str("listing_id", row.ID).Msg("Skipping undecodable listing row")
				continue
			}
			snap.Documents = append(snap.Documents, doc)
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.Snapshot{}, changeMarker{}, fmt.Errorf("list listings: %w", err)
	}
	return snap, mark, nil
}

// Get reads one live document
func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	var row ListingDocument
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.Document{}, rowError(id, err)
	}
	return row.document()
}

// Set creates or replaces a document, reviving a previously deleted id
func (s *Store) Set(ctx context.Context, id string, fields domain.Record) (domain.Document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return domain.Document{}, fmt.Errorf("encode listing %s: %w", id, err)
	}

	row := ListingDocument{ID: id, Fields: string(raw)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.Revision, err = nextRevision(tx); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"revision":   row.Revision,
				"fields":     row.Fields,
				"updated_at": time.Now(),
				"deleted_at": nil,
			}),
		}).Create(&row).Error
	})
	if err != nil {
		return domain.Document{}, fmt.Errorf("set listing %s: %w", id, err)
	}
	return row.document()
}

// Update merges fields into a live document when its revision matches expectedRevision.
func (s *Store) Update(ctx context.Context, id string, fields domain.Record, expectedRevision int64) (domain.Document, error) {
	var row ListingDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			return rowError(id, err)
		}
		if expectedRevision != domain.AnyRevision && row.Revision != expectedRevision {
			return fmt.Errorf("listing %s at revision %d, expected %d: %w", id, row.Revision, expectedRevision, domain.ErrConflict)
		}

		merged, err := decodeFields(row.Fields)
		if err != nil {
			return err
		}
		for k, v := range fields {
			merged[k] = v
		}
		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		rev, err := nextRevision(tx)
		if err != nil {
			return err
		}

		res := tx.Model(&ListingDocument{}).
			Where("id = ? AND revision = ?", id, row.Revision).
			Updates(map[string]any{"revision": rev, "fields": string(raw)})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("listing %s changed concurrently: %w", id, domain.ErrConflict)
		}
		row.Revision = rev
		row.Fields = string(raw)
		return nil
	})
	if err != nil {
		return domain.Document{}, passThrough("update", id, err)
	}
	return row.document()
}

// Delete soft-deletes a document and returns the revision of the deletion
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	var rev int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ListingDocument
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			return rowError(id, err)
		}
		var err error
		if rev, err = nextRevision(tx); err != nil {
			return err
		}
		return tx.Model(&ListingDocument{}).
			Where("id = ?", id).
			Updates(map[string]any{"revision": rev, "deleted_at": time.Now()}).Error
	})
	if err != nil {
		return 0, passThrough("delete", id, err)
	}
	return rev, nil
}

// maxRevision includes soft-deleted rows
func (s *Store) maxRevision(tx *gorm.DB) (int64, error) {
	var rev int64
	err := tx.Unscoped().Model(&ListingDocument{}).Select("COALESCE(MAX(revision), 0)").Scan(&rev).Error
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (s *Store) marker(tx *gorm.DB) (changeMarker, error) {
	var mark changeMarker
	err := tx.Unscoped().Model(&ListingDocument{}).
		Select("COUNT(*) AS row_count, COALESCE(SUM(revision), 0)::bigint AS revision_sum").
		Scan(&mark).Error
	if err != nil {
		return changeMarker{}, fmt.Errorf("read change marker: %w", err)
	}
	return mark, nil
}

func nextRevision(tx *gorm.DB) (int64, error) {
	var rev int64
	if err := tx.Raw("SELECT nextval(?)", revisionSequence).Scan(&rev).Error; err != nil {
		return 0, fmt.Errorf("next revision: %w", err)
	}
	return rev, nil
}

func (r ListingDocument) document() (domain.Document, error) {
	fields, err := decodeFields(r.Fields)
	if err != nil {
		return domain.Document{}, fmt.Errorf("decode listing %s: %w", r.ID, err)
	}
	return domain.Document{ID: r.ID, Revision: r.Revision, Fields: fields}, nil
}

// decodeFields keeps numbers as json.Number so large quantities survive unchanged
func decodeFields(raw string) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	fields := domain.Record{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func rowError(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return err
}

func passThrough(op, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		return err
	}
	return fmt.Errorf("%s listing %s: %w", op, id, err)
}
