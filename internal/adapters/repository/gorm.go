package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/rslist/internal/domain/model"
)

// PostgreSQL SQLSTATE codes that mean "retry the transaction".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// gormTx implements Tx over a *gorm.DB, which is either the pool or an open
// transaction.
type gormTx struct {
	db   *gorm.DB
	inTx bool
}

// GormStore is a PostgreSQL Store backed by GORM.
type GormStore struct {
	gormTx
	cfg gormConfig
}

var _ Store = (*GormStore)(nil)

// OpenPostgres connects to dsn and returns a migrated store.
func OpenPostgres(ctx context.Context, dsn string, opts ...GormOption) (*GormStore, error) {
	cfg := newGormConfig(opts)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         cfg.gormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", ErrStorage, err)
	}
	return newGormStore(ctx, db, cfg)
}

// NewGormStore wraps an existing connection.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...GormOption) (*GormStore, error) {
	return newGormStore(ctx, db, newGormConfig(opts))
}

func newGormStore(ctx context.Context, db *gorm.DB, cfg gormConfig) (*GormStore, error) {
	s := &GormStore{gormTx: gormTx{db: db}, cfg: cfg}
	if cfg.autoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
			return nil, fmt.Errorf("%w: migrate: %v", ErrStorage, err)
		}
	}
	return s, nil
}

// InTx runs fn in a database transaction. Errors from fn are returned
// unchanged; begin and commit failures are translated.
func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormTx{db: tx, inTx: true})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return translate(err, "commit")
	}
	return err
}

// Snapshot reads events and slots in one read-only repeatable-read
// transaction.
func (s *GormStore) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		tx := &gormTx{db: db, inTx: true}
		var err error
		if snap.Events, err = tx.ListEvents(ctx); err != nil {
			return err
		}
		snap.Slots, err = tx.ListSlots(ctx)
		return err
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return Snapshot{}, translate(err, "snapshot")
	}
	return snap, nil
}

func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	for _, q := range []struct {
		model interface{}
		dst   *int
	}{
		{&eventRow{}, &c.Events},
		{&userRow{}, &c.Users},
		{&rankSlotRow{}, &c.Slots},
		{&ledgerRow{}, &c.Ledger},
		{&voteRecordRow{}, &c.Votes},
	} {
		var n int64
		if err := db.Model(q.model).Count(&n).Error; err != nil {
			return Counts{}, translate(err, "count")
		}
		*q.dst = int(n)
	}
	return c, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translate(err, "close")
	}
	return sqlDB.Close()
}

func (t *gormTx) ListEvents(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	if err := t.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list events")
	}
	out := make([]model.Event, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (t *gormTx) GetEvent(ctx context.Context, id uint) (model.Event, error) {
	var row eventRow
	q := t.db.WithContext(ctx)
	if t.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&row, id).Error; err != nil {
		return model.Event{}, translate(err, fmt.Sprintf("event %d", id))
	}
	return row.toModel(), nil
}

func (t *gormTx) SaveEvent(ctx context.Context, e *model.Event) error {
	row := toEventRow(*e)
	db := t.db.WithContext(ctx)
	var err error
	if row.ID == 0 {
		err = db.Create(&row).Error
	} else {
		err = db.Save(&row).Error
	}
	if err != nil {
		return translate(err, "save event")
	}
	e.ID = row.ID
	return nil
}

func (t *gormTx) DeleteEvent(ctx context.Context, id uint) error {
	res := t.db.WithContext(ctx).Delete(&eventRow{}, id)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("delete event %d", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	return nil
}

func (t *gormTx) GetUser(ctx context.Context, id uint) (model.User, error) {
	var row userRow
	q := t.db.WithContext(ctx)
	if t.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&row, id).Error; err != nil {
		return model.User{}, translate(err, fmt.Sprintf("user %d", id))
	}
	return row.toModel(), nil
}

func (t *gormTx) SaveUser(ctx context.Context, u *model.User) error {
	row := toUserRow(*u)
	db := t.db.WithContext(ctx)
	var err error
	if row.ID == 0 {
		err = db.Create(&row).Error
	} else {
		err = db.Save(&row).Error
	}
	if err != nil {
		return translate(err, "save user")
	}
	u.ID = row.ID
	return nil
}

func (t *gormTx) FindSlotByRank(ctx context.Context, rank int) (model.RankSlot, error) {
	var row rankSlotRow
	q := t.db.WithContext(ctx)
	if t.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("rank_pos = ?", rank).First(&row).Error; err != nil {
		return model.RankSlot{}, translate(err, fmt.Sprintf("rank %d", rank))
	}
	return row.toModel(), nil
}

func (t *gormTx) SaveSlot(ctx context.Context, s *model.RankSlot) error {
	row := rankSlotRow{RankPos: s.RankPos, Price: s.Price, EventID: s.EventID}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err, fmt.Sprintf("save slot rank %d", s.RankPos))
	}
	s.ID = row.ID
	return nil
}

func (t *gormTx) DeleteSlot(ctx context.Context, id uint) error {
	res := t.db.WithContext(ctx).Delete(&rankSlotRow{}, id)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("delete slot %d", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: slot %d", ErrNotFound, id)
	}
	return nil
}

func (t *gormTx) ListSlots(ctx context.Context) ([]model.RankSlot, error) {
	var rows []rankSlotRow
	if err := t.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list slots")
	}
	out := make([]model.RankSlot, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (t *gormTx) AppendLedger(ctx context.Context, e *model.LedgerEntry) error {
	row := ledgerRow{ID: e.ID, Price: e.Price, RankPos: e.RankPos, EventID: e.EventID, CreatedAt: e.CreatedAt}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err, "append ledger")
	}
	return nil
}

func (t *gormTx) ListLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	var rows []ledgerRow
	if err := t.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list ledger")
	}
	out := make([]model.LedgerEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (t *gormTx) AppendVote(ctx context.Context, v *model.VoteRecord) error {
	row := voteRecordRow{ID: v.ID, UserID: v.UserID, EventID: v.EventID, Num: v.Num, VotedAt: v.VotedAt}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err, "append vote")
	}
	return nil
}

func (t *gormTx) ListVotes(ctx context.Context) ([]model.VoteRecord, error) {
	var rows []voteRecordRow
	if err := t.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list votes")
	}
	out := make([]model.VoteRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrStorage) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s: %v", ErrConflict, what, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s: %v", ErrConflict, what, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, what, err)
}
