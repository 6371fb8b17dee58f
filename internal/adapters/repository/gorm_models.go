package repository

import (
	"time"

	"github.com/okian/rslist/internal/domain/model"
)

type eventRow struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	Keyword string `gorm:"not null"`
	Votes   int    `gorm:"not null;default:0"`
	UserID  uint   `gorm:"index;not null"`
}

func (eventRow) TableName() string { return "rs_events" }

type userRow struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Email      string
	VoteBudget int `gorm:"not null;default:10"`
}

func (userRow) TableName() string { return "rs_users" }

type rankSlotRow struct {
	ID      uint `gorm:"primaryKey"`
	RankPos int  `gorm:"uniqueIndex;not null"`
	Price   int  `gorm:"not null"`
	EventID uint `gorm:"not null"`
}

func (rankSlotRow) TableName() string { return "rs_rank_slots" }

type ledgerRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Seq       int64  `gorm:"autoIncrement;uniqueIndex"`
	Price     int    `gorm:"not null"`
	RankPos   int    `gorm:"index;not null"`
	EventID   uint   `gorm:"not null"`
	CreatedAt time.Time
}

func (ledgerRow) TableName() string { return "rs_purchase_ledger" }

type voteRecordRow struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	Seq     int64  `gorm:"autoIncrement;uniqueIndex"`
	UserID  uint   `gorm:"index;not null"`
	EventID uint   `gorm:"index;not null"`
	Num     int    `gorm:"not null"`
	VotedAt time.Time
}

func (voteRecordRow) TableName() string { return "rs_vote_records" }

func allModels() []interface{} {
	return []interface{}{&userRow{}, &eventRow{}, &rankSlotRow{}, &ledgerRow{}, &voteRecordRow{}}
}

func toEventRow(e model.Event) eventRow {
	return eventRow{ID: e.ID, Name: e.Name, Keyword: e.Keyword, Votes: e.Votes, UserID: e.UserID}
}

func (r eventRow) toModel() model.Event {
	return model.Event{ID: r.ID, Name: r.Name, Keyword: r.Keyword, Votes: r.Votes, UserID: r.UserID}
}

func toUserRow(u model.User) userRow {
	return userRow{ID: u.ID, Name: u.Name, Email: u.Email, VoteBudget: u.VoteBudget}
}

func (r userRow) toModel() model.User {
	return model.User{ID: r.ID, Name: r.Name, Email: r.Email, VoteBudget: r.VoteBudget}
}

func (r rankSlotRow) toModel() model.RankSlot {
	return model.RankSlot{ID: r.ID, RankPos: r.RankPos, Price: r.Price, EventID: r.EventID}
}

func (r ledgerRow) toModel() model.LedgerEntry {
	return model.LedgerEntry{ID: r.ID, Price: r.Price, RankPos: r.RankPos, EventID: r.EventID, CreatedAt: r.CreatedAt}
}

func (r voteRecordRow) toModel() model.VoteRecord {
	return model.VoteRecord{ID: r.ID, UserID: r.UserID, EventID: r.EventID, Num: r.Num, VotedAt: r.VotedAt}
}
