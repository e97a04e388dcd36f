package model

import (
	"database/sql"
	"time"
)

// TxEvent is one immutable lifecycle fact about a saga or one of its sub-transactions.
// Rows in tx_event are append-only.
type TxEvent struct {
	SurrogateID        int64          `db:"surrogate_id"`
	ServiceName        string         `db:"service_name"`
	InstanceID         string         `db:"instance_id"`
	CreationTime       time.Time      `db:"creation_time"`
	GlobalTxID         string         `db:"global_tx_id"`
	LocalTxID          string         `db:"local_tx_id"`
	ParentTxID         sql.NullString `db:"parent_tx_id"`
	Type               EventType      `db:"type"`
	CompensationMethod string         `db:"compensation_method"`
	ExpiryTime         sql.NullTime   `db:"expiry_time"`
	RetryMethod        string         `db:"retry_method"`
	Retries            int            `db:"retries"`
	Category           string         `db:"category"`
	Payloads           []byte         `db:"payloads"`
}

// HasExpiry reports whether the event carries an expiry deadline.
func (e TxEvent) HasExpiry() bool {
	return e.ExpiryTime.Valid && !e.ExpiryTime.Time.IsZero()
}

// Expired is true when the event has an expiry and it is not after now.
func (e TxEvent) Expired(now time.Time) bool {
	return e.HasExpiry() && !e.ExpiryTime.Time.After(now)
}

// IsSagaLevel reports whether the event describes the outer saga (localTxId == globalTxId).
func (e TxEvent) IsSagaLevel() bool {
	return e.LocalTxID == e.GlobalTxID
}
