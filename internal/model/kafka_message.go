package model

import "time"

type KafkaMessageStatus int

const (
	KafkaMessageInit KafkaMessageStatus = iota
	KafkaMessageSending
	KafkaMessageSuccessful
	KafkaMessageFailed
)

// KafkaMessage is an out-of-band notification about a business row touched by a
// sub-transaction, used by manual compensation workflows. It is not part of the TxEvent log.
type KafkaMessage struct {
	ID           int64              `db:"id"             json:"id,omitempty"`
	GlobalTxID   string             `db:"global_tx_id"   json:"globalTxId"`
	LocalTxID    string             `db:"local_tx_id"    json:"localTxId"`
	Status       KafkaMessageStatus `db:"status"         json:"status"`
	DBDriverName string             `db:"db_driver_name" json:"dbDriverName"`
	DBURL        string             `db:"db_url"         json:"dbUrl"`
	DBUserName   string             `db:"db_user_name"   json:"dbUserName"`
	TableName    string             `db:"table_name"     json:"tableName"`
	Operation    string             `db:"operation"      json:"operation"`
	IDs          string             `db:"ids"            json:"ids"`
	CreationTime time.Time          `db:"creation_time"  json:"creationTime"`
}
