package model

import "time"

// ArchivedEvent is the flattened row stored in the ClickHouse archive.
type ArchivedEvent struct {
	EnvelopeID         string    `db:"envelope_id"         json:"envelopeId"`
	RelayedAt          time.Time `db:"relayed_at"          json:"relayedAt"`
	ServiceName        string    `db:"service_name"        json:"serviceName"`
	InstanceID         string    `db:"instance_id"         json:"instanceId"`
	CreationTime       time.Time `db:"creation_time"       json:"creationTime"`
	GlobalTxID         string    `db:"global_tx_id"        json:"globalTxId"`
	LocalTxID          string    `db:"local_tx_id"         json:"localTxId"`
	ParentTxID         string    `db:"parent_tx_id"        json:"parentTxId"`
	Type               string    `db:"type"                json:"type"`
	CompensationMethod string    `db:"compensation_method" json:"compensationMethod"`
	Retries            int32     `db:"retries"             json:"retries"`
	Category           string    `db:"category"            json:"category"`
}

// Archive flattens a relayed envelope into an archive row.
func (e Envelope) Archive() ArchivedEvent {
	return ArchivedEvent{
		EnvelopeID:         e.ID,
		RelayedAt:          e.RelayedAt,
		ServiceName:        e.Event.ServiceName,
		InstanceID:         e.Event.InstanceID,
		CreationTime:       e.Event.CreationTime,
		GlobalTxID:         e.Event.GlobalTxID,
		LocalTxID:          e.Event.LocalTxID,
		ParentTxID:         e.Event.ParentTxID.String,
		Type:               e.Event.Type.String(),
		CompensationMethod: e.Event.CompensationMethod,
		Retries:            int32(e.Event.Retries),
		Category:           e.Event.Category,
	}
}
