package model

import "time"

// Envelope is the payload relayed to Kafka for every accepted event.
type Envelope struct {
	ID        string    `json:"id"` // ULID
	RelayedAt time.Time `json:"relayed_at"`
	Event     TxEvent   `json:"event"`
}

// CompensationCommand asks a participant to run the compensating action of one sub-transaction.
type CompensationCommand struct {
	GlobalTxID         string `json:"globalTxId"`
	LocalTxID          string `json:"localTxId"`
	ParentTxID         string `json:"parentTxId,omitempty"`
	ServiceName        string `json:"serviceName"`
	InstanceID         string `json:"instanceId"`
	CompensationMethod string `json:"compensationMethod"`
	Category           string `json:"category,omitempty"`
	Payloads           []byte `json:"payloads,omitempty"`
}

// CommandFor builds the compensation command for an ended sub-transaction.
func CommandFor(e TxEvent) CompensationCommand {
	return CompensationCommand{
		GlobalTxID:         e.GlobalTxID,
		LocalTxID:          e.LocalTxID,
		ParentTxID:         e.ParentTxID.String,
		ServiceName:        e.ServiceName,
		InstanceID:         e.InstanceID,
		CompensationMethod: e.CompensationMethod,
		Category:           e.Category,
		Payloads:           e.Payloads,
	}
}
