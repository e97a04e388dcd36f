package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// txEventJSON is the wire shape: nullable columns become plain optional fields.
type txEventJSON struct {
	SurrogateID        int64      `json:"surrogateId,omitempty"`
	ServiceName        string     `json:"serviceName"`
	InstanceID         string     `json:"instanceId"`
	CreationTime       time.Time  `json:"creationTime"`
	GlobalTxID         string     `json:"globalTxId"`
	LocalTxID          string     `json:"localTxId"`
	ParentTxID         string     `json:"parentTxId,omitempty"`
	Type               EventType  `json:"type"`
	CompensationMethod string     `json:"compensationMethod,omitempty"`
	ExpiryTime         *time.Time `json:"expiryTime,omitempty"`
	RetryMethod        string     `json:"retryMethod,omitempty"`
	Retries            int        `json:"retries"`
	Category           string     `json:"category,omitempty"`
	Payloads           []byte     `json:"payloads,omitempty"`
}

func (e TxEvent) MarshalJSON() ([]byte, error) {
	out := txEventJSON{
		SurrogateID:        e.SurrogateID,
		ServiceName:        e.ServiceName,
		InstanceID:         e.InstanceID,
		CreationTime:       e.CreationTime,
		GlobalTxID:         e.GlobalTxID,
		LocalTxID:          e.LocalTxID,
		Type:               e.Type,
		CompensationMethod: e.CompensationMethod,
		RetryMethod:        e.RetryMethod,
		Retries:            e.Retries,
		Category:           e.Category,
		Payloads:           e.Payloads,
	}
	if e.ParentTxID.Valid {
		out.ParentTxID = e.ParentTxID.String
	}
	if e.HasExpiry() {
		t := e.ExpiryTime.Time
		out.ExpiryTime = &t
	}
	return json.Marshal(out)
}

func (e *TxEvent) UnmarshalJSON(b []byte) error {
	var in txEventJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*e = TxEvent{
		SurrogateID:        in.SurrogateID,
		ServiceName:        in.ServiceName,
		InstanceID:         in.InstanceID,
		CreationTime:       in.CreationTime,
		GlobalTxID:         in.GlobalTxID,
		LocalTxID:          in.LocalTxID,
		Type:               in.Type,
		CompensationMethod: in.CompensationMethod,
		RetryMethod:        in.RetryMethod,
		Retries:            in.Retries,
		Category:           in.Category,
		Payloads:           in.Payloads,
	}
	if in.ParentTxID != "" {
		e.ParentTxID = sql.NullString{String: in.ParentTxID, Valid: true}
	}
	if in.ExpiryTime != nil && !in.ExpiryTime.IsZero() {
		e.ExpiryTime = sql.NullTime{Time: *in.ExpiryTime, Valid: true}
	}
	return nil
}
