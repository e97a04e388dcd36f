package omega

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
)

// Client reports events of one participant instance to alpha.
type Client struct {
	baseURL     string
	serviceName string
	instanceID  string
	http        *http.Client
	now         func() time.Time
}

func NewClient(baseURL, serviceName, instanceID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		serviceName: serviceName,
		instanceID:  instanceID,
		http:        &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

type outcomeResp struct {
	Result string `json:"result"`
	Code   int    `json:"code"`
}

// Report submits an event through pause-aware ingestion.
func (c *Client) Report(ctx context.Context, e model.TxEvent) (txconsistent.Outcome, error) {
	if e.ServiceName == "" {
		e.ServiceName = c.serviceName
	}
	if e.InstanceID == "" {
		e.InstanceID = c.instanceID
	}
	if e.CreationTime.IsZero() {
		e.CreationTime = c.now().UTC()
	}

	b, err := json.Marshal(e)
	if err != nil {
		return txconsistent.OutcomePaused, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events/pausable", bytes.NewReader(b))
	if err != nil {
		return txconsistent.OutcomePaused, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderInstanceID, c.instanceID)

	res, err := c.http.Do(req)
	if err != nil {
		return txconsistent.OutcomePaused, fmt.Errorf("report %s: %w", e.Type, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusConflict, http.StatusLocked:
	default:
		return txconsistent.OutcomePaused, fmt.Errorf("report %s: status=%d", e.Type, res.StatusCode)
	}
	var out outcomeResp
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return txconsistent.OutcomePaused, fmt.Errorf("decode outcome: %w", err)
	}
	switch o := txconsistent.Outcome(out.Code); o {
	case txconsistent.OutcomeAborted, txconsistent.OutcomePaused, txconsistent.OutcomeAccepted:
		return o, nil
	default:
		return txconsistent.OutcomePaused, fmt.Errorf("unknown outcome code %d", out.Code)
	}
}

// Paused asks alpha whether the saga is currently paused.
func (c *Client) Paused(ctx context.Context, globalTxID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sagas/"+url.PathEscape(globalTxID)+"/paused", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set(HeaderInstanceID, c.instanceID)

	res, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("paused %s: status=%d", globalTxID, res.StatusCode)
	}
	var out struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Paused, nil
}
