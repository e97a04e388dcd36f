package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/config"
	"github.com/jmehdipour/saga-coordinator/internal/model"
)

// Participant is one omega instance able to run compensations.
type Participant interface {
	ServiceName() string
	InstanceID() string
	Ready() bool
	Acquire() bool
	Compensate(ctx context.Context, cmd model.CompensationCommand) error
}

// HTTPParticipant posts compensation commands to an omega CompensationHandler.
type HTTPParticipant struct {
	serviceName    string
	instanceID     string
	baseURL        string
	compensatePath string
	client         *http.Client
	br             *MicroBreaker
}

func NewHTTPParticipant(c config.ParticipantConfig) *HTTPParticipant {
	timeoutMs := c.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}
	failThreshold := c.Breaker.FailThreshold
	if failThreshold <= 0 {
		failThreshold = 3
	}
	openForMs := c.Breaker.OpenForMs
	if openForMs <= 0 {
		openForMs = 15000
	}
	path := c.CompensatePath
	if path == "" {
		path = "/omega/compensate"
	}

	return &HTTPParticipant{
		serviceName:    c.ServiceName,
		instanceID:     c.InstanceID,
		baseURL:        c.BaseURL,
		compensatePath: path,
		client:         &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:             NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPParticipant) ServiceName() string { return p.serviceName }
func (p *HTTPParticipant) InstanceID() string  { return p.instanceID }
func (p *HTTPParticipant) Ready() bool         { return p.br.Ready() }
func (p *HTTPParticipant) Acquire() bool       { return p.br.TryAcquire() }

func (p *HTTPParticipant) Compensate(ctx context.Context, cmd model.CompensationCommand) error {
	if err := p.post(ctx, cmd); err != nil {
		p.br.OnFailure()
		return err
	}
	p.br.OnSuccess()
	return nil
}

func (p *HTTPParticipant) post(ctx context.Context, cmd model.CompensationCommand) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.compensatePath, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("participant=%s/%s status=%d", p.serviceName, p.instanceID, res.StatusCode)
	}
	return nil
}
