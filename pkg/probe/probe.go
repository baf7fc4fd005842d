// Package probe performs one HTTP GET against a target and classifies the
// outcome for the TargetFSM.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
)

const timeout = 15 * time.Second

// Outcome is the result of one probe attempt against a target.
type Outcome struct {
	StartedAt    time.Time
	ElapsedS     float64
	TTFBS        *float64
	PayloadBytes *int
	StatusCode   *int
	IsSuccess    bool
	ErrorMessage *string
}

// Prober performs one HTTP GET and measures timing.
type Prober struct {
	client *http.Client
	clock  clock.Clock
}

// New builds a Prober using a client bounded by the fixed overall timeout.
func New(c clock.Clock) *Prober {
	return &Prober{
		client: &http.Client{Timeout: timeout},
		clock:  c,
	}
}

// Probe issues a GET against url, streaming the body to measure TTFB before
// draining it fully, and classifies the result.
func (p *Prober) Probe(ctx context.Context, url string) *Outcome {
	started := p.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return p.transportFailure(started, fmt.Sprintf("invalid request: %v", err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportFailure(started, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	ttfb := p.clock.Now().Sub(started).Seconds()

	counting := &countingReader{r: resp.Body}
	_, copyErr := io.Copy(io.Discard, counting)

	elapsed := p.clock.Now().Sub(started).Seconds()
	payloadBytes := counting.n

	if copyErr != nil {
		msg := fmt.Sprintf("read failed: %v", copyErr)
		return &Outcome{
			StartedAt:    started,
			ElapsedS:     elapsed,
			TTFBS:        &ttfb,
			PayloadBytes: &payloadBytes,
			IsSuccess:    false,
			ErrorMessage: &msg,
		}
	}

	statusCode := resp.StatusCode
	isSuccess := statusCode >= 200 && statusCode < 400

	outcome := &Outcome{
		StartedAt:    started,
		ElapsedS:     elapsed,
		TTFBS:        &ttfb,
		PayloadBytes: &payloadBytes,
		StatusCode:   &statusCode,
		IsSuccess:    isSuccess,
	}
	if !isSuccess {
		msg := fmt.Sprintf("HTTP %d", statusCode)
		outcome.ErrorMessage = &msg
	}
	return outcome
}

func (p *Prober) transportFailure(started time.Time, message string) *Outcome {
	elapsed := p.clock.Now().Sub(started).Seconds()
	return &Outcome{
		StartedAt:    started,
		ElapsedS:     elapsed,
		IsSuccess:    false,
		ErrorMessage: &message,
	}
}

// countingReader wraps an io.Reader to count bytes read, letting the caller
// measure payload size without buffering the whole body.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// ToProbeLog converts an Outcome for a target into a database.ProbeLog row.
func ToProbeLog(targetID string, o *Outcome) *database.ProbeLog {
	return &database.ProbeLog{
		TargetID:      targetID,
		Timestamp:     o.StartedAt,
		StatusCode:    o.StatusCode,
		ResponseTimeS: o.ElapsedS,
		TTFBS:         o.TTFBS,
		PayloadBytes:  o.PayloadBytes,
		IsSuccess:     o.IsSuccess,
		ErrorMessage:  o.ErrorMessage,
	}
}
