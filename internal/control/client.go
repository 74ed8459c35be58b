package control

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/dispatcher"
)

type Client struct {
	http *resty.Client
}

type errorBody struct {
	Error   string              `json:"error"`
	Outcome *dispatcher.Outcome `json:"outcome,omitempty"`
}

// NewClient talks to a daemon listening on 127.0.0.1:port.
func NewClient(port, secret string) *Client {
	client := resty.New().
		SetBaseURL("http://127.0.0.1:"+port).
		SetTimeout(constants.ControlTimeout).
		SetRetryCount(constants.ControlMaxRetries).
		SetRetryWaitTime(constants.ControlRetryDelay).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(constants.ControlSecretHeader, secret)

	return &Client{http: client}
}

// Discover finds the running daemon through the lockfile in configDir.
func Discover(configDir string) (*Client, error) {
	port, secret, err := ReadLockfile(LockfilePath(configDir))
	if err != nil {
		return nil, err
	}
	return NewClient(port, secret), nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&health).
		SetError(&errorBody{}).
		Get("/health")
	if err := checkResponse(resp, err); err != nil {
		return Health{}, err
	}
	return health, nil
}

// Act delivers a user action for an alert. A snooze past the cap returns the
// outcome together with dispatcher.ErrMaxSnoozes. An alert the daemon never
// delivered yields dispatcher.ErrUnknownAlert.
func (c *Client) Act(ctx context.Context, action, alertID string) (dispatcher.Outcome, error) {
	var outcome dispatcher.Outcome
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(dispatcher.Response{ActionIdentifier: action, AlertID: alertID}).
		SetResult(&outcome).
		SetError(&errorBody{}).
		Post("/actions")
	if err != nil {
		return dispatcher.Outcome{}, fmt.Errorf("failed to reach daemon: %w", err)
	}

	if resp.StatusCode() == http.StatusConflict {
		body, _ := resp.Error().(*errorBody)
		if body != nil && body.Outcome != nil {
			outcome = *body.Outcome
		}
		return outcome, dispatcher.ErrMaxSnoozes
	}
	if resp.StatusCode() == http.StatusNotFound {
		return dispatcher.Outcome{}, fmt.Errorf("%w: %s", dispatcher.ErrUnknownAlert, alertID)
	}
	if err := checkResponse(resp, nil); err != nil {
		return dispatcher.Outcome{}, err
	}
	return outcome, nil
}

func (c *Client) Presented(ctx context.Context) ([]PresentedAlert, error) {
	var alerts []PresentedAlert
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&alerts).
		SetError(&errorBody{}).
		Get("/presented")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Clear removes a presented alert without acting on it, like a tray swipe.
func (c *Client) Clear(ctx context.Context, alertID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", alertID).
		SetError(&errorBody{}).
		Delete("/presented/{id}")
	return checkResponse(resp, err)
}

// ForgetMedication tells the daemon a medication was deleted. It returns how
// many of its alerts were silenced.
func (c *Client) ForgetMedication(ctx context.Context, medicationID string) (int, error) {
	var body struct {
		Forgotten int `json:"forgotten"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", medicationID).
		SetResult(&body).
		SetError(&errorBody{}).
		Delete("/medications/{id}/alerts")
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	return body.Forgotten, nil
}

func (c *Client) TestAlarm(ctx context.Context) (dispatcher.Outcome, error) {
	var outcome dispatcher.Outcome
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&outcome).
		SetError(&errorBody{}).
		Post("/alarms/test")
	if err := checkResponse(resp, err); err != nil {
		return dispatcher.Outcome{}, err
	}
	return outcome, nil
}

func (c *Client) StopAll(ctx context.Context) (int, error) {
	var body struct {
		Stopped int `json:"stopped"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetError(&errorBody{}).
		Post("/alarms/stop-all")
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	return body.Stopped, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode(), body.Error)
	}
	return fmt.Errorf("daemon returned %d", resp.StatusCode())
}
