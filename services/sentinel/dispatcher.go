package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/tamas-pataky/cultiva-node/pubsub"
	"github.com/tamas-pataky/cultiva-node/services"
	"github.com/tamas-pataky/cultiva-node/util"
)

// Dispatcher delivers alerts to the hub and escalates them to a phone via
// the message bus. Requests to the hub are retried.
type Dispatcher struct {
	Hub       string
	Node      string
	Client    *http.Client
	Publisher pubsub.Publisher
	Retrier   util.Retrier
}

func (d *Dispatcher) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

// hubPayload is the alert as the hub expects it: without the local id.
func hubPayload(alert Alert) ([]byte, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	delete(fields, "id")
	return json.Marshal(fields)
}

// postJSON posts body and fails on anything but a 2xx response.
func postJSON(ctx context.Context, client *http.Client, address string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("POST %s: %s", address, resp.Status)
	}
	return nil
}

// DispatchToHub posts alert to the hub's notifications endpoint.
func (d *Dispatcher) DispatchToHub(ctx context.Context, alert Alert) error {
	if d.Hub == "" {
		return errors.New("no hub address configured")
	}
	body, err := hubPayload(alert)
	if err != nil {
		return errors.Wrap(err, "encoding alert")
	}
	address := d.Hub + "/api/notifications?nodeId=" + url.QueryEscape(d.Node)
	return util.Retry(d.Retrier, func() error {
		return postJSON(ctx, d.client(), address, body)
	})
}

// DispatchToPhone publishes alert for the SMS gateway. The broker
// connection handles redelivery.
func (d *Dispatcher) DispatchToPhone(alert Alert) error {
	if d.Publisher == nil {
		return errors.New("no message bus for phone alerts")
	}
	message := fmt.Sprintf("Node %s: %s", d.Node, alert.Key)
	services.SendAlert(d.Publisher, "sms", message, pubsub.Fields{
		"node":       d.Node,
		"key":        alert.Key,
		"type":       alert.Type,
		"severity":   alert.Severity,
		"properties": alert.Properties,
	})
	return nil
}

// SyncWithHub tells the hub this node is alive and where to reach it.
func (d *Dispatcher) SyncWithHub(ctx context.Context, localIP string) error {
	if d.Hub == "" {
		return errors.New("no hub address configured")
	}
	body, err := json.Marshal(map[string]string{
		"nodeId":         d.Node,
		"localIpAddress": localIP,
	})
	if err != nil {
		return err
	}
	return util.Retry(d.Retrier, func() error {
		return postJSON(ctx, d.client(), d.Hub+"/api/node/sync", body)
	})
}
