package sentinel

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamas-pataky/cultiva-node/util"
)

var noRetryWait = util.Retrier{Backoff: func(int) time.Duration { return 0 }}

func TestHubPayloadDropsID(t *testing.T) {
	body, err := hubPayload(Alert{ID: "abc", Key: "InternetUp(t)", Type: InternetUp, Properties: `{"time":"t"}`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"InternetUp(t)","time":"","type":"InternetUp","severity":0,"properties":"{\"time\":\"t\"}"}`, string(body))
}

func TestDispatchToHub(t *testing.T) {
	hub := newFakeHub(t)
	d := &Dispatcher{Hub: hub.URL, Node: "node 7", Retrier: noRetryWait}

	require.NoError(t, d.DispatchToHub(context.Background(), Alert{ID: "abc", Key: "K", Severity: 3}))
	requests := hub.received()
	require.Len(t, requests, 1)
	assert.Equal(t, "/api/notifications", requests[0].Path)
	assert.Equal(t, "nodeId=node+7", requests[0].Query)
	assert.Equal(t, "K", requests[0].Body["key"])
	assert.Equal(t, float64(3), requests[0].Body["severity"])
}

func TestDispatchToHubRetries(t *testing.T) {
	hub := newFakeHub(t)
	hub.status = http.StatusBadGateway
	d := &Dispatcher{Hub: hub.URL, Node: "n", Retrier: noRetryWait}

	err := d.DispatchToHub(context.Background(), Alert{Key: "K"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Len(t, hub.received(), util.DefaultAttempts)
}

func TestDispatchWithoutHub(t *testing.T) {
	d := &Dispatcher{Node: "n"}
	assert.EqualError(t, d.DispatchToHub(context.Background(), Alert{}), "no hub address configured")
	assert.EqualError(t, d.SyncWithHub(context.Background(), "10.0.0.2"), "no hub address configured")
}
