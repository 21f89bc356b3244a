package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/locatr/trackd/cli/trackd/track"
	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *natsserver.Server {
	t.Helper()

	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	go srv.Start()
	t.Cleanup(srv.Shutdown)

	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS server did not start")
	}
	return srv
}

func TestConnectorPublishesFixes(t *testing.T) {
	srv := startServer(t)

	c := &Connector{}
	require.NoError(t, c.Init(map[string]string{
		"servers": srv.ClientURL(),
		"subject": "trackd.test",
	}))
	defer c.Close()

	nc, err := natsgo.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	msgs := make(chan *natsgo.Msg, 1)
	_, err = nc.ChanSubscribe("trackd.test", msgs)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	fix := track.Fix{DeviceID: track.DefaultDeviceID, Latitude: 40.0, Longitude: -3.0, Timestamp: 1000}
	require.NoError(t, c.Save(fix))

	select {
	case msg := <-msgs:
		var got track.Fix
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, fix, got)
	case <-time.After(2 * time.Second):
		t.Fatal("fix was not published")
	}
}

func TestConnectorDefaultSubject(t *testing.T) {
	srv := startServer(t)

	c := &Connector{}
	require.NoError(t, c.Init(map[string]string{"servers": srv.ClientURL()}))
	defer c.Close()

	assert.Equal(t, defaultSubject, c.subject)
}

func TestConnectorUnreachable(t *testing.T) {
	c := &Connector{}
	err := c.Init(map[string]string{"host": "127.0.0.1", "port": "1"})
	assert.Error(t, err)
}
