package echo

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talostrading/asyncevent"
	"github.com/talostrading/asyncevent/aeopts"
)

func TestEchoPingPong(t *testing.T) {
	assert := assert.New(t)

	r := asyncevent.MustReactor()
	defer r.Close()

	server, err := NewServer(ServerConfig{
		Addr:           "127.0.0.1:0",
		Backlog:        5,
		SessionIdle:    time.Second,
		ReportInterval: 100 * time.Millisecond,
		MaxIdleReports: 3,
	})
	require.Nil(t, err)
	_, err = r.Register(server)
	require.Nil(t, err)

	var report bytes.Buffer
	client, err := NewClient(ClientConfig{
		Addr:           server.LocalAddr().String(),
		ConnectTimeout: time.Second,
		Pings:          10,
		Idle:           100 * time.Millisecond,
		Report:         &report,
	}, aeopts.NoDelay(true))
	require.Nil(t, err)
	_, err = r.Register(client)
	require.Nil(t, err)

	stop := time.AfterFunc(10*time.Second, r.Stop)
	defer stop.Stop()

	assert.Nil(r.Run())
	assert.False(r.Stopped())

	assert.Equal(10, client.Echoed())
	assert.True(client.Done())
	assert.True(IsGreeting(client.Greeting()))
	assert.Equal(asyncevent.ClientClosed, client.State())
	assert.Contains(report.String(), "name=echo_rtt samples=10")

	assert.Equal(1, server.Total())
	assert.Equal(0, server.Sessions())
	assert.True(server.Closed())
	assert.Equal(0, r.NumDispatchers())
}

func TestEchoServerRefusesBadAddress(t *testing.T) {
	_, err := NewServer(ServerConfig{Addr: "not an address"})
	assert.NotNil(t, err)
}

func TestEchoClientConnectionRefused(t *testing.T) {
	assert := assert.New(t)

	r := asyncevent.MustReactor()
	defer r.Close()

	// grab a free port, then release it
	server, err := NewServer(ServerConfig{Addr: "127.0.0.1:0"})
	require.Nil(t, err)
	addr := server.LocalAddr().String()
	require.Nil(t, server.Close())

	client, err := NewClient(ClientConfig{
		Addr:           addr,
		ConnectTimeout: time.Second,
		Pings:          1,
	})
	if err != nil {
		// refused synchronously
		return
	}
	_, err = r.Register(client)
	require.Nil(t, err)

	stop := time.AfterFunc(10*time.Second, r.Stop)
	defer stop.Stop()

	assert.Nil(r.Run())
	assert.Equal(0, client.Echoed())
	assert.Equal(asyncevent.ClientClosed, client.State())
}
