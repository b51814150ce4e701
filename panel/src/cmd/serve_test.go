package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeFlagDefaults(t *testing.T) {
	flags := serveCmd.Flags()

	address, err := flags.GetString("address")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5000", address)

	grpcAddr, err := flags.GetString("grpc-address")
	require.NoError(t, err)
	assert.Empty(t, grpcAddr)

	level, err := flags.GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "info", level)
}

func TestServeRegistered(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, serveCmd, found)
}

func TestNewPanel(t *testing.T) {
	p, err := newPanel("debug", "", true)
	require.NoError(t, err)
	assert.NotNil(t, p.http)
	assert.NotNil(t, p.grpc)
	assert.False(t, p.tracer.Enabled())

	// Nothing was started, so shutting down must not block or fail.
	p.shutdown(context.Background())
}

func TestNewPanelWithoutGRPC(t *testing.T) {
	p, err := newPanel("info", "", false)
	require.NoError(t, err)
	assert.Nil(t, p.grpc)
}

func TestNewPanelRejectsUnknownLevel(t *testing.T) {
	_, err := newPanel("loud", "", false)
	assert.Error(t, err)
}
