package server

import (
	"context"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	pcache "MacroPull/pkg/cache"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingPublisher struct{ closed bool }

func (p *closingPublisher) Publish(context.Context, *models.OutputDataset) error { return nil }

func (p *closingPublisher) Close() error { p.closed = true; return nil }

func TestRunContextShutsDownOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second

	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	store := pcache.NewMemoryCache()
	pub := &closingPublisher{}
	app := New(cfg, nil, srv, store, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, pub.closed)
}
