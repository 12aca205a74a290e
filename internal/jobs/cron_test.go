package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingBroadcaster struct{ n atomic.Int32 }

func (c *countingBroadcaster) BroadcastAnnouncements(context.Context) error {
	c.n.Add(1)
	return nil
}

type nopPurger struct{}

func (nopPurger) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

func TestStartRunsBroadcast(t *testing.T) {
	c := cron.New()
	defer c.Stop()
	b := &countingBroadcaster{}
	require.NoError(t, Start(c, "@every 1s", b, nopPurger{}, zap.NewNop()))
	assert.Len(t, c.Entries(), 2)
	assert.Eventually(t, func() bool { return b.n.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStartRejectsBadSpec(t *testing.T) {
	c := cron.New()
	defer c.Stop()
	assert.Error(t, Start(c, "every now and then", &countingBroadcaster{}, nil, zap.NewNop()))
}
