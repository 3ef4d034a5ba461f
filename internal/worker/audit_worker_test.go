package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/observability"
	"github.com/spec-kit/hr-service/internal/service"
)

func TestAuditWorker_RecordsPublishedEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	audit := service.NewAuditService(logger, observability.NewMetrics(prometheus.NewRegistry()))
	dispatcher := events.NewInMemoryDispatcher()

	w := StartAuditWorker(dispatcher, audit, logger, 4)
	id := int64(1)
	for i := 0; i < 3; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
			Type:      events.EventAccountDeleted,
			SubjectID: int64(10 + i),
			Actor:     events.Actor{AccountID: &id, Username: "admin"},
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "account_deleted", entries[0].ContextMap()["event_type"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["actor_id"])

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventProfileUpdated}))
	assert.Len(t, logs.FilterMessage("audit").All(), 4, "events after stop are recorded inline")
}
