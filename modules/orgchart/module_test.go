package orgchart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/events"
	"github.com/iota-uz/orgchart/pkg/application"
	"github.com/iota-uz/orgchart/pkg/authz"
	"github.com/iota-uz/orgchart/pkg/outbox"
	ebdispatcher "github.com/iota-uz/orgchart/pkg/outbox/dispatchers/eventbus"
	"github.com/iota-uz/orgchart/pkg/realtime"
)

type allowAll struct{}

func (allowAll) RequireOrgPermission(context.Context, uuid.UUID, uuid.UUID, authz.Role) error {
	return nil
}

type redisRecorder struct {
	channels []string
	messages [][]byte
}

func (r *redisRecorder) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channels = append(r.channels, channel)
	r.messages = append(r.messages, message.([]byte))
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	cmd.SetVal(1)
	return cmd
}

func TestModule_RequiresGate(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	require.Error(t, NewModule(nil).Register(app))
}

func TestModule_RegistersControllerAndServices(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	m := NewModule(&ModuleOptions{Gate: allowAll{}, MaxBulkItems: 25}).(*Module)

	require.NoError(t, app.RegisterModules(m))
	require.Len(t, app.Controllers(), 1)
	require.Equal(t, "/api/orgs/{orgId}", app.Controllers()[0].Key())
	require.Equal(t, 25, m.BulkService().MaxItems())
	require.NotNil(t, m.TreeService())
	require.Equal(t, 1, app.EventPublisher().SubscribersCount())
}

func TestModule_RelaysChangeEventsToRealtime(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	rec := &redisRecorder{}
	m := NewModule(&ModuleOptions{
		Gate:     allowAll{},
		Realtime: realtime.NewBroadcaster(rec, "orgchart", nil),
	})
	require.NoError(t, app.RegisterModules(m))

	orgID := uuid.New()
	evt := events.ChangeEventV1{
		EventID:        uuid.New(),
		EventVersion:   events.EventVersionV1,
		OrganizationID: orgID,
		ChangeType:     events.ChangeDeleted,
		EntityType:     events.EntityPerson,
		EntityID:       uuid.New(),
		NewValues:      json.RawMessage(`{"name":"Ada"}`),
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	d := ebdispatcher.New(app.EventPublisher(), Decoders())
	require.NoError(t, d.Dispatch(context.Background(), outbox.DispatchedMessage{
		Meta:    outbox.Meta{Topic: events.TopicOrgChartChangedV1, OrganizationID: orgID, EventID: evt.EventID},
		Payload: payload,
	}))

	require.Equal(t, []string{"orgchart:" + orgID.String()}, rec.channels)
	var got events.ChangeEventV1
	require.NoError(t, json.Unmarshal(rec.messages[0], &got))
	require.Equal(t, evt.EntityID, got.EntityID)
	require.Equal(t, events.ChangeDeleted, got.ChangeType)
}
