package orgchart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/events"
	"github.com/iota-uz/orgchart/modules/orgchart/infrastructure/persistence"
	"github.com/iota-uz/orgchart/modules/orgchart/presentation/controllers"
	"github.com/iota-uz/orgchart/modules/orgchart/services"
	"github.com/iota-uz/orgchart/pkg/application"
	"github.com/iota-uz/orgchart/pkg/outbox"
	ebdispatcher "github.com/iota-uz/orgchart/pkg/outbox/dispatchers/eventbus"
	"github.com/iota-uz/orgchart/pkg/realtime"
)

// OutboxTable receives one ChangeEventV1 per mutated entity.
var OutboxTable = pgx.Identifier{"orgchart_outbox"}

type ModuleOptions struct {
	Gate         services.PermissionGate
	MaxBulkItems int
	ActorHeader  string
	// Realtime, when set, receives every change event delivered by the
	// outbox relay.
	Realtime *realtime.Broadcaster
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
	bulk    *services.BulkService
	tree    *services.TreeService
}

func (m *Module) Register(app application.Application) error {
	if m.options.Gate == nil {
		return errors.New("orgchart: permission gate is required")
	}
	publisher, err := outbox.NewPublisher(OutboxTable)
	if err != nil {
		return err
	}

	departments := persistence.NewDepartmentRepository()
	people := persistence.NewPersonRepository()
	notifier := services.NewAuditOutboxNotifier(persistence.NewAuditLogRepository(), publisher)

	m.bulk = services.NewBulkService(services.BulkServiceDeps{
		Departments: departments,
		People:      people,
		Gate:        m.options.Gate,
		Notifier:    notifier,
		Tx:          services.PgTxRunner{},
		MaxItems:    m.options.MaxBulkItems,
	})
	m.tree = services.NewTreeService(departments, people, m.options.Gate)

	app.RegisterControllers(
		controllers.NewOrgChartAPIController(m.bulk, m.tree, m.options.ActorHeader),
	)

	log := app.Logger().WithField("component", "orgchart")
	app.EventPublisher().Subscribe(func(_ context.Context, evt *events.ChangeEventV1) {
		log.WithFields(logrus.Fields{
			"event_id":        evt.EventID,
			"organization_id": evt.OrganizationID,
			"entity_type":     evt.EntityType,
			"entity_id":       evt.EntityID,
			"change_type":     evt.ChangeType,
		}).Debug("change delivered")
	})
	if rt := m.options.Realtime; rt != nil {
		app.EventPublisher().Subscribe(func(ctx context.Context, evt *events.ChangeEventV1) error {
			return rt.Broadcast(ctx, evt.OrganizationID, evt)
		})
	}
	return nil
}

func (m *Module) Name() string {
	return "orgchart"
}

func (m *Module) BulkService() *services.BulkService { return m.bulk }
func (m *Module) TreeService() *services.TreeService { return m.tree }

// Decoders maps the module's outbox topics to typed eventbus payloads.
func Decoders() map[string]ebdispatcher.Decoder {
	return map[string]ebdispatcher.Decoder{
		events.TopicOrgChartChangedV1: ebdispatcher.JSON[events.ChangeEventV1](),
	}
}
