package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/pkg/authz"
	"github.com/iota-uz/orgchart/pkg/composables"
	"github.com/iota-uz/orgchart/pkg/configuration"
)

const tracerName = "github.com/iota-uz/orgchart/modules/orgchart/services"

const (
	opDeletePeople      = "delete_people"
	opMovePeople        = "move_people"
	opEditPeople        = "edit_people"
	opDeleteDepartments = "delete_departments"
	opEditDepartments   = "edit_departments"
)

// PermissionGate is satisfied by *authz.Gate.
type PermissionGate interface {
	RequireOrgPermission(ctx context.Context, orgID, actorID uuid.UUID, min authz.Role) error
}

type BulkServiceDeps struct {
	Departments department.Repository
	People      person.Repository
	Gate        PermissionGate
	Notifier    ChangeNotifier
	Tx          TxRunner
	// MaxItems caps the batch size; zero or anything above
	// configuration.MaxBulkItems means configuration.MaxBulkItems.
	MaxItems int
	Clock    func() time.Time
}

// BulkService applies one operation to up to MaxItems entities. Each item runs
// in its own savepoint; the enclosing transaction commits whatever succeeded.
type BulkService struct {
	departments department.Repository
	people      person.Repository
	gate        PermissionGate
	notifier    ChangeNotifier
	tx          TxRunner
	validate    *validator.Validate
	maxItems    int
	now         func() time.Time
}

func NewBulkService(deps BulkServiceDeps) *BulkService {
	maxItems := deps.MaxItems
	if maxItems <= 0 || maxItems > configuration.MaxBulkItems {
		maxItems = configuration.MaxBulkItems
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	tx := deps.Tx
	if tx == nil {
		tx = PgTxRunner{}
	}
	return &BulkService{
		departments: deps.Departments,
		people:      deps.People,
		gate:        deps.Gate,
		notifier:    deps.Notifier,
		tx:          tx,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		maxItems:    maxItems,
		now:         clock,
	}
}

func (s *BulkService) MaxItems() int { return s.maxItems }

// bulkCall is the per-invocation state shared by the five operations.
type bulkCall struct {
	op      string
	orgID   uuid.UUID
	actor   uuid.UUID
	ids     []uuid.UUID
	started time.Time
	span    trace.Span
	log     *logrus.Entry
}

// begin authorizes the actor and validates the batch shape. Both happen
// before any transaction is opened.
func (s *BulkService) begin(ctx context.Context, op string, orgID, actor uuid.UUID, ids []uuid.UUID) (context.Context, *bulkCall, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "orgchart.bulk."+op, trace.WithAttributes(
		attribute.String("orgchart.operation", op),
		attribute.String("orgchart.organization_id", orgID.String()),
		attribute.Int("orgchart.requested", len(ids)),
	))
	call := &bulkCall{
		op:      op,
		orgID:   orgID,
		actor:   actor,
		ids:     ids,
		started: time.Now(),
		span:    span,
		log: composables.UseLogger(ctx).WithFields(logrus.Fields{
			"component":       "orgchart",
			"operation":       op,
			"organization_id": orgID,
			"actor_id":        actor,
		}),
	}
	ctx = composables.WithOrganizationID(ctx, orgID)

	if err := s.Authorize(ctx, orgID, actor); err != nil {
		return ctx, call, call.abort(err)
	}
	if err := s.validateBatch(ids); err != nil {
		return ctx, call, call.abort(err)
	}
	return ctx, call, nil
}

// Authorize checks that actor holds at least the editor role in orgID. Every
// bulk operation runs it first; transports call it before parsing a request
// body so an unauthorized caller never learns about body validation.
func (s *BulkService) Authorize(ctx context.Context, orgID, actor uuid.UUID) error {
	err := s.gate.RequireOrgPermission(ctx, orgID, actor, authz.RoleEditor)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrPermissionDenied):
		return permissionDenied(err)
	default:
		return internalError(err)
	}
}

func (c *bulkCall) abort(err error) error {
	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
	c.span.End()
	observeDuration(c.op, c.started)
	c.log.WithError(err).Info("bulk call rejected")
	return err
}

func (s *BulkService) validateBatch(ids []uuid.UUID) error {
	tag := fmt.Sprintf("required,min=1,max=%d,dive,required", s.maxItems)
	err := s.validate.Var(ids, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badBatch(err.Error())
	}
	switch fe := verrs[0]; {
	case fe.Tag() == "max":
		return badBatch(fmt.Sprintf("A maximum of %d items can be processed at once", s.maxItems))
	case fe.Tag() == "required" && fe.Field() != "":
		return badBatch("Item ids must be non-empty identifiers")
	default:
		return badBatch("At least one item is required")
	}
}

// applied is a successful per-item outcome. A nil *applied with a nil error
// means the item was skipped silently.
type applied[T any] struct {
	item     T
	warnings []string
}

type applyFunc[T any] func(ctx context.Context, id uuid.UUID) (*applied[T], error)

// run executes apply for every id in caller order inside one transaction.
// Items never abort the loop: failures land in result.Failed and only that
// item's savepoint is rolled back.
func run[T any](ctx context.Context, s *BulkService, call *bulkCall, result BulkResult[T], apply applyFunc[T]) (BulkResult[T], error) {
	defer call.span.End()
	defer observeDuration(call.op, call.started)

	var skipped int
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		for _, id := range call.ids {
			var out *applied[T]
			itemErr := s.tx.InSavepoint(txCtx, func(spCtx context.Context) (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
				}()
				out, err = apply(spCtx, id)
				return err
			})
			if err := txCtx.Err(); err != nil {
				return err
			}

			switch {
			case itemErr != nil:
				out = nil
				result.fail(id, itemMessage(itemErr))
				recordItem(call.op, resultFailed)
				var expected *itemConflict
				if errors.As(itemErr, &expected) {
					call.log.WithField("item_id", id).Debug(expected.message)
				} else {
					call.log.WithField("item_id", id).WithError(itemErr).Warn("bulk item failed")
				}
			case out == nil:
				skipped++
				recordItem(call.op, resultSkipped)
			default:
				result.succeed(out.item, out.warnings...)
				recordItem(call.op, resultSuccess)
			}
		}
		return nil
	})
	if err != nil {
		err = internalError(err)
		call.span.RecordError(err)
		call.span.SetStatus(codes.Error, err.Error())
		call.log.WithError(err).Error("bulk transaction failed")
		var zero BulkResult[T]
		return zero, err
	}

	call.span.SetAttributes(
		attribute.Int("orgchart.succeeded", result.Count),
		attribute.Int("orgchart.failed", result.FailedCount),
	)
	call.log.WithFields(logrus.Fields{
		"requested": len(call.ids),
		"succeeded": result.Count,
		"failed":    result.FailedCount,
		"skipped":   skipped,
	}).Info("bulk call completed")
	return result, nil
}

func itemMessage(err error) string {
	var expected *itemConflict
	if errors.As(err, &expected) {
		return expected.message
	}
	return err.Error()
}
