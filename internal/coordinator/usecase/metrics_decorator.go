package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
	"github.com/havenhealth/securecore/internal/metrics"
)

// coordinatorWithMetrics decorates Coordinator with metrics instrumentation.
type coordinatorWithMetrics struct {
	next    Coordinator
	metrics metrics.BusinessMetrics
}

// NewCoordinatorWithMetrics wraps a Coordinator with metrics recording.
func NewCoordinatorWithMetrics(coordinator Coordinator, m metrics.BusinessMetrics) Coordinator {
	return &coordinatorWithMetrics{
		next:    coordinator,
		metrics: m,
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *coordinatorWithMetrics) Initialize(ctx context.Context) error {
	return c.next.Initialize(ctx)
}

// Submit records metrics for operation submission, labelled by class.
func (c *coordinatorWithMetrics) Submit(ctx context.Context, op *coorddomain.SecurityOperation) (*coorddomain.OperationResult, error) {
	start := time.Now()
	result, err := c.next.Submit(ctx, op)

	operation := "submit_" + string(op.Class)
	c.metrics.RecordOperation(ctx, "coordinator", operation, statusOf(err))
	c.metrics.RecordDuration(ctx, "coordinator", operation, time.Since(start), statusOf(err))

	return result, err
}

func (c *coordinatorWithMetrics) Cancel(id uuid.UUID) error {
	err := c.next.Cancel(id)
	c.metrics.RecordOperation(context.Background(), "coordinator", "cancel", statusOf(err))
	return err
}

// ValidateEmergencyAccess records the check latency; the duration histogram
// is how budget violations show up on dashboards.
func (c *coordinatorWithMetrics) ValidateEmergencyAccess(ctx context.Context) (*coorddomain.EmergencyAccessReport, error) {
	start := time.Now()
	report, err := c.next.ValidateEmergencyAccess(ctx)

	status := "success"
	if err != nil || (report != nil && !report.Accessible) {
		status = "error"
	}
	c.metrics.RecordOperation(ctx, "coordinator", "emergency_access_check", status)
	c.metrics.RecordDuration(ctx, "coordinator", "emergency_access_check", time.Since(start), status)

	return report, err
}

func (c *coordinatorWithMetrics) Status(ctx context.Context) (*coorddomain.CoordinationStatus, error) {
	return c.next.Status(ctx)
}
