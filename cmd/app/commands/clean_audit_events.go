package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditusecase "github.com/havenhealth/securecore/internal/audit/usecase"
)

// RunCleanAuditEvents deletes audit events past their retention windows. The
// sweep itself is appended to the trail.
func RunCleanAuditEvents(
	ctx context.Context,
	audit auditusecase.AuditEncryptor,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	report, err := audit.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean audit events: %w", err)
	}

	logger.Info("audit cleanup completed",
		slog.Int("examined", report.Examined),
		slog.Int("deleted", report.Deleted),
	)

	return outputResult(writer, format, map[string]any{
		"examined": report.Examined,
		"deleted":  report.Deleted,
	}, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Audit Retention Cleanup\n")
		_, _ = fmt.Fprintf(w, "=======================\n\n")
		_, _ = fmt.Fprintf(w, "Expired records: %d\n", report.Examined)
		_, _ = fmt.Fprintf(w, "Deleted:         %d\n", report.Deleted)
	})
}
