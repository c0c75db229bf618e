package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	coordusecase "github.com/havenhealth/securecore/internal/coordinator/usecase"
)

// RunEmergencyCheck probes the crisis decryption path and reports the result.
// Exits non-zero when emergency access is unavailable and no fallback exists.
func RunEmergencyCheck(
	ctx context.Context,
	coordinator coordusecase.Coordinator,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	report, err := coordinator.ValidateEmergencyAccess(ctx)
	if err != nil {
		return fmt.Errorf("failed to run emergency access check: %w", err)
	}

	logger.Info("emergency access check",
		slog.Bool("accessible", report.Accessible),
		slog.Bool("fallback_active", report.FallbackMechanismActive),
		slog.Duration("latency", report.Latency),
	)

	if err := outputResult(writer, format, map[string]any{
		"accessible":      report.Accessible,
		"fallback_active": report.FallbackMechanismActive,
		"latency_ms":      report.Latency.Milliseconds(),
		"probe_failure":   report.ProbeFailure,
	}, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Emergency Access Check\n")
		_, _ = fmt.Fprintf(w, "======================\n\n")
		_, _ = fmt.Fprintf(w, "Accessible:      %v\n", report.Accessible)
		_, _ = fmt.Fprintf(w, "Fallback Active: %v\n", report.FallbackMechanismActive)
		_, _ = fmt.Fprintf(w, "Latency:         %s\n", report.Latency)
		if report.ProbeFailure != "" {
			_, _ = fmt.Fprintf(w, "Probe Failure:   %s\n", report.ProbeFailure)
		}
	}); err != nil {
		return err
	}

	if !report.Accessible && !report.FallbackMechanismActive {
		return fmt.Errorf("emergency access unavailable and no fallback is active")
	}
	return nil
}
