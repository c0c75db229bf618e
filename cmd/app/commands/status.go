package commands

import (
	"context"
	"fmt"
	"io"

	coordusecase "github.com/havenhealth/securecore/internal/coordinator/usecase"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
)

type rotationStatus struct {
	Domain    string `json:"domain"`
	Tier      string `json:"tier"`
	DaysUntil int    `json:"days_until_rotation"`
}

// RunStatus reports coordinator state and the rotation schedule for every
// encrypted tier in each key domain.
func RunStatus(
	ctx context.Context,
	coordinator coordusecase.Coordinator,
	hierarchy cryptousecase.KeyHierarchy,
	writer io.Writer,
	format string,
) error {
	status, err := coordinator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get coordinator status: %w", err)
	}

	rotations := make([]rotationStatus, 0, len(cryptodomain.KeyDomains)*len(cryptodomain.Tiers))
	for _, domain := range cryptodomain.KeyDomains {
		for _, tier := range cryptodomain.Tiers {
			if !tier.RequiresEncryption() {
				continue
			}
			days, err := hierarchy.DaysUntilRotation(ctx, domain, tier)
			if err != nil {
				return fmt.Errorf("failed to get rotation schedule for %s/%s: %w", domain, tier, err)
			}
			rotations = append(rotations, rotationStatus{
				Domain:    string(domain),
				Tier:      string(tier),
				DaysUntil: days,
			})
		}
	}

	return outputResult(writer, format, map[string]any{
		"active_locks":            status.ActiveLocks,
		"queued_operations":       status.QueuedOperations,
		"emergency_access_health": status.EmergencyAccessHealth,
		"degraded_credentials":    hierarchy.Degraded(),
		"rotations":               rotations,
	}, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Coordinator Status\n")
		_, _ = fmt.Fprintf(w, "==================\n\n")
		_, _ = fmt.Fprintf(w, "Active Locks:     %d\n", len(status.ActiveLocks))
		for _, lock := range status.ActiveLocks {
			_, _ = fmt.Fprintf(w, "  - %s (holder %s, since %s)\n",
				lock.Class, lock.HolderID, lock.AcquiredAt.Format("2006-01-02 15:04:05"))
		}
		_, _ = fmt.Fprintf(w, "Queued:           %d\n", status.QueuedOperations)
		_, _ = fmt.Fprintf(w, "Emergency Access: %v\n", status.EmergencyAccessHealth)
		_, _ = fmt.Fprintf(w, "Degraded Store:   %v\n\n", hierarchy.Degraded())
		_, _ = fmt.Fprintf(w, "Rotation Schedule\n")
		_, _ = fmt.Fprintf(w, "-----------------\n")
		for _, r := range rotations {
			_, _ = fmt.Fprintf(w, "  %-8s %-12s due in %d day(s)\n", r.Domain, r.Tier, r.DaysUntil)
		}
	})
}
