// Package commands implements the CLI operations: key rotation, emergency
// access checks, audit maintenance, and status reporting.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
)

// RunRotateKeys starts or completes a master secret rotation for one key
// domain. Without --complete the previous keys stay available for decryption
// so existing envelopes can be re-encrypted first.
func RunRotateKeys(
	ctx context.Context,
	hierarchy cryptousecase.KeyHierarchy,
	logger *slog.Logger,
	writer io.Writer,
	domainName string,
	complete bool,
	format string,
) error {
	domain := cryptodomain.KeyDomain(domainName)
	if !domain.IsValid() {
		return fmt.Errorf("unknown key domain %q (expected %q or %q)",
			domainName, cryptodomain.DomainPrimary, cryptodomain.DomainPayment)
	}

	if complete {
		if err := hierarchy.CompleteRotation(domain); err != nil {
			return fmt.Errorf("failed to complete rotation: %w", err)
		}
		logger.Info("rotation completed", slog.String("domain", domainName))
		return outputResult(writer, format, map[string]any{
			"domain": domainName,
			"action": "complete",
		}, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "Rotation completed for domain %s; previous keys wiped.\n", domainName)
		})
	}

	if err := hierarchy.Rotate(ctx, domain); err != nil {
		return fmt.Errorf("failed to rotate keys: %w", err)
	}
	logger.Info("rotation started", slog.String("domain", domainName))
	return outputResult(writer, format, map[string]any{
		"domain": domainName,
		"action": "rotate",
	}, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Rotation started for domain %s.\n", domainName)
		_, _ = fmt.Fprintf(w, "Re-encrypt existing data, then run with --complete to wipe the previous keys.\n")
	})
}

// outputResult renders a command result as JSON or with the given text
// renderer.
func outputResult(writer io.Writer, format string, result map[string]any, text func(io.Writer)) error {
	if format == "json" {
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
		return nil
	}
	text(writer)
	return nil
}
