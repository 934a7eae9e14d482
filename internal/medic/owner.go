package medic

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
)

const ownerRole = "global:owner"

// OwnerEmail returns the instance owner's current email address.
func (m *Medic) OwnerEmail(ctx context.Context, target models.Target) (string, error) {
	rows, err := m.gw.Query(ctx, target, fmt.Sprintf(
		"SELECT COALESCE(email, '') FROM user WHERE roleSlug = %s;", gateway.QuoteLiteral(ownerRole)), 1)
	if err != nil {
		return "", err
	}
	if len(rows) != 1 {
		return "", fmt.Errorf("expected exactly one owner account, found %d", len(rows))
	}
	return rows[0][0], nil
}

// ChangeOwnerEmail rewrites the owner account's email. It backs up first,
// refuses when the new address is already taken, and verifies the write.
func (m *Medic) ChangeOwnerEmail(ctx context.Context, inst Instance, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return fmt.Errorf("invalid email address %q", newEmail)
	}

	current, err := m.OwnerEmail(ctx, inst.DB)
	if err != nil {
		return err
	}
	if strings.EqualFold(current, newEmail) {
		return fmt.Errorf("owner email is already %s", newEmail)
	}

	taken, err := m.gw.QueryScalar(ctx, inst.DB, fmt.Sprintf(
		"SELECT COUNT(*) FROM user WHERE LOWER(email) = %s;", gateway.QuoteLiteral(newEmail)))
	if err != nil {
		return err
	}
	if taken > 0 {
		return fmt.Errorf("email %s already belongs to another account", newEmail)
	}

	if err := m.TakeBackup(ctx, inst.DB); err != nil {
		return err
	}

	if err := m.gw.Exec(ctx, inst.DB, fmt.Sprintf(
		"UPDATE user SET email = %s WHERE roleSlug = %s;",
		gateway.QuoteLiteral(newEmail), gateway.QuoteLiteral(ownerRole))); err != nil {
		return err
	}

	updated, err := m.OwnerEmail(ctx, inst.DB)
	if err != nil {
		return err
	}
	if !strings.EqualFold(updated, newEmail) {
		return fmt.Errorf("owner email verification failed: database reports %q", updated)
	}
	return nil
}

// DisableMFA turns off multi-factor auth for one account through the
// instance CLI.
func (m *Medic) DisableMFA(ctx context.Context, inst Instance, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	stdout, stderr, exitCode, err := m.runner.ExecInPod(ctx, inst.App,
		[]string{"n8n", "mfa:disable", "--email", email})
	if err != nil {
		return fmt.Errorf("mfa disable failed: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("mfa disable exited %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	if !strings.Contains(stdout, "Successfully disabled") {
		return fmt.Errorf("mfa disable did not confirm: %s", strings.TrimSpace(stdout))
	}
	return nil
}
