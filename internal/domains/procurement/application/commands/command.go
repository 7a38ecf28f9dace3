// Package commands holds the workflow steps that advance a purchase order by one status.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Command performs one external side effect for one order and reports the outcome.
// Commands never touch queue state.
type Command interface {
	Name() string
	Execute(ctx context.Context) Result
}

// Result is the outcome of a single command execution.
type Result struct {
	Success      bool
	ShouldRetry  bool
	ErrorMessage string
	// NextStatus is the persisted status after a successful execution.
	NextStatus domain.Status
	// Requeue asks the queue to schedule the order again for its next step.
	Requeue bool
}

// Succeeded reports a step that moved the order to next.
func Succeeded(next domain.Status) Result {
	return Result{Success: true, NextStatus: next, Requeue: next.RequiresAction()}
}

// Failed reports a step that did not complete.
func Failed(retry bool, message string) Result {
	return Result{ShouldRetry: retry, ErrorMessage: message}
}

// FailedWith classifies err: data defects and permanent gateway failures are not retryable.
func FailedWith(step string, err error) Result {
	return Failed(Retryable(err), fmt.Sprintf("%s: %v", step, err))
}

// Retryable reports whether err describes a transient condition.
func Retryable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ports.ErrPermanent),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidClassification),
		errors.Is(err, domain.ErrMissingSellerAccount),
		errors.Is(err, ports.ErrNotFound):
		return false
	default:
		return true
	}
}

// advance persists the status change that concludes a successful step.
func advance(ctx context.Context, repo ports.Repository, orderID int64, step string, next domain.Status) Result {
	updated, err := repo.UpdateStatus(ctx, orderID, next)
	if err != nil {
		return FailedWith(step, fmt.Errorf("update status to %s: %w", next, err))
	}
	if !updated {
		return FailedWith(step, fmt.Errorf("update status to %s: %w", next, ports.ErrNotFound))
	}
	return Succeeded(next)
}
