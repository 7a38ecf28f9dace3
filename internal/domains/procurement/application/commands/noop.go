package commands

import (
	"context"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
)

const NoOpName = "NoOp"

// NoOp stands in for statuses that need no workflow action.
type NoOp struct {
	status domain.Status
}

func NewNoOp(status domain.Status) *NoOp { return &NoOp{status: status} }

func (c *NoOp) Name() string { return NoOpName }

func (c *NoOp) Execute(context.Context) Result {
	return Result{Success: true, NextStatus: c.status}
}
