package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid purchase order input")
	// ErrConflict signals the order is not in a state that accepts the request.
	ErrConflict = errors.New("purchase order state conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidUnitPrice) ||
		errors.Is(err, domain.ErrInvalidClassification) ||
		errors.Is(err, domain.ErrMissingSellerAccount) ||
		errors.Is(err, domain.ErrMissingReference) ||
		errors.Is(err, domain.ErrMissingOrigin) ||
		errors.Is(err, domain.ErrInvalidStatus) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
