package partners

import (
	"errors"
	"fmt"

	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// classify marks rejections that repeating the call cannot fix as ports.ErrPermanent.
func classify(err error) error {
	var statusErr *jsonapi.StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return fmt.Errorf("%w: %w", ports.ErrPermanent, err)
	}
	return err
}
