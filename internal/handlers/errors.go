package handlers

import (
	"errors"

	"github.com/dimitrije/family-core/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog/log"
)

var badRequestErrors = []error{
	services.ErrFamilyExists,
	services.ErrCapacityExceeded,
	services.ErrAlreadyMember,
	services.ErrInvalidToken,
	services.ErrAlreadyConsumed,
	services.ErrInvitationExpired,
	services.ErrLockedOutAfterMaxAttempts,
	services.ErrLockedOut,
	services.ErrEmailMismatch,
	services.ErrWrongPIN,
}

// respondError maps domain failures to their status codes. Anything else is
// logged and answered with a generic 500 so store errors never reach clients.
func respondError(c *drift.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrFamilyNotFound):
		c.NotFound("family not found")
		return
	case errors.Is(err, services.ErrInvitationNotFound):
		c.NotFound("invitation not found")
		return
	case errors.Is(err, services.ErrNotFamilyOwner):
		c.Forbidden(err.Error())
		return
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			c.BadRequest(target.Error())
			return
		}
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(fallback)
	c.InternalServerError(fallback)
}
