// Package admin serves the JWT-protected admin API.
package admin

import (
	stderrors "errors"

	"github.com/orris-inc/gatekeeper/internal/application/roster"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/shared/errors"
)

// toAppError maps domain failures onto HTTP-aware errors. Anything
// unrecognised is returned as-is and rendered as a 500.
func toAppError(err error) error {
	switch {
	case stderrors.Is(err, roster.ErrNotAuthorized):
		return errors.NewForbiddenError("insufficient permissions").WithCause(err)
	case stderrors.Is(err, member.ErrMemberNotFound):
		return errors.NewNotFoundError("member not found").WithCause(err)
	case stderrors.Is(err, member.ErrInvalidTransition):
		return errors.NewConflictError("transition not allowed", err.Error()).WithCause(err)
	case stderrors.Is(err, ticket.ErrTicketNotFound):
		return errors.NewNotFoundError("ticket not found").WithCause(err)
	case stderrors.Is(err, ticket.ErrAlreadyClosed):
		return errors.NewConflictError("ticket already closed").WithCause(err)
	}
	return err
}
