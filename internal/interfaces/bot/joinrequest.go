package bot

import (
	"context"
	"fmt"

	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
)

// handleJoinRequest applies the gate to a request for a protected chat. When
// the stage cannot be read the request is left pending so an admin or a
// retry can settle it.
func (r *Router) handleJoinRequest(ctx context.Context, req *telegram.ChatJoinRequest) error {
	if req.From == nil || req.Chat == nil {
		return nil
	}
	chatID, userID := req.Chat.ID, req.From.ID
	if !r.opts.IsProtected(chatID) {
		r.logger.Debugw("join request for unprotected chat ignored", "chat_id", chatID, "user_id", userID)
		return nil
	}

	if _, err := r.svc.Admission.EnsureMember(ctx, profileOf(req.From)); err != nil {
		r.logger.Warnw("failed to register member from join request", "user_id", userID, "error", err)
	}

	d, err := r.svc.Gate.Decide(ctx, userID)
	if err != nil {
		return err
	}

	if d.Approve {
		if err := r.api.ApproveChatJoinRequest(ctx, chatID, userID); err != nil {
			return fmt.Errorf("failed to approve join request: %w", err)
		}
		return nil
	}

	if err := r.api.DeclineChatJoinRequest(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to decline join request: %w", err)
	}
	cmd := notification.JoinDeclinedCommand{UserID: userID, ChatID: chatID, Reason: d.Reason}
	r.svc.Notify.Dispatch("join_declined", func(ctx context.Context, n notification.Notifier) error {
		return n.NotifyJoinDeclined(ctx, cmd)
	})
	return nil
}
