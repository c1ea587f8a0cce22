package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/orris-inc/gatekeeper/internal/application/roster"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
)

type adminHandler func(ctx context.Context, chatID, actorID int64, cmd, args string) error

func (r *Router) adminCommands() map[string]adminHandler {
	return map[string]adminHandler{
		"pending":     r.listPending,
		"approve":     r.decide,
		"reject":      r.decide,
		"reconsider":  r.decide,
		"admins":      r.listAdmins,
		"addadmin":    r.changeRoster,
		"removeadmin": r.changeRoster,
		"tickets":     r.listTickets,
		"close":       r.closeTicket,
		"stats":       r.stats,
	}
}

// resolveTarget accepts "@username", "username" or a numeric id.
func (r *Router) resolveTarget(ctx context.Context, arg string) (*member.Member, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return r.svc.Admission.Member(ctx, id)
	}
	return r.svc.Admission.ResolveUsername(ctx, strings.TrimPrefix(arg, "@"))
}

func (r *Router) listPending(ctx context.Context, chatID, _ int64, _, _ string) error {
	list, err := r.svc.Admission.ListPending(ctx)
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	if len(list) == 0 {
		return r.reply(ctx, chatID, telegram.MsgAdminNoPending)
	}
	for _, m := range list {
		text := telegram.AccessRequestedMessage(m.DisplayName(), m.Username(), m.UserID())
		if err := r.send(ctx, chatID, text, telegram.DecisionKeyboard(m.UserID())); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) decide(ctx context.Context, chatID, actorID int64, cmd, args string) error {
	if args == "" {
		return r.reply(ctx, chatID, fmt.Sprintf(telegram.MsgAdminUsage, cmd, cmd))
	}
	target, err := r.resolveTarget(ctx, args)
	if errors.Is(err, member.ErrMemberNotFound) {
		return r.reply(ctx, chatID, telegram.MsgAdminUserNotFound)
	}
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	return r.reply(ctx, chatID, r.applyDecision(ctx, cmd, target.UserID(), actorID))
}

// applyDecision runs approve, reject or reconsider and returns the text for
// the admin.
func (r *Router) applyDecision(ctx context.Context, decision string, userID, actorID int64) string {
	var err error
	switch decision {
	case "approve":
		_, err = r.svc.Admission.Approve(ctx, userID, actorID)
	case "reject":
		_, err = r.svc.Admission.Reject(ctx, userID, actorID)
	case "reconsider":
		_, err = r.svc.Admission.Reconsider(ctx, userID, actorID)
	default:
		return telegram.MsgUnknownInput
	}

	switch {
	case err == nil:
		return telegram.MsgAdminRosterChanged
	case errors.Is(err, roster.ErrNotAuthorized):
		return telegram.MsgNotAllowed
	case errors.Is(err, member.ErrInvalidTransition):
		return telegram.MsgAdminWrongStage
	case errors.Is(err, member.ErrMemberNotFound):
		return telegram.MsgAdminUserNotFound
	default:
		r.logger.Errorw("admin decision failed", "decision", decision, "user_id", userID, "actor_id", actorID, "error", err)
		return telegram.MsgGenericError
	}
}

func (r *Router) listAdmins(ctx context.Context, chatID, _ int64, _, _ string) error {
	list, err := r.svc.Roster.ListAdmins(ctx)
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	entries := make([][2]string, 0, len(list))
	for _, a := range list {
		entries = append(entries, [2]string{strconv.FormatInt(a.UserID(), 10), a.Role().String()})
	}
	return r.reply(ctx, chatID, telegram.AdminListMessage(entries))
}

func (r *Router) changeRoster(ctx context.Context, chatID, actorID int64, cmd, args string) error {
	if !r.svc.Roster.IsSuperAdmin(actorID) {
		return r.reply(ctx, chatID, telegram.MsgAdminSuperOnly)
	}
	targetID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || targetID <= 0 {
		return r.reply(ctx, chatID, fmt.Sprintf(telegram.MsgAdminIDUsage, cmd))
	}

	var changed bool
	if cmd == "addadmin" {
		changed, err = r.svc.Roster.AddAdmin(ctx, targetID, actorID)
	} else {
		changed, err = r.svc.Roster.RemoveAdmin(ctx, targetID, actorID)
	}
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	if !changed {
		return r.reply(ctx, chatID, telegram.MsgAdminNoChange)
	}
	return r.reply(ctx, chatID, telegram.MsgAdminRosterChanged)
}

func (r *Router) listTickets(ctx context.Context, chatID, actorID int64, _, _ string) error {
	list, err := r.svc.Support.ListOpen(ctx, actorID)
	if errors.Is(err, roster.ErrNotAuthorized) {
		return r.reply(ctx, chatID, telegram.MsgNotAllowed)
	}
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	if len(list) == 0 {
		return r.reply(ctx, chatID, telegram.MsgAdminNoTickets)
	}
	for _, t := range list {
		name := strconv.FormatInt(t.UserID(), 10)
		if m, err := r.svc.Admission.Member(ctx, t.UserID()); err == nil {
			name = m.DisplayName()
		}
		text := telegram.TicketOpenedMessage(t.ID(), name, t.UserID(), t.Category().String(), t.Priority().String(), t.Description())
		if err := r.send(ctx, chatID, text, telegram.TicketCloseKeyboard(t.ID())); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) closeTicket(ctx context.Context, chatID, actorID int64, cmd, args string) error {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	if err != nil || id == 0 {
		return r.reply(ctx, chatID, fmt.Sprintf(telegram.MsgAdminIDUsage, cmd))
	}
	return r.reply(ctx, chatID, r.applyClose(ctx, uint(id), actorID))
}

func (r *Router) applyClose(ctx context.Context, id uint, actorID int64) string {
	_, err := r.svc.Support.Close(ctx, id, actorID)
	switch {
	case err == nil:
		return telegram.MsgAdminRosterChanged
	case errors.Is(err, roster.ErrNotAuthorized):
		return telegram.MsgNotAllowed
	case errors.Is(err, ticket.ErrTicketNotFound):
		return telegram.MsgTicketNotFound
	case errors.Is(err, ticket.ErrAlreadyClosed):
		return telegram.MsgAdminNoChange
	default:
		r.logger.Errorw("failed to close ticket", "ticket_id", id, "actor_id", actorID, "error", err)
		return telegram.MsgGenericError
	}
}

func (r *Router) stats(ctx context.Context, chatID, actorID int64, _, _ string) error {
	s, err := r.svc.Stats.Stats(ctx, actorID)
	if errors.Is(err, roster.ErrNotAuthorized) {
		return r.reply(ctx, chatID, telegram.MsgNotAllowed)
	}
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	return r.reply(ctx, chatID, telegram.StatsMessage(telegram.StatsView{
		Total:       s.TotalMembers,
		Pending:     s.PendingRequests,
		Approved:    s.Approved,
		Consented:   s.Consented,
		Active:      s.ActiveSubscriptions,
		OpenTickets: s.OpenTickets,
		NewThisWeek: s.NewMembersWeek,
		PaidCents:   s.TotalPaymentCents,
		MonthCents:  s.MonthRevenueCents,
		Currency:    r.opts.Currency,
	}))
}
