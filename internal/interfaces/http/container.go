package http

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/gatekeeper/internal/application/accessgate"
	"github.com/orris-inc/gatekeeper/internal/application/admission"
	"github.com/orris-inc/gatekeeper/internal/application/billing"
	"github.com/orris-inc/gatekeeper/internal/application/consentform"
	"github.com/orris-inc/gatekeeper/internal/application/ledger"
	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/application/otp"
	"github.com/orris-inc/gatekeeper/internal/application/roster"
	"github.com/orris-inc/gatekeeper/internal/application/stats"
	"github.com/orris-inc/gatekeeper/internal/application/support"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/auth"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/cache"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/config"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/document"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/email"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/payment"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/permission"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/ratelimit"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/repository"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
	"github.com/orris-inc/gatekeeper/internal/interfaces/bot"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// Container holds every wired service of the process. The HTTP server, the
// bot and the CLI commands all draw from it.
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Logger logger.Interface

	Bot       *telegram.Client
	Notify    *notification.Dispatcher
	Roster    *roster.Service
	Admission *admission.Service
	Ledger    *ledger.Ledger
	Billing   *billing.Service
	Support   *support.Service
	Stats     *stats.Service
	Gate      *accessgate.Gate
	JWT       *auth.JWTService
	Limiter   *ratelimit.RedisRateLimiter
	Document  *document.Document
	BotRouter *bot.Router
}

type ContainerOptions struct {
	// InlineNotify delivers notifications on the caller's goroutine. One-shot
	// CLI commands set it so nothing is lost when the process exits.
	InlineNotify bool
}

func NewContainer(cfg *config.Config, gdb *gorm.DB, rdb *redis.Client, log logger.Interface, opts ContainerOptions) (*Container, error) {
	c := &Container{Config: cfg, DB: gdb, Redis: rdb, Logger: log}

	doc, err := document.NewRenderer().Load(cfg.Consent.DocumentPath, cfg.Consent.DocumentVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent document: %w", err)
	}
	c.Document = doc

	tm := db.NewTransactionManager(gdb)
	members := repository.NewMemberRepository(gdb, log)
	consents := repository.NewConsentRepository(gdb, log)
	auditRepo := repository.NewAuditRepository(gdb)
	tickets := repository.NewTicketRepository(gdb, log)
	payments := repository.NewPaymentRepository(gdb, log)

	enforcer, err := permission.NewEnforcer(logger.WithComponent("permission"))
	if err != nil {
		return nil, err
	}
	c.Roster = roster.NewService(repository.NewAdminRepository(gdb, log), cfg.Admins.SuperAdminIDs,
		enforcer, auditRepo, nil, logger.WithComponent("roster"))

	c.Bot = telegram.NewClient(cfg.Telegram, logger.WithComponent("telegram"))
	notifier := telegram.NewBotNotifier(c.Bot, c.Roster, cfg.Telegram.StaffChatID,
		inviteLinks(cfg), logger.WithComponent("notifier"))
	if mailer := email.NewSMTPStaffMailer(cfg.Email, logger.WithComponent("email")); mailer != nil {
		notifier.WithMailer(mailer)
	}
	if opts.InlineNotify {
		c.Notify = notification.NewInlineDispatcher(notifier, logger.WithComponent("notification"))
	} else {
		c.Notify = notification.NewDispatcher(notifier, logger.WithComponent("notification"))
	}

	engine := otp.NewEngine(tm, consents, auditRepo, otp.Config{
		Policy:          consent.Policy{TTL: cfg.OTP.TTL, MaxAttempts: cfg.OTP.MaxAttempts},
		DocumentVersion: doc.Version,
	}, logger.WithComponent("otp"))

	c.Admission = admission.NewService(tm, members, consents, auditRepo, c.Roster, engine, c.Notify,
		logger.WithComponent("admission")).
		WithCooldown(cache.NewCooldownStore(rdb, "newcode"), cfg.OTP.RegenerateCooldown)

	c.Ledger = ledger.NewLedger(tm, members, payments, repository.NewPaymentEventLog(gdb), auditRepo, c.Notify,
		cfg.Billing.PeriodDays, cfg.Billing.Currency, logger.WithComponent("ledger"))

	var gateway billing.Gateway
	if g := payment.NewStripeGateway(cfg.Billing, logger.WithComponent("stripe")); g != nil {
		gateway = g
	}
	c.Billing = billing.NewService(gateway, c.Admission, c.Ledger, logger.WithComponent("billing"))

	c.Support = support.NewService(tickets, members, c.Roster, c.Notify, logger.WithComponent("support"))
	c.Stats = stats.NewService(members, consents, tickets, payments, c.Roster, logger.WithComponent("stats"))
	c.Gate = accessgate.NewGate(c.Admission, logger.WithComponent("gate"))
	c.JWT = auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	c.Limiter = ratelimit.NewRedisRateLimiter(rdb, "gatekeeper:ratelimit:http")

	c.BotRouter = bot.NewRouter(c.Bot, bot.Services{
		Admission:     c.Admission,
		Form:          consentform.NewForm(cache.NewConsentDraftStore(rdb), cfg.Consent.DraftTTL, nil, logger.WithComponent("consentform")),
		Gate:          c.Gate,
		Billing:       c.Billing,
		Support:       c.Support,
		Roster:        c.Roster,
		Stats:         c.Stats,
		SupportDrafts: cache.NewSupportDraftStore(rdb),
		Notify:        c.Notify,
	}, bot.Options{
		DocumentHTML:    doc.TelegramHTML,
		Currency:        cfg.Billing.Currency,
		IsProtected:     cfg.Telegram.IsProtected,
		SupportDraftTTL: cfg.Consent.DraftTTL,
	}, logger.WithComponent("bot"))

	return c, nil
}

func inviteLinks(cfg *config.Config) []string {
	var links []string
	for _, l := range []string{cfg.Links.Channel, cfg.Links.Group, cfg.Links.Community} {
		if l = strings.TrimSpace(l); l != "" {
			links = append(links, l)
		}
	}
	return links
}
