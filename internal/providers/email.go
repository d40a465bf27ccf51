package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"alerts-service/internal/config"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/utils"
	"alerts-service/pkg/email"
)

// EmailNotifier delivers owner summaries over SMTP.
type EmailNotifier struct {
	cfg     config.Config
	logger  *logging.Logger
	limiter *rate.Limiter
}

func NewEmailNotifier(cfg config.Config, logger *logging.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// NotifyOwner sends the summary to the owner's registered address.
func (n *EmailNotifier) NotifyOwner(ctx context.Context, owner *models.User, title, content string) error {
	if owner.Email == "" {
		return fmt.Errorf("owner %d has no email address", owner.ID)
	}
	if n.cfg.Email.SMTPServer == "" || n.cfg.Email.SMTPPort == 0 {
		return fmt.Errorf("missing email configuration: SMTPServer or SMTPPort is empty")
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit exceeded: %w", err)
	}

	return utils.Retry(n.logger, 3, time.Second, func() error {
		return email.Send(
			n.cfg.Email.SMTPServer,
			n.cfg.Email.SMTPPort,
			n.cfg.Email.Username,
			n.cfg.Email.Password,
			owner.Email,
			title,
			content,
		)
	})
}
