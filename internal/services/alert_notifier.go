package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"golang.org/x/time/rate"
)

const alertSendTimeout = 10 * time.Second

// AlertNotifier pushes alerts to operators. Notify must not block the
// caller on delivery.
type AlertNotifier interface {
	Notify(ctx context.Context, alert models.Alert)
}

// sesSender is the slice of the SES client the notifier uses.
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESAlertNotifierConfig configures e-mail delivery of alerts.
type SESAlertNotifierConfig struct {
	To          string
	From        string
	MinSeverity models.Severity
	PerMinute   int
}

// SESAlertNotifier e-mails alerts at or above a minimum severity through
// AWS SES. Sends are asynchronous and throttled; alerts over the budget are
// dropped with a log line since the audit trail already holds them.
type SESAlertNotifier struct {
	client  sesSender
	cfg     SESAlertNotifierConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewSESAlertNotifier loads the default AWS credential chain for region.
func NewSESAlertNotifier(ctx context.Context, region string, cfg SESAlertNotifierConfig, logger *slog.Logger) (*SESAlertNotifier, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESAlertNotifier(ses.NewFromConfig(awsCfg), cfg, logger), nil
}

func newSESAlertNotifier(client sesSender, cfg SESAlertNotifierConfig, logger *slog.Logger) *SESAlertNotifier {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 6
	}
	if cfg.MinSeverity.Rank() == 0 {
		cfg.MinSeverity = models.SeverityHigh
	}
	return &SESAlertNotifier{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute),
		logger:  logger,
	}
}

func (n *SESAlertNotifier) Notify(ctx context.Context, alert models.Alert) {
	if alert.Severity.Rank() < n.cfg.MinSeverity.Rank() {
		return
	}
	if !n.limiter.Allow() {
		n.logger.WarnContext(ctx, "alert e-mail throttled",
			slog.String("type", string(alert.Type)),
			slog.String("source", alert.Source),
		)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertSendTimeout)
		defer cancel()
		if err := n.send(sendCtx, alert); err != nil {
			n.logger.Error("failed to send alert e-mail",
				slog.String("type", string(alert.Type)),
				slog.Any("error", err),
			)
		}
	}()
}

func (n *SESAlertNotifier) send(ctx context.Context, alert models.Alert) error {
	subject := fmt.Sprintf("[fintrack] %s security alert: %s", alert.Severity, alert.Type)
	body := fmt.Sprintf("Time: %s\nType: %s\nSeverity: %s\nSource: %s\n\n%s\n",
		alert.Timestamp.UTC().Format(time.RFC3339), alert.Type, alert.Severity, alert.Source, alert.Description)

	out, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.From),
		Destination: &types.Destination{
			ToAddresses: []string{n.cfg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	n.logger.Info("alert e-mail sent",
		slog.String("type", string(alert.Type)),
		slog.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}

// Wait blocks until in-flight sends finish or ctx ends.
func (n *SESAlertNotifier) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
