package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/pkg/export"
	"github.com/noah-isme/husma-donation-api/pkg/jobs"
)

const notificationJobType = "notification"

// Sender delivers a rendered notification over one channel.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// LogSender writes notifications to the log instead of a gateway.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("notification delivered",
		zap.String("channel", string(n.Channel)),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body),
	)
	return nil
}

// NotificationConfig sizes the dispatcher.
type NotificationConfig struct {
	Enabled      bool
	Workers      int
	MaxRetries   int
	RetryDelay   time.Duration
	SupportPhone string
}

// DonationNotice carries what the donor is told after checkout.
type DonationNotice struct {
	DonorName     string
	Email         string
	Phone         string
	Amount        decimal.Decimal
	Date          time.Time
	ReceiptNumber string
}

// NotificationService renders donor messages and hands them to a background queue.
// Delivery failures are logged and counted; they never reach the caller.
type NotificationService struct {
	queue        *jobs.Queue
	senders      map[models.NotificationChannel]Sender
	metrics      *MetricsService
	logger       *zap.Logger
	enabled      bool
	supportPhone string
}

// NewNotificationService constructs the dispatcher. Channels without a sender are dropped.
func NewNotificationService(cfg NotificationConfig, senders map[models.NotificationChannel]Sender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SupportPhone == "" {
		cfg.SupportPhone = "0777348822"
	}
	s := &NotificationService{
		senders:      senders,
		metrics:      metrics,
		logger:       logger,
		enabled:      cfg.Enabled,
		supportPhone: cfg.SupportPhone,
	}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnGiveUp: func(job jobs.Job, _ error) {
			if n, ok := job.Payload.(models.Notification); ok {
				s.metrics.RecordNotification(n.Channel, false)
			}
		},
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop halts the delivery workers.
func (s *NotificationService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Dispatch queues n for delivery without waiting.
func (s *NotificationService) Dispatch(n models.Notification) {
	if s == nil || !s.enabled {
		return
	}
	if strings.TrimSpace(n.Recipient) == "" {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: n}); err != nil {
		s.logger.Warn("notification not queued",
			zap.String("channel", string(n.Channel)), zap.String("recipient", n.Recipient), zap.Error(err))
		s.metrics.RecordNotification(n.Channel, false)
	}
}

// Welcome greets a newly registered donor by email.
func (s *NotificationService) Welcome(donor *models.Donor) {
	if donor == nil {
		return
	}
	s.Dispatch(WelcomeEmail(donor.EmailAddress(), donor.Name))
}

// PasswordReset points the donor at support through every contact they registered.
func (s *NotificationService) PasswordReset(donor *models.Donor) {
	if donor == nil || s == nil {
		return
	}
	if email := donor.EmailAddress(); email != "" {
		s.Dispatch(PasswordResetEmail(email, donor.Name, s.supportPhone))
	}
	s.Dispatch(PasswordResetSMS(donor.Phone, donor.Name, s.supportPhone))
}

// DonationReceived sends the receipt email and confirmation SMS.
func (s *NotificationService) DonationReceived(notice DonationNotice) {
	if notice.Email != "" {
		s.Dispatch(DonationReceiptEmail(notice))
	}
	if notice.Phone != "" {
		s.Dispatch(DonationConfirmationSMS(notice.Phone, notice.DonorName, notice.Amount))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	sender, ok := s.senders[n.Channel]
	if !ok || sender == nil {
		s.logger.Debug("no sender for channel", zap.String("channel", string(n.Channel)))
		return nil
	}
	if err := sender.Send(ctx, n); err != nil {
		return err
	}
	s.metrics.RecordNotification(n.Channel, true)
	return nil
}

// WelcomeEmail renders the registration greeting.
func WelcomeEmail(email, name string) models.Notification {
	return models.Notification{
		Channel:   models.ChannelEmail,
		Recipient: email,
		Subject:   "Welcome to Husma Foundation - Verify Your Email",
		Body: fmt.Sprintf(`Dear %s,

Thank you for registering with Husma Foundation!

Your account has been successfully created and verified.

You can now login and start making donations to support children fighting cancer.

Best regards,
Husma Foundation Team`, name),
	}
}

// PasswordResetEmail renders the reset instructions email.
func PasswordResetEmail(email, name, supportPhone string) models.Notification {
	return models.Notification{
		Channel:   models.ChannelEmail,
		Recipient: email,
		Subject:   "Password Reset Instructions - Husma Foundation",
		Body: fmt.Sprintf(`Dear %s,

We received a request to reset your password.

Please contact our support team at %s for assistance with password reset.

Best regards,
Husma Foundation Team`, name, supportPhone),
	}
}

// PasswordResetSMS renders the reset instructions text message.
func PasswordResetSMS(phone, name, supportPhone string) models.Notification {
	return models.Notification{
		Channel:   models.ChannelSMS,
		Recipient: phone,
		Body:      fmt.Sprintf("Hi %s, for password reset assistance, please contact Husma Foundation at %s.", name, supportPhone),
	}
}

// DonationReceiptEmail renders the receipt email.
func DonationReceiptEmail(notice DonationNotice) models.Notification {
	amount := export.FormatAmount(notice.Amount)
	return models.Notification{
		Channel:   models.ChannelEmail,
		Recipient: notice.Email,
		Subject:   "Donation Receipt - Husma Foundation",
		Body: fmt.Sprintf(`Dear %s,

Thank you for your generous donation of LKR %s!

Donation Details:
- Amount: LKR %s
- Date: %s
- Receipt Number: %s

Your support helps provide nutritional supplements to children fighting cancer at Apeksha Hospital.

Bank Details for Future Donations:
Account: %s
Number: %s
Bank: %s

Best regards,
Husma Foundation Team`,
			notice.DonorName, amount, amount, notice.Date.Format("2006-01-02"), notice.ReceiptNumber,
			export.OrganisationName, export.BankAccountNumber, export.BankName),
	}
}

// DonationConfirmationSMS renders the short thank-you text.
func DonationConfirmationSMS(phone, name string, amount decimal.Decimal) models.Notification {
	return models.Notification{
		Channel:   models.ChannelSMS,
		Recipient: phone,
		Body: fmt.Sprintf("Thank you %s! Your donation of LKR %s to Husma Foundation has been received. Your support helps children fighting cancer.",
			name, export.FormatAmount(amount)),
	}
}
