package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/metrics"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/user"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
	popTimeout     = 2 * time.Second
	pollBackoff    = time.Second
)

const (
	KindRefund     = "refund"
	KindAdjustment = "adjustment"
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Contacts resolves a user id to a deliverable address.
type Contacts interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

type SMTPConfig struct {
	From     string
	FromName string
	Host     string
	Port     string
	User     string
	Pass     string
}

type Service struct {
	redis       *redis.Client
	contacts    Contacts
	cfg         SMTPConfig
	breaker     *gobreaker.CircuitBreaker
	send        func(Job) error
	retryDelay  time.Duration
	pollBackoff time.Duration // pause after a failed BRPOP
}

func New(rdb *redis.Client, contacts Contacts, cfg SMTPConfig) *Service {
	s := &Service{
		redis:       rdb,
		contacts:    contacts,
		cfg:         cfg,
		retryDelay:  5 * time.Second,
		pollBackoff: pollBackoff,
	}
	s.send = s.sendSMTP
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// Send queues a message; delivery happens in Start.
func (s *Service) Send(ctx context.Context, kind, to, name, subject, body string) error {
	job := Job{
		To:      to,
		Name:    name,
		Kind:    kind,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Error("failed to queue email", "to", to, "kind", kind, "error", err)
		return err
	}

	logger.Debug("email queued", "to", to, "kind", kind)
	return nil
}

// NotifyRefund tells a rider their wallet was credited by a refund batch.
func (s *Service) NotifyRefund(ctx context.Context, userID int64, category ledger.Category, amount, balance money.Amount) error {
	u, err := s.contacts.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up refund recipient %d: %w", userID, err)
	}

	subject := "Refund credited to your OfficeXpress wallet"
	body := fmt.Sprintf(`Hi %s,

A refund of BDT %s has been credited to your wallet.

Reason: %s
New balance: BDT %s

You can use your wallet balance for future bookings.

- OfficeXpress`, u.Name, amount, describeCategory(category), balance)

	return s.Send(ctx, KindRefund, u.Email, u.Name, subject, body)
}

// NotifyAdjustment tells a rider an operator changed their balance.
// amount is signed.
func (s *Service) NotifyAdjustment(ctx context.Context, userID int64, amount, balance money.Amount, reason string) error {
	u, err := s.contacts.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up adjustment recipient %d: %w", userID, err)
	}

	verb := "credited to"
	magnitude := amount
	if amount.IsNegative() {
		verb = "debited from"
		magnitude = amount.Neg()
	}

	subject := "Your OfficeXpress wallet balance was updated"
	body := fmt.Sprintf(`Hi %s,

BDT %s was %s your wallet by our support team.

Reason: %s
New balance: BDT %s

- OfficeXpress`, u.Name, magnitude, verb, reason, balance)

	return s.Send(ctx, KindAdjustment, u.Email, u.Name, subject, body)
}

func describeCategory(c ledger.Category) string {
	switch c {
	case ledger.CategoryTripCancellation:
		return "trip cancellation"
	case ledger.CategoryMissedService:
		return "missed service"
	case ledger.CategorySubscriptionCancellation:
		return "subscription cancellation (unused days)"
	default:
		return string(c)
	}
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		metrics.RecordEmailQueueError()
		logger.Warn("email queue unreachable", "error", err, "retry_in", s.pollBackoff.String())
		s.sleep(ctx, s.pollBackoff)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("dropping malformed email job", "error", err)
		return
	}

	job.Tries++
	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.send(job)
	})
	if err == nil {
		metrics.RecordEmail(job.Kind, "sent")
		logger.Info("email sent", "to", job.To, "kind", job.Kind, "attempt", job.Tries)
		return
	}

	logger.Warn("email delivery failed", "to", job.To, "kind", job.Kind, "attempt", job.Tries, "error", err)
	if job.Tries < maxTries {
		metrics.RecordEmail(job.Kind, "retry")
		s.sleep(ctx, s.retryDelay)
		data, _ := json.Marshal(job)
		s.redis.LPush(context.Background(), queueKey, data)
		return
	}

	metrics.RecordEmail(job.Kind, "failed")
	s.saveFailed(job, err)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Service) sendSMTP(job Job) error {
	if job.To == "" {
		return errors.New("recipient address is empty")
	}

	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.cfg.User != "" && s.cfg.Pass != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	return smtp.SendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Error("email moved to failed queue", "to", job.To, "kind", job.Kind, "tries", job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) (int64, error) {
	length, err := s.redis.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("read email queue length: %w", err)
	}
	metrics.EmailQueueLength.Set(float64(length))
	return length, nil
}
