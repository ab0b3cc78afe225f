package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rokatacaem/SistemaBillar/internal/config"
	"github.com/Rokatacaem/SistemaBillar/internal/logger"
	"github.com/Rokatacaem/SistemaBillar/internal/metrics"
)

const (
	queueKey  = "reports"
	failedKey = "reports:failed"

	maxTries = 3
)

// ReportJob is one queued administration email. Jobs survive process
// restarts because the queue lives in redis, not memory.
type ReportJob struct {
	Kind    string    `json:"kind"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Notifier is what the shift service depends on. Delivery failures are the
// notifier's problem; shift closing never blocks on email.
type Notifier interface {
	ReportShiftOpened(ctx context.Context, r ShiftOpenReport) error
	ReportShiftClosed(ctx context.Context, r ShiftCloseReport) error
}

type ShiftOpenReport struct {
	ShiftID     int
	StaffName   string
	InitialCash int64
	OpenedAt    time.Time
}

type DebtorLine struct {
	UserName string
	Total    int64
}

type MembershipLine struct {
	UserName string
	Months   int
	Amount   int64
}

type ShiftCloseReport struct {
	ShiftID       int
	StaffName     string
	OpenedAt      time.Time
	ClosedAt      time.Time
	InitialCash   int64
	SalesCash     int64
	SalesDebit    int64
	SalesTransfer int64
	Expenses      int64
	SystemCash    int64
	DeclaredCash  int64
	Difference    int64
	Debtors       []DebtorLine
	Memberships   []MembershipLine
	NewMembers    []string
}

type Service struct {
	redis    *redis.Client
	to       string
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(cfg *config.Config) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		}),
		to:       cfg.ReportTo,
		from:     cfg.EmailFrom,
		fromName: cfg.EmailFromName,
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		smtpUser: cfg.SMTPUser,
		smtpPass: cfg.SMTPPass,
	}
}

func (s *Service) ReportShiftOpened(ctx context.Context, r ShiftOpenReport) error {
	subject := fmt.Sprintf("Apertura de Turno #%d - %s", r.ShiftID, r.OpenedAt.Format("02/01/2006"))
	body := fmt.Sprintf(`Turno #%d abierto.

Encargado: %s
Hora de apertura: %s
Caja inicial: $%d

- Sistema Club Santiago`,
		r.ShiftID, r.StaffName, r.OpenedAt.Format("02/01/2006 15:04"), r.InitialCash)

	return s.enqueue(ctx, ReportJob{
		Kind:    "shift_open",
		To:      s.to,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	})
}

func (s *Service) ReportShiftClosed(ctx context.Context, r ShiftCloseReport) error {
	subject := fmt.Sprintf("Cierre de Turno #%d - %s", r.ShiftID, r.ClosedAt.Format("02/01/2006"))

	var b strings.Builder
	fmt.Fprintf(&b, "Turno #%d cerrado.\n\n", r.ShiftID)
	fmt.Fprintf(&b, "Encargado: %s\n", r.StaffName)
	fmt.Fprintf(&b, "Apertura: %s\n", r.OpenedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Cierre: %s\n\n", r.ClosedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Caja inicial: $%d\n", r.InitialCash)
	fmt.Fprintf(&b, "Ventas efectivo: $%d\n", r.SalesCash)
	fmt.Fprintf(&b, "Ventas débito: $%d\n", r.SalesDebit)
	fmt.Fprintf(&b, "Ventas transferencia: $%d\n", r.SalesTransfer)
	fmt.Fprintf(&b, "Gastos: $%d\n", r.Expenses)
	fmt.Fprintf(&b, "Caja según sistema: $%d\n", r.SystemCash)
	fmt.Fprintf(&b, "Caja declarada: $%d\n", r.DeclaredCash)
	fmt.Fprintf(&b, "Diferencia: $%d\n", r.Difference)

	if len(r.Debtors) > 0 {
		b.WriteString("\nDeudas del turno:\n")
		for _, d := range r.Debtors {
			fmt.Fprintf(&b, "  %s: $%d\n", d.UserName, d.Total)
		}
	}
	if len(r.Memberships) > 0 {
		b.WriteString("\nMensualidades cobradas:\n")
		for _, m := range r.Memberships {
			fmt.Fprintf(&b, "  %s: %d mes(es), $%d\n", m.UserName, m.Months, m.Amount)
		}
	}
	if len(r.NewMembers) > 0 {
		b.WriteString("\nNuevos registros:\n")
		for _, n := range r.NewMembers {
			fmt.Fprintf(&b, "  %s\n", n)
		}
	}
	b.WriteString("\n- Sistema Club Santiago")

	return s.enqueue(ctx, ReportJob{
		Kind:    "shift_close",
		To:      s.to,
		Subject: subject,
		Body:    b.String(),
		Created: time.Now(),
	})
}

func (s *Service) enqueue(ctx context.Context, job ReportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue report %s: %v", job.Kind, err)
		return err
	}
	logger.Infof("Report queued: %s", job.Subject)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Report service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Report service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job ReportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad report data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send report %s: %v", job.Kind, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying report %s (attempt %d)", job.Kind, job.Tries+1)
		} else {
			metrics.RecordReport(job.Kind, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordReport(job.Kind, "sent")
	logger.Infof("Report sent: %s", job.Subject)
}

func (s *Service) sendNow(job ReportJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job ReportJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.Errorf("Report moved to failed queue: %s", job.Kind)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
