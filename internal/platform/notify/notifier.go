// Package notify renders borrower-facing receipts and delivers them from a bounded
// queue. Delivery failures are logged and never reach the caller.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"text/template"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// Kind selects the receipt template.
type Kind string

const (
	KindIssue   Kind = "issue"
	KindReturn  Kind = "return"
	KindPayment Kind = "payment"
)

// ErrQueueFull is returned by SendReceipt when the delivery queue is saturated.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned by SendReceipt after Close.
var ErrClosed = errors.New("notifier closed")

// Message is a rendered notification ready for a Sender.
type Message struct {
	Kind    Kind
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Receipt notification",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)))
	return nil
}

var receiptTemplates = template.Must(template.New("receipts").Parse(`
{{define "issue_subject"}}Library issue receipt{{end}}
{{define "issue"}}Dear {{.Borrower.Name}},

The following items were issued to you ({{.Borrower.RegNo}}):
{{range .Items}}{{if eq .Status "Success"}}  - {{.Accession}} due {{.DueDate.Format "02 Jan 2006"}}
{{end}}{{end}}
Please return or renew them before the due date to avoid fines.
{{end}}
{{define "return_subject"}}Library return receipt{{end}}
{{define "return"}}Dear {{.Borrower.Name}},

Loan {{index .Details "loan_id"}} was returned in {{index .Details "condition"}} condition.
A fine of {{index .Details "fine_amount"}} has been raised on your account.
{{end}}
{{define "payment_subject"}}Library payment receipt{{end}}
{{define "payment"}}Dear {{.Borrower.Name}},

We received {{index .Details "total"}} by {{index .Details "payment_method"}} against {{index .Details "fine_count"}} fine(s).
Receipt number: {{index .Details "receipt_id"}}
{{end}}
`))

type receiptData struct {
	Borrower *domain.Borrower
	Items    []domain.IssueItemResult
	Details  map[string]any
}

// Notifier renders receipts and delivers them on a single worker goroutine.
type Notifier struct {
	sender Sender
	from   string
	logger *slog.Logger

	queue  chan Message
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewNotifier creates a notifier with a queue of queueSize messages.
func NewNotifier(sender Sender, from string, queueSize int, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Notifier{
		sender: sender,
		from:   from,
		logger: logger.With(slog.String("component", "notifier")),
		queue:  make(chan Message, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (n *Notifier) Start() {
	go func() {
		defer close(n.done)
		for msg := range n.queue {
			if err := n.sender.Send(context.Background(), msg); err != nil {
				n.logger.Error("Failed to deliver notification",
					slog.String("kind", string(msg.Kind)),
					slog.String("to", msg.To),
					slog.String("error", err.Error()))
			}
		}
	}()
}

// SendReceipt renders a receipt for borrower and queues it without blocking.
// A borrower without an email address is skipped.
func (n *Notifier) SendReceipt(ctx context.Context, kind Kind, borrower *domain.Borrower, details map[string]any) error {
	if borrower == nil || borrower.Email == "" {
		n.logger.Debug("Skipping receipt, no recipient address", slog.String("kind", string(kind)))
		return nil
	}

	data := receiptData{Borrower: borrower, Details: details}
	if items, ok := details["items"].([]domain.IssueItemResult); ok {
		data.Items = items
	}

	var subject, body bytes.Buffer
	if err := receiptTemplates.ExecuteTemplate(&subject, string(kind)+"_subject", data); err != nil {
		return fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := receiptTemplates.ExecuteTemplate(&body, string(kind), data); err != nil {
		return fmt.Errorf("render %s body: %w", kind, err)
	}

	msg := Message{Kind: kind, From: n.from, To: borrower.Email, Subject: subject.String(), Body: body.String()}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrClosed
	}
	select {
	case n.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting receipts and waits for the queue to drain or ctx to expire.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
