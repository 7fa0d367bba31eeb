package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"budgetwise/internal/core"
)

// Mailer turns consumed reminder messages into plain-text email.
type Mailer struct {
	host string
	port string
	from string
	auth smtp.Auth
}

func NewMailer(host, port, username, password, from string) *Mailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &Mailer{host: host, port: port, from: from, auth: auth}
}

// DeliverReminder sends one reminder email. The caller's handler loop decides
// whether a failure is requeued.
func (m *Mailer) DeliverReminder(ctx context.Context, msg *ReminderMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := buildReminderMail(m.from, msg)
	addr := net.JoinHostPort(m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, []string{msg.Email}, body); err != nil {
		return fmt.Errorf("send reminder mail: %w", err)
	}
	return nil
}

func buildReminderMail(from string, msg *ReminderMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Email)
	b.WriteString("Subject: Upcoming Recurring Transaction Reminder\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "You have a recurring transaction of %.2f (%s) due on %s.\r\n",
		core.Money{Cents: msg.AmountCents}.Units(), msg.Category, msg.Date.Format("January 2, 2006"))
	if msg.Note != "" {
		fmt.Fprintf(&b, "Note: %s\r\n", msg.Note)
	}
	return []byte(b.String())
}
