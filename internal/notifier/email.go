package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

const (
	defaultSendGridHost = "https://api.sendgrid.com"
	sendGridEndpoint    = "/v3/mail/send"
)

// EmailOptions configures the SendGrid channel.
type EmailOptions struct {
	APIKey    string
	Host      string
	FromName  string
	FromEmail string
}

// EmailNotifier sends notifications through the SendGrid v3 mail API.
type EmailNotifier struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

// NewEmailNotifier constructs an EmailNotifier.
func NewEmailNotifier(opts EmailOptions) *EmailNotifier {
	host := opts.Host
	if host == "" {
		host = defaultSendGridHost
	}
	name := opts.FromName
	if name == "" {
		name = "Attendly"
	}
	return &EmailNotifier{
		key:        opts.APIKey,
		host:       host,
		from:       sgmail.NewEmail(name, opts.FromEmail),
		subjPrefix: "[" + name + "] ",
	}
}

// Notify implements Notifier. Messages without a recipient are skipped.
func (n *EmailNotifier) Notify(ctx context.Context, msg models.NotificationMessage) error {
	if msg.Recipient == "" {
		return ErrSkipped
	}

	req := sendgrid.GetRequest(n.key, sendGridEndpoint, n.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(n.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (n *EmailNotifier) prepare(msg models.NotificationMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = n.subjPrefix + msg.Title
	p.AddTos(sgmail.NewEmail("", msg.Recipient))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return m
}
