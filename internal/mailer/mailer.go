package mailer

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// SendEmailArgs is the payload of a queued outbound email. Workflow
// transactions enqueue these with river's InsertTx so the job commits or
// rolls back together with the notification rows that triggered it.
type SendEmailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (SendEmailArgs) Kind() string { return "send_email" }

// Sender delivers one email. Implementations must not panic; a false return
// means delivery failed and the caller decides what to do about it.
type Sender interface {
	Send(to, subject, html string) bool
}

// SendEmailWorker delivers queued emails. Delivery is best-effort: a failed
// send is logged and the job completes, so mail trouble never surfaces as a
// workflow failure or a retry storm against a dead SMTP host.
type SendEmailWorker struct {
	river.WorkerDefaults[SendEmailArgs]
	sender Sender
	log    *slog.Logger
}

func NewSendEmailWorker(sender Sender, log *slog.Logger) *SendEmailWorker {
	if log == nil {
		log = slog.Default()
	}
	return &SendEmailWorker{sender: sender, log: log}
}

func (w *SendEmailWorker) Work(ctx context.Context, job *river.Job[SendEmailArgs]) error {
	args := job.Args
	if !w.sender.Send(args.To, args.Subject, args.HTML) {
		w.log.Error("email delivery failed", "to", args.To, "subject", args.Subject)
		return nil
	}
	w.log.Info("email sent", "to", args.To, "subject", args.Subject)
	return nil
}
