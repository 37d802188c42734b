package mail

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templates embed.FS

var reportTemplate = template.Must(template.ParseFS(templates, "templates/sync_report.html"))

func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	s := &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
	s.deliver = func(m *gomail.Message) error {
		return gomail.NewDialer(s.Host, s.Port, s.User, s.Password).DialAndSend(m)
	}
	return s
}

// SendSyncReport mails the operators a summary of a run that had failures.
func (s *EmailSender) SendSyncReport(succeeded, failed int, failedEmails []string) error {
	if len(s.To) == 0 {
		return fmt.Errorf("no report recipients configured")
	}

	data := SyncReportData{
		Succeeded:    succeeded,
		Failed:       failed,
		FailedEmails: failedEmails,
		FinishedAt:   time.Now().UTC(),
	}

	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render sync report: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", fmt.Sprintf("CRM sync: %d user(s) failed", failed))
	m.SetBody("text/html", body.String())

	if err := s.deliver(m); err != nil {
		return fmt.Errorf("send sync report via SMTP: %w", err)
	}
	return nil
}
