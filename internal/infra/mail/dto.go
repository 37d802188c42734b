package mail

import (
	"time"

	"gopkg.in/gomail.v2"
)

type SyncReportData struct {
	Succeeded    int
	Failed       int
	FailedEmails []string
	FinishedAt   time.Time
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string

	deliver func(m *gomail.Message) error
}
