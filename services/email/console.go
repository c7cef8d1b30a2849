package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/darasahq/darasa/core"
)

var (
	// SentMessages records messages sent via the mock console service.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// ClearSentMessages resets the mock service's record between tests.
func ClearSentMessages() {
	mu.Lock()
	defer mu.Unlock()
	SentMessages = SentMessages[:0]
}

type consoleService struct {
	from          mail.Address
	subjPrefix    string
	mock          bool
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService writes emails to stdout; for debug environments.
func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

// NewConsoleServiceMock records messages without printing; for tests.
func NewConsoleServiceMock() core.EmailService {
	return &consoleService{
		from:          mail.Address{Name: "Darasa", Address: "noreply@localhost"},
		subjPrefix:    "[Darasa] ",
		mock:          true,
		disableOutput: true,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if svc.mock {
		mu.Lock()
		SentMessages = append(SentMessages, *msg)
		mu.Unlock()
	}
	if svc.disableOutput {
		return
	}

	tos := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		tos = append(tos, to.String())
	}
	fmt.Printf(
		"From: %s\nTo: %s\nSubject: %s\n\n%s\n",
		svc.from.String(), strings.Join(tos, ", "), svc.subjPrefix+msg.Subject, msg.Body,
	)
}
