package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/diagnosis/campus-connect/pkg/logger"
)

// DevMailer prints codes instead of sending them. It is refused in production.
type DevMailer struct {
	out io.Writer
}

func NewDevMailer() *DevMailer {
	return &DevMailer{out: os.Stdout}
}

func (d *DevMailer) SendLoginCode(ctx context.Context, toEmail, code string, expiresIn time.Duration) error {
	logger.InfoContext(ctx, "📧 [DEV MAIL] Login Code Email",
		"to", toEmail,
		"code", code,
		"expires_in", expiresIn.String(),
	)

	msg := loginCodeMessage(code, expiresIn)
	fmt.Fprintf(d.out, "\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 LOGIN CODE EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"Code: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, msg.subject, code)

	return nil
}
