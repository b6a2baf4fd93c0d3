package mailer

import (
	"fmt"
	"time"
)

type message struct {
	subject string
	text    string
	html    string
}

func loginCodeMessage(code string, expiresIn time.Duration) message {
	minutes := int(expiresIn.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	return message{
		subject: "Your Campus Connect login code",
		text: fmt.Sprintf("Your login code is: %s\n\nIt expires in %d minutes. If you did not try to sign in, ignore this email.",
			code, minutes),
		html: fmt.Sprintf(`
		<h2>Your Campus Connect login code</h2>
		<p>Your one-time code is: <strong style="font-size: 24px; letter-spacing: 4px;">%s</strong></p>
		<p>This code will expire in %d minutes.</p>
		<p>If you did not try to sign in, please ignore this email.</p>
	`, code, minutes),
	}
}
