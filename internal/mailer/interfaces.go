package mailer

import (
	"context"
	"time"
)

type Service interface {
	SendLoginCode(ctx context.Context, toEmail, code string, expiresIn time.Duration) error
}
