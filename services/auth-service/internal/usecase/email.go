package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
)

const (
	verificationCodeMin   = 10000
	verificationCodeRange = 90000
)

// VerificationSender delivers verification codes to users.
type VerificationSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// HTMLMailer is the subset of the mailer used to deliver verification codes.
type HTMLMailer interface {
	SendHTML(ctx context.Context, to []string, subject, htmlBody string) error
}

type mailVerificationSender struct {
	mailer HTMLMailer
}

// NewVerificationSender creates a VerificationSender that emails codes.
func NewVerificationSender(mailer HTMLMailer) VerificationSender {
	return &mailVerificationSender{mailer: mailer}
}

func (s *mailVerificationSender) SendVerificationCode(ctx context.Context, email, code string) error {
	htmlBody := fmt.Sprintf(`
		<p>Hello,</p>
		<p>Your verification code is: <strong>%s</strong></p>
		<p>This code is valid for %d minutes.</p>
	`, code, int(repository.VerificationCodeTTL.Minutes()))

	return s.mailer.SendHTML(ctx, []string{email}, "Your Verification Code", htmlBody)
}

// generateVerificationCode returns a uniformly random five digit code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeRange))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", n.Int64()+verificationCodeMin), nil
}
