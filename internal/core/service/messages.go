package service

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

var challengeHTML = template.Must(template.New("challenge").Parse(`<p>Hi {{.Name}},</p>
<p>Your {{.What}} code is:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>It expires in {{.Minutes}} minutes. If you did not request it, you can ignore this email.</p>`))

type challengeData struct {
	Name    string
	What    string
	Code    string
	Minutes int
}

func challengeMessage(account *domain.Account, code string, purpose domain.OTPPurpose, ttl time.Duration) ports.Message {
	what := "verification"
	subject := "Verify your email address"
	if purpose == domain.PurposePasswordReset {
		what = "password reset"
		subject = "Reset your password"
	}

	data := challengeData{
		Name:    account.Name,
		What:    what,
		Code:    code,
		Minutes: int(ttl.Minutes()),
	}

	var html strings.Builder
	_ = challengeHTML.Execute(&html, data)

	return ports.Message{
		To:       account.Email,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: fmt.Sprintf("Hi %s, your %s code is %s. It expires in %d minutes.", data.Name, data.What, data.Code, data.Minutes),
	}
}

func verifiedMessage(account *domain.Account) ports.Message {
	return ports.Message{
		To:       account.Email,
		Subject:  "Your email is verified",
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>Your email address has been verified. Welcome aboard!</p>", template.HTMLEscapeString(account.Name)),
		TextBody: fmt.Sprintf("Hi %s, your email address has been verified. Welcome aboard!", account.Name),
	}
}

func passwordChangedMessage(account *domain.Account) ports.Message {
	return ports.Message{
		To:       account.Email,
		Subject:  "Your password was changed",
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>Your password was just changed. If this wasn't you, reset it immediately.</p>", template.HTMLEscapeString(account.Name)),
		TextBody: fmt.Sprintf("Hi %s, your password was just changed. If this wasn't you, reset it immediately.", account.Name),
	}
}
