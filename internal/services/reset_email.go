package services

import (
	"bytes"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"
)

var resetHTMLTemplate = htmltemplate.Must(htmltemplate.New("reset_html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.AppName}}</h2>
  <p>Bonjour {{.Name}},</p>
  <p>Vous avez demandé la réinitialisation de votre mot de passe. Cliquez sur le bouton ci-dessous pour en choisir un nouveau :</p>
  <p><a href="{{.Link}}" style="background: #d4a373; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">Réinitialiser mon mot de passe</a></p>
  <p>Ce lien expire dans {{.Minutes}} minutes. Si vous n'êtes pas à l'origine de cette demande, ignorez simplement cet email.</p>
</body>
</html>`))

var resetTextTemplate = texttemplate.Must(texttemplate.New("reset_text").Parse(`Bonjour {{.Name}},

Vous avez demandé la réinitialisation de votre mot de passe {{.AppName}}.
Ouvrez ce lien pour en choisir un nouveau :

{{.Link}}

Ce lien expire dans {{.Minutes}} minutes. Si vous n'êtes pas à l'origine de cette demande, ignorez simplement cet email.
`))

// ResetEmailComposer renders the password reset email.
type ResetEmailComposer struct {
	AppName     string
	FrontendURL string
}

type resetEmailData struct {
	AppName string
	Name    string
	Link    string
	Minutes int
}

func (c *ResetEmailComposer) ResetLink(token string) string {
	return strings.TrimRight(c.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func (c *ResetEmailComposer) Compose(to string, name string, token string, ttl time.Duration) (Message, error) {
	data := resetEmailData{
		AppName: c.AppName,
		Name:    name,
		Link:    c.ResetLink(token),
		Minutes: int(ttl.Minutes()),
	}

	var html, text bytes.Buffer
	if err := resetHTMLTemplate.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := resetTextTemplate.Execute(&text, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: "Réinitialisation de votre mot de passe - " + c.AppName,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
