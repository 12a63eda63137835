package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// Branding is injected into every rendered template.
type Branding struct {
	AppName   string
	ClientURL string
}

type templateData struct {
	Message
	Branding
}

const layout = `{{ define "layout" }}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{ .AppName }}</h2>
  <p>Hello {{ .FirstName | default "there" | trim }},</p>
  {{ template "content" . }}
  <p style="color: #888; font-size: 12px;">&copy; {{ now | date "2006" }} {{ .AppName }} &middot; <a href="{{ .ClientURL }}">{{ .ClientURL | trimPrefix "https://" | trimPrefix "http://" }}</a></p>
</body>
</html>{{ end }}`

var bodies = map[Kind]struct {
	subject string
	content string
}{
	KindVerification: {
		subject: "Verify your email address",
		content: `{{ define "content" }}<p>Thanks for signing up. Please confirm your email address:</p>
  <p><a href="{{ .Link }}" style="background: #3B82F6; color: #fff; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Verify email</a></p>
  <p>This link expires in {{ .ExpiresIn | default "24 hours" }}.</p>{{ end }}`,
	},
	KindPasswordReset: {
		subject: "Reset your password",
		content: `{{ define "content" }}<p>We received a request to reset your password.</p>
  <p><a href="{{ .Link }}" style="background: #EF4444; color: #fff; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Reset password</a></p>
  <p>This link expires in {{ .ExpiresIn | default "10 minutes" }}. If you did not ask for a reset, ignore this email.</p>{{ end }}`,
	},
	KindWelcome: {
		subject: "Welcome aboard",
		content: `{{ define "content" }}<p>Your email address is verified and your account is ready.</p>{{ end }}`,
	},
}

// Renderer turns a Message into a subject line and an HTML body.
type Renderer struct {
	branding  Branding
	templates map[Kind]*template.Template
}

// NewRenderer parses all message templates up front.
func NewRenderer(branding Branding) (*Renderer, error) {
	r := &Renderer{branding: branding, templates: make(map[Kind]*template.Template, len(bodies))}
	for kind, b := range bodies {
		t, err := template.New(string(kind)).Funcs(sprig.FuncMap()).Parse(layout)
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.Parse(b.content); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

// Render produces the subject and HTML body for msg.
func (r *Renderer) Render(msg Message) (subject, body string, err error) {
	t, ok := r.templates[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", templateData{Message: msg, Branding: r.branding}); err != nil {
		return "", "", fmt.Errorf("render %s template: %w", msg.Kind, err)
	}
	return bodies[msg.Kind].subject, buf.String(), nil
}
