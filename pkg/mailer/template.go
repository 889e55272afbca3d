package mailer

import (
	"bytes"
	"html/template"
	"strings"
)

const ApprovalSubject = "Your NGO Approval - Welcome to GreenBite"

var approvalTemplate = template.Must(template.New("approval").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; line-height: 1.6;">
  <p style="color: #333;">Dear {{.Name}},</p>
  <p style="color: #333;">We are delighted to inform you that your NGO has been successfully approved by the GreenBite admin team.</p>
  <p style="color: #333;">You can now log in to your account and begin managing donations. We are excited to have you join our mission to reduce food waste and make a positive impact in the community.</p>
  <p style="color: #333;">Together, we can create lasting change and build a more sustainable future for all.</p>
  <p style="color: #333;">Should you have any questions or need assistance, please don't hesitate to reach out.</p>
  <p style="color: #333;">Thank you for being part of this important cause!</p>
  <p style="color: #333; margin-top: 30px;">Best regards,<br>The GreenBite Team</p>
  <div style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666;">
    <p>This is an automated message, please do not reply to this email.</p>
  </div>
</div>
`))

// ApprovalMessage renders the NGO approval email.
func ApprovalMessage(email, ngoName string) (Message, error) {
	name := strings.TrimSpace(ngoName)
	if name == "" {
		name = "NGO Representative"
	}
	var buf bytes.Buffer
	if err := approvalTemplate.Execute(&buf, struct{ Name string }{name}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      strings.TrimSpace(email),
		ToName:  name,
		Subject: ApprovalSubject,
		HTML:    buf.String(),
	}, nil
}
