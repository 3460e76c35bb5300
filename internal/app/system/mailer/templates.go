// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
	"strconv"
)

// TestimonialSubmittedEmailData contains the data for the staff notice sent
// when a visitor submits a testimonial.
type TestimonialSubmittedEmailData struct {
	AppName   string
	Name      string
	Role      string
	Rating    int
	Body      string
	ReviewURL string
}

// TestimonialSubmittedEmail generates both plain text and HTML versions of
// the new-testimonial notice.
func TestimonialSubmittedEmail(data TestimonialSubmittedEmailData) (textBody, htmlBody string) {
	textBody = "A new testimonial was submitted on " + data.AppName + " and is waiting for approval.\n\n" +
		"From: " + data.Name
	if data.Role != "" {
		textBody += " (" + data.Role + ")"
	}
	textBody += "\nRating: " + strconv.Itoa(data.Rating) + "/5\n\n" +
		data.Body + "\n\n" +
		"Review it here:\n" + data.ReviewURL

	var buf bytes.Buffer
	_ = testimonialHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

// PendingItem is one testimonial in a digest.
type PendingItem struct {
	Name      string
	Submitted string // formatted date
}

// PendingDigestEmailData contains the data for the daily pending digest.
type PendingDigestEmailData struct {
	AppName   string
	Items     []PendingItem
	ReviewURL string
}

// PendingDigestEmail generates both plain text and HTML versions of the
// pending testimonial digest.
func PendingDigestEmail(data PendingDigestEmailData) (textBody, htmlBody string) {
	textBody = strconv.Itoa(len(data.Items)) + " testimonial(s) on " + data.AppName + " are waiting for approval:\n\n"
	for i, it := range data.Items {
		textBody += strconv.Itoa(i+1) + ". " + it.Name + " (" + it.Submitted + ")\n"
	}
	textBody += "\nReview them here:\n" + data.ReviewURL

	var buf bytes.Buffer
	_ = digestHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

// DonationReceivedEmailData contains the data for a donation receipt.
type DonationReceivedEmailData struct {
	AppName   string
	DonorName string
	Amount    string // formatted, e.g. "INR 500.00"
	PaymentID string
}

// DonationReceivedEmail generates both plain text and HTML versions of the
// receipt sent to a donor.
func DonationReceivedEmail(data DonationReceivedEmailData) (textBody, htmlBody string) {
	name := data.DonorName
	if name == "" {
		name = "friend"
	}
	textBody = "Dear " + name + ",\n\n" +
		"Thank you for your donation of " + data.Amount + " to " + data.AppName + ".\n\n" +
		"Payment reference: " + data.PaymentID + "\n\n" +
		"Please keep this email for your records."

	var buf bytes.Buffer
	_ = donationHTMLTmpl.Execute(&buf, struct {
		DonationReceivedEmailData
		Greeting string
	}{data, name})
	htmlBody = buf.String()

	return textBody, htmlBody
}

// WelcomeEmailData contains the data for the email sent to a new admin user.
type WelcomeEmailData struct {
	AppName  string
	UserName string
	Role     string
	LoginURL string
}

// WelcomeEmail generates both plain text and HTML versions of a welcome email.
func WelcomeEmail(data WelcomeEmailData) (textBody, htmlBody string) {
	textBody = "Hello " + data.UserName + ",\n\n" +
		"An account has been created for you on the " + data.AppName + " dashboard as " + data.Role + ".\n\n" +
		"Sign in here:\n" + data.LoginURL + "\n\n" +
		"Ask the person who added you for your initial password."

	var buf bytes.Buffer
	_ = welcomeHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

const htmlHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
`

const htmlFoot = `
</body>
</html>`

const buttonStyle = `display: inline-block; background-color: #15803d; color: #ffffff; text-decoration: none; padding: 12px 24px; border-radius: 6px; font-weight: 600;`

var testimonialHTMLTmpl = template.Must(template.New("testimonial").Parse(htmlHead + `
  <h2 style="margin-top: 0;">New testimonial awaiting approval</h2>
  <p><strong>{{.Name}}</strong>{{if .Role}} ({{.Role}}){{end}} rated {{.Rating}}/5:</p>
  <blockquote style="border-left: 4px solid #d1d5db; margin: 0; padding-left: 16px; color: #4b5563;">{{.Body}}</blockquote>
  <p style="margin: 30px 0;"><a href="{{.ReviewURL}}" style="` + buttonStyle + `">Review</a></p>
  <p style="color: #999; font-size: 12px;">{{.AppName}}</p>
` + htmlFoot))

var digestHTMLTmpl = template.Must(template.New("digest").Parse(htmlHead + `
  <h2 style="margin-top: 0;">{{len .Items}} testimonial(s) waiting</h2>
  <ol>
  {{range .Items}}<li>{{.Name}} <span style="color: #666;">({{.Submitted}})</span></li>
  {{end}}</ol>
  <p style="margin: 30px 0;"><a href="{{.ReviewURL}}" style="` + buttonStyle + `">Review</a></p>
  <p style="color: #999; font-size: 12px;">{{.AppName}}</p>
` + htmlFoot))

var donationHTMLTmpl = template.Must(template.New("donation").Parse(htmlHead + `
  <h2 style="margin-top: 0;">Thank you, {{.Greeting}}</h2>
  <p>We received your donation of <strong>{{.Amount}}</strong> to {{.AppName}}.</p>
  <p style="color: #666; font-size: 14px;">Payment reference: {{.PaymentID}}</p>
  <p style="color: #999; font-size: 12px;">Please keep this email for your records.</p>
` + htmlFoot))

var welcomeHTMLTmpl = template.Must(template.New("welcome").Parse(htmlHead + `
  <h2 style="margin-top: 0;">Welcome, {{.UserName}}</h2>
  <p>An account has been created for you on the {{.AppName}} dashboard as <strong>{{.Role}}</strong>.</p>
  <p style="margin: 30px 0;"><a href="{{.LoginURL}}" style="` + buttonStyle + `">Sign in</a></p>
  <p style="color: #666; font-size: 14px;">Ask the person who added you for your initial password.</p>
` + htmlFoot))
