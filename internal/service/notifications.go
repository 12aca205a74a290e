package service

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/model"
)

const signature = `<p>Regards,<br/><strong>Campus Hall Bookings</strong></p>`

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "received"}}<p>Dear {{.Name}},</p>
<p>Your booking for the hall <strong>{{.Booking.HallName}}</strong> on <strong>{{.Booking.FormattedDate}}</strong> during the <strong>{{.Slot}} slot</strong> has been successfully received.</p>
<p>Event Name: <strong>{{or .Booking.EventName "N/A"}}</strong></p>
{{if .Booking.PosterImage}}<p>Event poster: <em>Uploaded successfully</em></p>{{end}}
<p>The booking status is currently <em>waiting for approval</em> from the campus halls admin.</p>
<p>You will receive another email once an admin reviews it.</p>` + signature + `{{end}}

{{define "confirmed"}}<p>Dear {{.Name}},</p>
<p>Your booking for <strong>{{.Booking.HallName}}</strong> on <strong>{{.Booking.FormattedDate}}</strong> ({{.Slot}} slot) has been <strong>confirmed</strong>.</p>
<p>Event Name: <strong>{{or .Booking.EventName "N/A"}}</strong></p>
{{if .Note}}<p>Note from admin: {{.Note}}</p>{{end}}` + signature + `{{end}}

{{define "rejected"}}<p>Dear {{.Name}},</p>
<p>We regret to inform you that your booking for <strong>{{.Booking.HallName}}</strong> on <strong>{{.Booking.FormattedDate}}</strong> ({{.Slot}} slot) has been <strong>rejected</strong>.</p>
{{if .Note}}<p>Reason: {{.Note}}</p>{{end}}` + signature + `{{end}}

{{define "blocked"}}<p>Dear {{.Name}},</p>
<p>Your confirmed booking has been <strong>blocked</strong> by the administrator. Details:</p>
<ul>
<li>Booking ID: {{.Booking.BookingID}}</li>
<li>Hall: {{.Booking.HallName}}</li>
<li>Date: {{.Booking.FormattedDate}}</li>
<li>Slot: {{.Slot}}</li>
<li>Event: {{or .Booking.EventName "N/A"}}</li>
<li>Description: {{or .Booking.EventDescription "N/A"}}</li>
</ul>
<p>Please contact the admin office for further information.</p>` + signature + `{{end}}

{{define "cancelled"}}<p>Dear {{.Name}},</p>
<p>Your booking for <strong>{{.Booking.HallName}}</strong> on <strong>{{.Booking.FormattedDate}}</strong> ({{.Slot}} slot) has been cancelled as requested.</p>
<p>Cancellation note: {{.Note}}</p>` + signature + `{{end}}

{{define "hall"}}<p>Dear {{.Name}},</p>
<p>A new hall is now available for booking:</p>
<ul>
<li>Name: {{.Hall.Name}}</li>
<li>Block: {{.Hall.Block}}</li>
<li>Capacity: {{.Hall.Capacity}}</li>
<li>Location: {{.Hall.Location}}</li>
</ul>` + signature + `{{end}}

{{define "registered"}}<p>Dear {{.Name}},</p>
<p>Thank you for registering with Campus Hall Bookings. Your account is <em>awaiting approval</em> from an administrator.</p>
<p>You will be able to sign in once your account has been verified.</p>` + signature + `{{end}}

{{define "approved"}}<p>Dear {{.Name}},</p>
<p>Your account has been <strong>verified</strong>. You can now sign in and book campus halls.</p>` + signature + `{{end}}

{{define "announcement"}}<p>Dear {{.Name}},</p>
<h3>{{.Announcement.Title}}</h3>
<p>{{.Announcement.Message}}</p>
<p>This announcement is valid for {{.Announcement.Validity}} hours.</p>` + signature + `{{end}}
`))

// mailData is the input of every template; unused fields stay zero.
type mailData struct {
	Name         string
	Slot         string
	Note         string
	Booking      *model.Booking
	Hall         *model.Hall
	Announcement *model.Announcement
}

var subjects = map[string]string{
	"received":   "Booking Confirmation - Awaiting Admin Approval",
	"confirmed":  "Booking Confirmed",
	"rejected":   "Booking Rejected",
	"blocked":    "Booking Blocked by Admin",
	"cancelled":  "Booking Cancellation Confirmed",
	"hall":       "New Hall Added",
	"registered": "Registration Received - Awaiting Approval",
	"approved":   "Account Verified",
}

// mailer renders templates and hands the result to a Notifier.
type mailer struct {
	notify Notifier
	dir    Directory
	log    *zap.Logger
}

func (m mailer) render(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func (m mailer) greeting(ctx context.Context, email string) string {
	if m.dir != nil {
		if u, err := m.dir.GetByEmail(ctx, email); err == nil && u.FirstName != "" {
			return u.FirstName
		}
	}
	return "User"
}

// booking sends a booking lifecycle email to the booking owner.  It runs
// after the state change has been committed and never fails the caller.
func (m mailer) booking(ctx context.Context, name string, b *model.Booking, note string) {
	data := mailData{
		Name:    m.greeting(ctx, b.BookingEmail),
		Slot:    strings.ToUpper(string(b.Slot)),
		Note:    note,
		Booking: b,
	}
	body, err := m.render(name, data)
	if err != nil {
		m.log.Error("render notification", zap.String("template", name), zap.Int64("booking_id", b.BookingID), zap.Error(err))
		return
	}
	m.notify.Notify(context.WithoutCancel(ctx), b.BookingEmail, subjects[name], body)
}

// broadcast emails every notifiable user.
func (m mailer) broadcast(ctx context.Context, name, subject string, data mailData) {
	if m.dir == nil {
		return
	}
	users, err := m.dir.ListNotifiable(ctx)
	if err != nil {
		m.log.Warn("list notifiable users", zap.String("template", name), zap.Error(err))
		return
	}
	for _, u := range users {
		data.Name = u.FirstName
		if data.Name == "" {
			data.Name = "User"
		}
		body, err := m.render(name, data)
		if err != nil {
			m.log.Error("render notification", zap.String("template", name), zap.Error(err))
			return
		}
		m.notify.Notify(context.WithoutCancel(ctx), u.Email, subject, body)
	}
}

// account sends an account lifecycle email to u.
func (m mailer) account(ctx context.Context, name string, u model.User) {
	data := mailData{Name: u.FirstName}
	if data.Name == "" {
		data.Name = "User"
	}
	body, err := m.render(name, data)
	if err != nil {
		m.log.Error("render notification", zap.String("template", name), zap.String("email", u.Email), zap.Error(err))
		return
	}
	m.notify.Notify(context.WithoutCancel(ctx), u.Email, subjects[name], body)
}
