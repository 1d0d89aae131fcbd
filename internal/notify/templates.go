package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Kind names one email template.
type Kind string

const (
	KindBookingConfirmation  Kind = "booking_confirmation"
	KindAppointmentConfirmed Kind = "appointment_confirmed"
	KindAppointmentCancelled Kind = "appointment_cancelled"
	KindReportReady          Kind = "report_ready"
	KindRescheduled          Kind = "appointment_rescheduled"
	KindReminder             Kind = "appointment_reminder"
	KindContactReceived      Kind = "contact_received"
	KindContactAutoReply     Kind = "contact_autoreply"
)

// Kinds lists every template the renderer knows.
var Kinds = []Kind{
	KindBookingConfirmation,
	KindAppointmentConfirmed,
	KindAppointmentCancelled,
	KindReportReady,
	KindRescheduled,
	KindReminder,
	KindContactReceived,
	KindContactAutoReply,
}

// Branding is the clinic identity printed in every email.
type Branding struct {
	ClinicName string
	Phone      string
	Address    string
	Hours      string
	DoctorName string
	BookingURL string
}

// Slot is one appointment time as shown to a patient.
type Slot struct {
	Date    string
	Time    string
	Service string
}

// Contact is a contact-form submission.
type Contact struct {
	Name        string
	Email       string
	Phone       string
	Message     string
	SubmittedAt string
}

// View is the data every template executes against. Templates read only the
// fields they need.
type View struct {
	Brand        Branding
	PatientName  string
	TrackingCode string
	Clinic       string
	Slot         Slot
	Previous     Slot
	ReportURL    string
	Reason       string
	Contact      Contact
}

// Rendered is a subject plus both bodies.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer executes the email templates for one clinic.
type Renderer struct {
	brand Branding
	html  *htmltemplate.Template
	text  *texttemplate.Template
}

// NewRenderer parses all templates. Parsing is static so a failure is a bug.
func NewRenderer(brand Branding) *Renderer {
	if brand.ClinicName == "" {
		brand.ClinicName = defaultFromName
	}
	if brand.DoctorName == "" {
		brand.DoctorName = "Our Dental Team"
	}
	return &Renderer{
		brand: brand,
		html:  htmltemplate.Must(htmltemplate.New("email").Funcs(htmltemplate.FuncMap{"pair": pair}).Parse(htmlLayout + htmlBodies)),
		text:  texttemplate.Must(texttemplate.New("email").Parse(textBodies)),
	}
}

// Branding returns the identity the renderer prints.
func (r *Renderer) Branding() Branding {
	return r.brand
}

// Render fills v.Brand and executes the subject, text and HTML templates for kind.
func (r *Renderer) Render(kind Kind, v View) (Rendered, error) {
	v.Brand = r.brand
	if v.PatientName == "" {
		v.PatientName = "Patient"
	}

	var out Rendered
	var buf bytes.Buffer
	if err := r.text.ExecuteTemplate(&buf, string(kind)+".subject", v); err != nil {
		return Rendered{}, fmt.Errorf("notify: render %s subject: %w", kind, err)
	}
	out.Subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := r.text.ExecuteTemplate(&buf, string(kind)+".text", v); err != nil {
		return Rendered{}, fmt.Errorf("notify: render %s text: %w", kind, err)
	}
	out.Text = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := r.html.ExecuteTemplate(&buf, string(kind), v); err != nil {
		return Rendered{}, fmt.Errorf("notify: render %s html: %w", kind, err)
	}
	out.HTML = buf.String()
	return out, nil
}

func pair(label, value string) []string {
	return []string{label, value}
}

const textBodies = `
{{define "footer"}}
{{.ClinicName}}
Phone: {{.Phone}}{{if .Address}}
Address: {{.Address}}{{end}}
{{end}}

{{define "booking_confirmation.subject"}}Your Appointment is Confirmed - {{.Brand.ClinicName}}{{end}}
{{define "booking_confirmation.text"}}
Dear {{.PatientName}},

Your appointment at {{.Brand.ClinicName}} has been booked.

Appointment ID: {{.TrackingCode}}
Date: {{.Slot.Date}}
Time: {{.Slot.Time}}
Service: {{.Slot.Service}}
Clinic: {{.Clinic}}
Doctor: {{.Brand.DoctorName}}

Please arrive 10 minutes before your appointment time and bring a valid ID.
{{template "footer" .Brand}}
{{end}}

{{define "appointment_confirmed.subject"}}Appointment Confirmed - {{.Brand.ClinicName}}{{end}}
{{define "appointment_confirmed.text"}}
Dear {{.PatientName}},

Your appointment has been confirmed by our team for {{.Slot.Date}} at {{.Slot.Time}}.
Location: {{.Clinic}}
Appointment ID: {{.TrackingCode}}
{{template "footer" .Brand}}
{{end}}

{{define "appointment_cancelled.subject"}}Appointment Cancelled - {{.Brand.ClinicName}}{{end}}
{{define "appointment_cancelled.text"}}
Dear {{.PatientName}},

Your appointment has been cancelled {{.Reason}}.
Cancelled: {{.TrackingCode}} | {{.Slot.Date}} at {{.Slot.Time}}
{{if .Brand.BookingURL}}
Book another appointment: {{.Brand.BookingURL}}
{{end}}{{template "footer" .Brand}}
{{end}}

{{define "report_ready.subject"}}Your Dental Report is Ready - {{.Brand.ClinicName}}{{end}}
{{define "report_ready.text"}}
Dear {{.PatientName}},

Your dental report for appointment {{.TrackingCode}} is now available.
View it at {{.ReportURL}}
{{template "footer" .Brand}}
{{end}}

{{define "appointment_rescheduled.subject"}}Your Appointment Has Been Rescheduled - {{.Brand.ClinicName}}{{end}}
{{define "appointment_rescheduled.text"}}
Dear {{.PatientName}},

Your appointment has been rescheduled.

Previous: {{.Previous.Date}} {{.Previous.Time}} ({{.Previous.Service}})
New: {{.Slot.Date}} {{.Slot.Time}} ({{.Slot.Service}})
Location: {{.Clinic}}
Appointment ID: {{.TrackingCode}}
{{template "footer" .Brand}}
{{end}}

{{define "appointment_reminder.subject"}}Appointment Reminder - {{.Brand.ClinicName}}{{end}}
{{define "appointment_reminder.text"}}
Dear {{.PatientName}},

This is a reminder of your upcoming appointment on {{.Slot.Date}} at {{.Slot.Time}}.
Service: {{.Slot.Service}}
Doctor: {{.Brand.DoctorName}}
Location: {{.Clinic}}
Appointment ID: {{.TrackingCode}}

Arrive 10 minutes early and bring your ID.
{{template "footer" .Brand}}
{{end}}

{{define "contact_received.subject"}}New Contact Message from {{.Contact.Name}}{{end}}
{{define "contact_received.text"}}
A new message has been received through the website contact form.

Name: {{.Contact.Name}}
Email: {{.Contact.Email}}
Phone: {{.Contact.Phone}}
Received: {{.Contact.SubmittedAt}}

{{.Contact.Message}}
{{end}}

{{define "contact_autoreply.subject"}}We Received Your Message - {{.Brand.ClinicName}}{{end}}
{{define "contact_autoreply.text"}}
Dear {{.Contact.Name}},

Thank you for contacting {{.Brand.ClinicName}}. We have received your message and will respond within 24-48 hours.
For urgent matters please call us at {{.Brand.Phone}}.
{{template "footer" .Brand}}
{{end}}
`

const htmlLayout = `
{{define "open"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f5f5;">
<table width="100%" cellpadding="0" cellspacing="0" style="background:#f5f5f5;padding:20px 0;"><tr><td align="center">
<table width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border:1px solid #dddddd;">{{end}}

{{define "close"}}</table></td></tr></table></body></html>{{end}}

{{define "header"}}<tr><td style="background:#2c5282;padding:30px;text-align:center;">
<h1 style="color:#ffffff;margin:0;font-size:24px;font-weight:normal;">{{.}}</h1></td></tr>{{end}}

{{define "footer"}}<tr><td style="background:#f9f9f9;padding:20px;text-align:center;border-top:1px solid #dddddd;">
<p style="color:#666666;font-size:14px;margin:0 0 10px 0;font-weight:bold;">{{.ClinicName}}</p>
<p style="color:#666666;font-size:13px;margin:0 0 5px 0;">Phone: {{.Phone}}</p>
{{if .Address}}<p style="color:#666666;font-size:13px;margin:0;">Address: {{.Address}}</p>{{end}}
</td></tr>{{end}}

{{define "row"}}<tr><td style="padding:8px 0;border-bottom:1px solid #eeeeee;"><table width="100%" cellpadding="0" cellspacing="0"><tr>
<td style="color:#666666;font-size:14px;width:150px;">{{index . 0}}</td>
<td style="color:#333333;font-size:14px;font-weight:bold;">{{index . 1}}</td></tr></table></td></tr>{{end}}

{{define "greeting"}}<p style="color:#333333;font-size:15px;line-height:1.6;margin:0 0 20px;">Dear {{.}},</p>{{end}}

{{define "lead"}}<p style="color:#333333;font-size:15px;line-height:1.6;margin:0 0 30px;">{{.}}</p>{{end}}

{{define "note"}}<p style="color:#666666;font-size:14px;line-height:1.6;margin:0;text-align:center;">{{.}}</p>{{end}}
`

const htmlBodies = `
{{define "booking_confirmation"}}{{template "open"}}{{template "header" "Appointment Booked"}}
<tr><td style="padding:30px;">
{{template "greeting" .PatientName}}
{{template "lead" (printf "Your appointment at %s has been booked." .Brand.ClinicName)}}
<table width="100%" cellpadding="0" cellspacing="0" style="border:1px solid #dddddd;margin-bottom:30px;">
{{template "row" (pair "Appointment ID:" .TrackingCode)}}
{{template "row" (pair "Date:" .Slot.Date)}}
{{template "row" (pair "Time:" .Slot.Time)}}
{{template "row" (pair "Service:" .Slot.Service)}}
{{template "row" (pair "Clinic:" .Clinic)}}
{{template "row" (pair "Doctor:" .Brand.DoctorName)}}
</table>
<p style="color:#666666;font-size:14px;line-height:1.6;margin:0 0 20px;background:#fffbea;border:1px solid #f0e68c;padding:15px;">
<strong>Important:</strong> Please arrive 10 minutes before your appointment time and bring a valid ID.</p>
{{template "note" (printf "For any changes, please contact us at %s" .Brand.Phone)}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "appointment_confirmed"}}{{template "open"}}{{template "header" "Appointment Confirmed"}}
<tr><td style="padding:30px;">
{{template "greeting" .PatientName}}
{{template "lead" "Your appointment has been confirmed by our team."}}
<div style="background:#f0f8f0;border:1px solid #90ee90;margin-bottom:30px;padding:20px;text-align:center;">
<p style="color:#666666;font-size:14px;margin:0 0 10px;">Confirmed For</p>
<p style="color:#2c5282;font-size:20px;margin:0;font-weight:bold;">{{.Slot.Date}} at {{.Slot.Time}}</p>
<p style="color:#666666;font-size:14px;margin:10px 0 0;">Location: {{.Clinic}}</p>
<p style="color:#999999;font-size:12px;margin:10px 0 0;">Appointment ID: {{.TrackingCode}}</p>
</div>
{{template "note" (printf "We look forward to seeing you. Contact us at %s for any questions." .Brand.Phone)}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "appointment_cancelled"}}{{template "open"}}{{template "header" "Appointment Cancelled"}}
<tr><td style="padding:30px;">
{{template "greeting" .PatientName}}
{{template "lead" (printf "Your appointment has been cancelled %s." .Reason)}}
<div style="background:#ffe6e6;border:1px solid #ffcccc;margin-bottom:30px;padding:15px;text-align:center;">
<p style="color:#666666;font-size:14px;margin:0 0 10px;">Cancelled Appointment</p>
<p style="color:#999999;font-size:14px;margin:0;text-decoration:line-through;">{{.TrackingCode}} | {{.Slot.Date}} at {{.Slot.Time}}</p>
</div>
{{if .Brand.BookingURL}}<div style="background:#f5f5f5;border:1px solid #dddddd;margin-bottom:20px;padding:20px;text-align:center;">
<p style="color:#333333;font-size:16px;margin:0 0 15px;font-weight:bold;">Book Another Appointment</p>
<a href="{{.Brand.BookingURL}}" style="display:inline-block;background:#2c5282;color:#ffffff;text-decoration:none;padding:12px 30px;font-size:15px;">Book Now</a>
</div>{{end}}
{{template "note" (printf "Questions? Contact us at %s" .Brand.Phone)}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "report_ready"}}{{template "open"}}{{template "header" "Your Report is Ready"}}
<tr><td style="padding:30px;">
{{template "greeting" .PatientName}}
{{template "lead" "Your dental report has been uploaded and is now available for view and download."}}
<div style="background:#f5f5f5;border:1px solid #dddddd;margin-bottom:30px;padding:20px;text-align:center;">
<p style="color:#666666;font-size:14px;margin:0 0 10px;">Appointment ID</p>
<p style="color:#2c5282;font-size:24px;margin:0 0 20px;font-weight:bold;letter-spacing:2px;">{{.TrackingCode}}</p>
<a href="{{.ReportURL}}" style="display:inline-block;background:#2c5282;color:#ffffff;text-decoration:none;padding:12px 30px;font-size:15px;">View Report</a>
</div>
{{template "note" (printf "For questions about your report, call us at %s" .Brand.Phone)}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "appointment_rescheduled"}}{{template "open"}}{{template "header" "Appointment Rescheduled"}}
<tr><td style="padding:30px;">
{{template "greeting" .PatientName}}
{{template "lead" "Your appointment has been rescheduled to a new date and time."}}
<table width="100%" cellpadding="0" cellspacing="0" style="margin-bottom:30px;"><tr>
<td width="48%" valign="top" style="background:#ffe6e6;border:1px solid #ffcccc;padding:15px;text-align:center;">
<p style="color:#999999;font-size:12px;margin:0 0 10px;">Previous Appointment</p>
<p style="color:#666666;font-size:16px;margin:0;text-decoration:line-through;">{{.Previous.Date}}</p>
<p style="color:#666666;font-size:14px;margin:5px 0 0;text-decoration:line-through;">{{.Previous.Time}}</p>
<p style="color:#666666;font-size:10px;margin:5px 0 0;text-decoration:line-through;">({{.Previous.Service}})</p>
</td>
<td width="4%" align="center" valign="middle"><p style="font-size:20px;margin:0;color:#666666;">&rarr;</p></td>
<td width="48%" valign="top" style="background:#e6f7e6;border:1px solid #90ee90;padding:15px;text-align:center;">
<p style="color:#666666;font-size:12px;margin:0 0 10px;">New Appointment</p>
<p style="color:#2c5282;font-size:18px;margin:0;font-weight:bold;">{{.Slot.Date}}</p>
<p style="color:#2c5282;font-size:16px;margin:5px 0 0;font-weight:bold;">{{.Slot.Time}}</p>
<p style="color:#666666;font-size:10px;margin:5px 0 0;">({{.Slot.Service}})</p>
</td></tr></table>
<p style="color:#666666;font-size:14px;margin:0 0 5px;"><strong>Location:</strong> {{.Clinic}}</p>
<p style="color:#666666;font-size:14px;margin:0 0 20px;"><strong>Appointment ID:</strong> {{.TrackingCode}}</p>
{{template "note" (printf "Contact us at %s if you need to make further changes." .Brand.Phone)}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "appointment_reminder"}}{{template "open"}}{{template "header" "Appointment Reminder"}}
<tr><td style="padding:30px;">
{{template "greeting" .PatientName}}
{{template "lead" "This is a reminder of your upcoming appointment."}}
<div style="background:#f5f5f5;border:1px solid #dddddd;margin-bottom:30px;padding:20px;text-align:center;">
<p style="color:#666666;font-size:14px;margin:0 0 10px;">Your Appointment</p>
<p style="color:#2c5282;font-size:22px;margin:0;font-weight:bold;">{{.Slot.Date}}</p>
<p style="color:#2c5282;font-size:18px;margin:5px 0 20px;font-weight:bold;">{{.Slot.Time}}</p>
<table width="100%" cellpadding="0" cellspacing="0">
{{template "row" (pair "Service:" .Slot.Service)}}
{{template "row" (pair "Doctor:" .Brand.DoctorName)}}
{{template "row" (pair "Location:" .Clinic)}}
</table>
<p style="color:#999999;font-size:12px;margin:15px 0 0;">Appointment ID: {{.TrackingCode}}</p>
</div>
<p style="color:#666666;font-size:14px;line-height:1.8;margin:0 0 20px;background:#e6f3ff;border:1px solid #b3d9ff;padding:15px;">
<strong>Before You Come:</strong><br>&bull; Arrive 10 minutes early<br>&bull; Bring your ID and insurance card (if applicable)<br>&bull; List any current medications</p>
{{template "note" (printf "Need to reschedule? Call us at %s" .Brand.Phone)}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "contact_received"}}{{template "open"}}{{template "header" "New Contact Message"}}
<tr><td style="padding:30px;">
{{template "lead" "A new message has been received through your website contact form."}}
<table width="100%" cellpadding="0" cellspacing="0" style="border:1px solid #dddddd;margin-bottom:20px;">
{{template "row" (pair "Name:" .Contact.Name)}}
{{template "row" (pair "Email:" .Contact.Email)}}
{{template "row" (pair "Phone:" .Contact.Phone)}}
{{template "row" (pair "Received:" .Contact.SubmittedAt)}}
</table>
<div style="border:1px solid #dddddd;margin-bottom:20px;padding:15px;">
<p style="color:#666666;font-size:14px;margin:0 0 10px;font-weight:bold;">Message:</p>
<p style="color:#333333;font-size:14px;line-height:1.6;margin:0;white-space:pre-wrap;">{{.Contact.Message}}</p>
</div>
{{if .Contact.Email}}<p style="text-align:center;"><a href="mailto:{{.Contact.Email}}" style="display:inline-block;background:#2c5282;color:#ffffff;text-decoration:none;padding:10px 20px;font-size:14px;">Reply via Email</a></p>{{end}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}

{{define "contact_autoreply"}}{{template "open"}}{{template "header" "Message Received"}}
<tr><td style="padding:30px;">
{{template "greeting" .Contact.Name}}
{{template "lead" (printf "Thank you for contacting %s. We have received your message and will respond within 24-48 hours." .Brand.ClinicName)}}
<p style="color:#666666;font-size:14px;line-height:1.6;margin:0 0 20px;background:#fffbea;border:1px solid #f0e68c;padding:15px;">
<strong>For Urgent Matters:</strong> Please call us directly at {{.Brand.Phone}}</p>
{{if .Brand.Hours}}{{template "note" (printf "Working Hours: %s" .Brand.Hours)}}{{end}}
</td></tr>
{{template "footer" .Brand}}{{template "close"}}{{end}}
`
