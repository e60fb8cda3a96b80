package notification

import (
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/email"
)

const templateName = "booking_confirmation"

const subjectTemplate = `Booking confirmed: {{.Reference}} {{.Outbound.Origin}} to {{.Outbound.Destination}}`

const textTemplate = `Hello {{.LeadName}},

Your booking {{.Reference}} is confirmed.

Outbound: {{template "segment" .Outbound}}
{{- with .Return}}
Return:   {{template "segment" .}}
{{- end}}

Passengers:
{{- range .Passengers}}
  - {{.}}
{{- end}}
{{- if .Extras}}

Extras:
{{- range .Extras}}
  - {{.}}
{{- end}}
{{- end}}

Total paid: {{.Total}}
{{- with .Policy}}
{{.}}
{{- end}}
{{- with .GuestURL}}

View your booking: {{.}}
{{- end}}
{{define "segment"}}{{.Airline}}{{.FlightNumber}} {{.Origin}} {{fmtTime .DepartureAt}} -> {{.Destination}} {{fmtTime .ArrivalAt}}{{end}}`

const htmlTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2>Booking {{.Reference}} confirmed</h2>
<p>Hello {{.LeadName}},</p>
<table cellpadding="4">
<tr><th align="left">Outbound</th><td>{{template "segment" .Outbound}}</td></tr>
{{- with .Return}}
<tr><th align="left">Return</th><td>{{template "segment" .}}</td></tr>
{{- end}}
</table>
<h3>Passengers</h3>
<ul>
{{- range .Passengers}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- if .Extras}}
<h3>Extras</h3>
<ul>
{{- range .Extras}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
<p><strong>Total paid: {{.Total}}</strong></p>
{{- with .Policy}}
<p>{{.}}</p>
{{- end}}
{{- with .GuestURL}}
<p><a href="{{.}}">View your booking</a></p>
{{- end}}
</body>
</html>
{{define "segment"}}{{.Airline}}{{.FlightNumber}} {{.Origin}} {{fmtTime .DepartureAt}} &rarr; {{.Destination}} {{fmtTime .ArrivalAt}}{{end}}`

func fmtTime(t time.Time) string {
	return t.Format("Mon 02 Jan 2006 15:04")
}

var (
	subjectTmpl = texttemplate.Must(texttemplate.New("subject").Parse(subjectTemplate))
	textTmpl    = texttemplate.Must(texttemplate.New(templateName).Funcs(texttemplate.FuncMap{"fmtTime": fmtTime}).Parse(textTemplate))
	htmlTmpl    = htmltemplate.Must(htmltemplate.New(templateName).Funcs(htmltemplate.FuncMap{"fmtTime": fmtTime}).Parse(htmlTemplate))
)

type confirmationModel struct {
	Reference  string
	LeadName   string
	Outbound   domain.Segment
	Return     *domain.Segment
	Passengers []string
	Extras     []string
	Total      string
	Policy     string
	GuestURL   string
}

// newModel uses only the frozen booking snapshot.
func newModel(b *domain.Booking, guestURL string) confirmationModel {
	m := confirmationModel{
		Reference: b.Reference,
		Outbound:  b.Outbound,
		Return:    b.Return,
		Total:     b.Total.String(),
		GuestURL:  guestURL,
	}
	for _, p := range b.Passengers {
		m.Passengers = append(m.Passengers, p.FullName())
	}
	if len(b.Passengers) > 0 {
		m.LeadName = b.Passengers[0].GivenName
	}

	names := make(map[string]string, len(b.Passengers))
	for _, p := range b.Passengers {
		names[p.ID] = p.FullName()
	}
	for _, e := range b.Extras {
		line := string(e.Kind)
		if e.Designator != "" {
			line += " " + e.Designator
		}
		if e.Quantity > 1 {
			line += " x" + strconv.Itoa(e.Quantity)
		}
		m.Extras = append(m.Extras, line+" for "+names[e.PassengerID]+" ("+e.SegmentID+"): "+e.Price.String())
	}

	var policy []string
	if b.Policy.Refundable {
		policy = append(policy, "Refundable before departure"+penalty(b.Policy.RefundPenalty))
	} else {
		policy = append(policy, "Non-refundable")
	}
	if b.Policy.Changeable {
		policy = append(policy, "changes allowed"+penalty(b.Policy.ChangePenalty))
	}
	m.Policy = strings.Join(policy, "; ") + "."
	return m
}

func penalty(p *domain.Money) string {
	if p == nil || p.IsZero() {
		return ""
	}
	return " (penalty " + p.String() + ")"
}

func render(b *domain.Booking, guestURL string, to []string) (email.Message, error) {
	model := newModel(b, guestURL)

	var subject, text, html strings.Builder
	if err := subjectTmpl.Execute(&subject, model); err != nil {
		return email.Message{}, err
	}
	if err := textTmpl.Execute(&text, model); err != nil {
		return email.Message{}, err
	}
	if err := htmlTmpl.Execute(&html, model); err != nil {
		return email.Message{}, err
	}
	return email.Message{
		To:             to,
		Subject:        subject.String(),
		Template:       templateName,
		Text:           text.String(),
		HTML:           html.String(),
		IdempotencyKey: "confirmation:" + b.ID,
	}, nil
}
