package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
)

const layout = `<!DOCTYPE html><html><body style="font-family:sans-serif">{{template "content" .}}</body></html>`

var (
	welcomeTmpl = mustTemplate("welcome", `{{define "content"}}
<h2>Welcome to WalletWatch!</h2>
<p>Hi {{.Name}},</p>
<p>Thank you for joining WalletWatch. We're excited to help you manage your budgets and expenses more efficiently.</p>
{{if .AppURL}}<p>Visit your dashboard: <a href="{{.AppURL}}/">Click here</a></p>{{end}}
{{end}}`)

	reminderTmpl = mustTemplate("reminder", `{{define "content"}}
<p>Hi {{.Name}},</p>
<p>Reminder: don't forget to log today's expenses in WalletWatch.</p>
<p>Keeping your expenses updated helps you stay within your budget and track your saving goals.</p>
{{end}}`)

	overspendTmpl = mustTemplate("overspend", `{{define "content"}}
<h2>Budget Overspending Alert</h2>
<p>Hi {{.Name}},</p>
<p>Your budget for {{.Start}} to {{.End}} is at {{.Percentage}}% of its limit.</p>
<p>You have spent a total of {{.Spent}} against a budget of {{.Amount}}.</p>
<p>Please review your budget and expenses to avoid further overspending.</p>
{{end}}`)

	reportTmpl = mustTemplate("report", `{{define "content"}}
<h2>Monthly Budget Report: {{.Period}}</h2>
<p>Hi {{.Name}},</p>
<p>You spent <b>{{.Total}}</b> in {{.Period}}.</p>
{{if .Categories}}<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Category</th><th>Entries</th><th>Amount</th></tr>
{{range .Categories}}<tr><td>{{.Category}}</td><td>{{.Count}}</td><td>{{.Amount.StringFixed 2}}</td></tr>
{{end}}</table>{{else}}<p>No expenses were recorded.</p>{{end}}
{{if .Budgets}}<h3>Budgets</h3><ul>
{{range .Budgets}}<li>{{.Start}} to {{.End}}: {{.Spent.StringFixed 2}} of {{.Amount.StringFixed 2}}{{if .Overspent}} <b>(over budget)</b>{{end}}</li>
{{end}}</ul>{{end}}
{{end}}`)
)

func mustTemplate(name, content string) *template.Template {
	t := template.Must(template.New(name).Parse(layout))
	return template.Must(t.Parse(content))
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

func Welcome(name, appURL string) (Message, error) {
	body, err := render(welcomeTmpl, map[string]string{"Name": name, "AppURL": appURL})
	return Message{Subject: "Welcome to WalletWatch!", HTML: body}, err
}

func Reminder(name string) (Message, error) {
	body, err := render(reminderTmpl, map[string]string{"Name": name})
	return Message{Subject: "Budget Reminder", HTML: body}, err
}

// OverspendData describes one overspent budget.
type OverspendData struct {
	Name       string
	Start      time.Time
	End        time.Time
	Amount     decimal.Decimal
	Spent      decimal.Decimal
	Percentage decimal.Decimal
}

func Overspend(d OverspendData) (Message, error) {
	body, err := render(overspendTmpl, map[string]string{
		"Name":       d.Name,
		"Start":      d.Start.Format(time.DateOnly),
		"End":        d.End.Format(time.DateOnly),
		"Amount":     d.Amount.StringFixed(2),
		"Spent":      d.Spent.StringFixed(2),
		"Percentage": d.Percentage.StringFixed(2),
	})
	return Message{Subject: "Budget Overspending Alert", HTML: body}, err
}

// BudgetLine is one budget row of the monthly report.
type BudgetLine struct {
	Start     string
	End       string
	Amount    decimal.Decimal
	Spent     decimal.Decimal
	Overspent bool
}

// ReportData feeds the monthly report.
type ReportData struct {
	Name       string
	Period     string
	Total      string
	Categories []model.CategoryTotal
	Budgets    []BudgetLine
}

func Report(d ReportData) (Message, error) {
	body, err := render(reportTmpl, d)
	return Message{Subject: "Monthly Budget Report", HTML: body}, err
}
