package domain

import (
	"bytes"
	"text/template"

	"github.com/shopspring/decimal"
)

// TemplateData feeds the per-type message templates. Wording is a
// content concern; edits here never touch classification logic.
type TemplateData struct {
	Name     string
	Amount   decimal.Decimal
	PlanType string
}

var templates = map[Type]*template.Template{
	TypeUpcomingDue: template.Must(template.New("upcoming_due").Parse(
		"Estimado/a {{.Name}}, le recordamos que su mensualidad de ${{.Amount}} " +
			"está próxima a vencer. Evite recargos cancelando a tiempo. Telandes le agradece su puntualidad.")),
	TypeOverdue: template.Must(template.New("overdue").Parse(
		"Estimado/a {{.Name}}, su mensualidad de ${{.Amount}} se encuentra vencida. " +
			"Por favor acérquese a cancelar para evitar la suspensión del servicio. Telandes.")),
	TypeDisconnectionPending: template.Must(template.New("disconnection_pending").Parse(
		"Estimado/a {{.Name}}, su servicio será suspendido por falta de pago. " +
			"Valor pendiente: ${{.Amount}}. Comuníquese con Telandes para regularizar su cuenta.")),
}

// RenderMessage produces the frozen message text for an automatic
// notification type.
func RenderMessage(t Type, data TemplateData) (string, error) {
	tpl, ok := templates[t]
	if !ok {
		return "", ErrInvalidType
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
