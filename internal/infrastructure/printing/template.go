package printing

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/fiscaldesk/backend/internal/application/receipt"
)

// receiptTemplate is the HTML layout of the fiscal receipt. The document is
// self-contained: inline CSS only, no external resources, so the renderer
// never fetches anything over the network.
const receiptTemplate = `<!DOCTYPE html>
<html lang="pt">
<head>
<meta charset="UTF-8">
<title>Recibo Nº {{.ReceiptNumber}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #1a1a1a; margin: 0; padding: 32px; font-size: 13px; }
  .header { display: flex; justify-content: space-between; border-bottom: 2px solid #1a1a1a; padding-bottom: 16px; }
  .header h1 { margin: 0; font-size: 22px; }
  .header .number { font-size: 18px; font-weight: bold; }
  .section { margin-top: 24px; }
  .section h2 { font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #666; margin: 0 0 8px; }
  table { width: 100%; border-collapse: collapse; }
  td { padding: 4px 0; vertical-align: top; }
  td.label { width: 40%; color: #666; }
  .amount { font-size: 20px; font-weight: bold; }
  .fiscal { margin-top: 32px; padding: 12px; background: #f5f5f5; font-size: 11px; color: #444; }
</style>
</head>
<body>
  <div class="header">
    <div>
      <h1>Recibo</h1>
      <div>{{.OrganizationName}}</div>
    </div>
    <div>
      <div class="number">Nº {{.ReceiptNumber}}</div>
      <div>Data de emissão: {{.IssueDate}}</div>
    </div>
  </div>

  <div class="section">
    <h2>Emitente</h2>
    <table>
      <tr><td class="label">Nome</td><td>{{.IssuerName}}</td></tr>
      {{if .IssuerTaxID}}<tr><td class="label">NIF</td><td>{{.IssuerTaxID}}</td></tr>{{end}}
      {{if .IssuerEmail}}<tr><td class="label">Email</td><td>{{.IssuerEmail}}</td></tr>{{end}}
      <tr><td class="label">IBAN</td><td>{{.IssuerIBAN}}</td></tr>
    </table>
  </div>

  <div class="section">
    <h2>Cliente</h2>
    <table>
      <tr><td class="label">Nome</td><td>{{.CustomerName}}</td></tr>
      <tr><td class="label">NIF</td><td>{{.CustomerTaxID}}</td></tr>
      <tr><td class="label">Morada fiscal</td><td>{{.CustomerAddress}}</td></tr>
    </table>
  </div>

  <div class="section">
    <h2>Pagamento</h2>
    <table>
      <tr><td class="label">Fatura</td><td>{{.InvoiceNumber}}</td></tr>
      <tr><td class="label">Data da fatura</td><td>{{.InvoiceDate}}</td></tr>
      <tr><td class="label">Data de recebimento</td><td>{{.ReceivedDate}}</td></tr>
      <tr><td class="label">Método de pagamento</td><td>{{.PaymentMethod}}</td></tr>
      {{if .ActivityCode}}<tr><td class="label">Código de atividade</td><td>{{.ActivityCode}}</td></tr>{{end}}
      <tr><td class="label">Valor recebido</td><td class="amount">{{.Amount}} {{.Currency}}</td></tr>
    </table>
  </div>

  <div class="fiscal">
    Regime fiscal: {{.TaxRegime}} · Retenção IRS: {{.IRSWithholding}}
  </div>
</body>
</html>`

var compiledReceiptTemplate = template.Must(template.New("receipt").Parse(receiptTemplate))

// renderReceiptHTML executes the receipt template against the document payload
func renderReceiptHTML(doc receipt.ReceiptDocument) (string, error) {
	var buf bytes.Buffer
	if err := compiledReceiptTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to execute receipt template: %w", err)
	}
	return buf.String(), nil
}
