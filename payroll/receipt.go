package payroll

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// RECEIPT - Plain-text reprint of a frozen line item
// =============================================================================

// Issuer is the organisation printed in the receipt header.
type Issuer struct {
	Name  string
	TaxID string
}

const receiptWidth = 64

// RenderReceipt writes the receipt of one line item. Only frozen figures are
// used, so a reprint always matches what was saved.
func RenderReceipt(w io.Writer, issuer Issuer, run generic.PayrollRun, it generic.LineItem) error {
	var b strings.Builder

	center := func(s string) {
		pad := (receiptWidth - len([]rune(s))) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad) + s + "\n")
	}
	row := func(label, value string) {
		fmt.Fprintf(&b, "%-24s%s\n", label, value)
	}
	amount := func(label string, d decimal.Decimal) {
		fmt.Fprintf(&b, "%-24s%*s\n", label, receiptWidth-24, Money(d))
	}
	rule := func() { b.WriteString(strings.Repeat("-", receiptWidth) + "\n") }

	if issuer.Name != "" {
		center(strings.ToUpper(issuer.Name))
	}
	if issuer.TaxID != "" {
		center("R.F.C.: " + issuer.TaxID)
	}
	rule()

	row("PERIODO LABORADO", fmt.Sprintf("DEL %s AL %s", run.Period.Start, run.Period.End))
	row("SALARIO DIARIO", Money(it.DailySalary))
	row("NOMBRE", it.Name)
	row("PUESTO", it.Title)
	row("FECHAS DE FALTAS", absences(it.AbsentDates))
	row("DIAS LABORADOS", fmt.Sprintf("%d", it.DaysWorked))
	hire := "-"
	if !it.HireDate.IsZero() {
		hire = it.HireDate.String()
	}
	row("FECHA DE INGRESO", hire)
	rule()

	b.WriteString("PERCEPCIONES\n")
	amount("  SUELDO", it.BasePay)
	if it.BonusTotal.IsPositive() {
		amount("  BONO PUNTUALIDAD", it.BonusTotal)
	}
	if it.CommissionTotal.IsPositive() {
		amount("  COMISION", it.CommissionTotal)
	}
	amount("  TOTAL PERCEPCIONES", it.GrossEarnings)

	b.WriteString("DEDUCCIONES\n")
	amount("  OTRAS DEDUCCIONES", it.DeductionTotal.Neg())
	rule()
	amount("NETO A PAGAR", it.NetPay)

	_, err := io.WriteString(w, b.String())
	return err
}

// Money renders an amount as $1,234.56.
func Money(d decimal.Decimal) string {
	d = d.Round(generic.MoneyPlaces)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(generic.MoneyPlaces)
	cents := fixed[strings.IndexByte(fixed, '.'):]
	return sign + "$" + humanize.Comma(d.IntPart()) + cents
}

func absences(dates []generic.Date) string {
	if len(dates) == 0 {
		return "Ninguna"
	}
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
