package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the aggregated posting amounts of an invoice.
type Breakdown struct {
	TotalInclVAT  decimal.Decimal `json:"total_incl_vat"`
	ServiceAmount decimal.Decimal `json:"service_amount"`
	GoodsAmount   decimal.Decimal `json:"goods_amount"`
	VAT25         decimal.Decimal `json:"vat25"`
	VAT12         decimal.Decimal `json:"vat12"`
	VAT6          decimal.Decimal `json:"vat6"`
}

// Calculate maps invoice lines to posting amounts. Text lines are skipped;
// a line without product type counts as service; rate 0 adds no VAT. Each
// component is rounded to two decimals after aggregation and the total is
// the sum of the rounded components, so the derived entry balances exactly.
func Calculate(lines []InvoiceLine) Breakdown {
	var service, goods, vat25, vat12, vat6 decimal.Decimal
	for _, line := range lines {
		if line.LineType == LineTypeText {
			continue
		}
		if line.ProductType == ProductGoods {
			goods = goods.Add(line.Amount)
		} else {
			service = service.Add(line.Amount)
		}
		vat := line.Amount.Mul(decimal.NewFromInt(int64(line.VATRate))).Div(hundred)
		switch line.VATRate {
		case VATRate25:
			vat25 = vat25.Add(vat)
		case VATRate12:
			vat12 = vat12.Add(vat)
		case VATRate6:
			vat6 = vat6.Add(vat)
		}
	}
	b := Breakdown{
		ServiceAmount: shared.Round2(service),
		GoodsAmount:   shared.Round2(goods),
		VAT25:         shared.Round2(vat25),
		VAT12:         shared.Round2(vat12),
		VAT6:          shared.Round2(vat6),
	}
	b.TotalInclVAT = shared.SumDecimals(b.ServiceAmount, b.GoodsAmount, b.VAT25, b.VAT12, b.VAT6)
	return b
}

// ValidateLines rejects chargeable lines with a VAT rate Calculate cannot bucket.
func ValidateLines(lines []InvoiceLine) error {
	for i, line := range lines {
		if line.LineType == LineTypeText {
			continue
		}
		switch line.VATRate {
		case VATRate0, VATRate6, VATRate12, VATRate25:
		default:
			return fmt.Errorf("%w: line %d has rate %d", ErrUnsupportedVATRate, i+1, line.VATRate)
		}
	}
	return nil
}
