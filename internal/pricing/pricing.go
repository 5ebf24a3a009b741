// Package pricing содержит расчёт стоимости заказа: подытог, доставка, итог.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/eguva/eguva-backend/internal/model"
)

// Totals содержит результат расчёта стоимости заказа.
type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// Quote вычисляет стоимость заказа по позициям и текущей конфигурации доставки.
// Функция чистая: не обращается к БД и не изменяет входные данные.
// Денежные суммы округляются до двух знаков по правилу half-up.
// Доставка бесплатна, если подытог не меньше freeThreshold.
func Quote(lines []model.OrderLine, shippingCost, freeThreshold decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
	}
	subtotal = subtotal.Round(2)

	shipping := shippingCost.Round(2)
	if subtotal.GreaterThanOrEqual(freeThreshold) {
		shipping = decimal.Zero.Round(2)
	}

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal.Add(shipping),
	}
}
