// Package usage turns the provider usage payload into a validated
// models.UsageSummary.
package usage

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/telecom"
)

// ErrMalformedPayload is returned when a required field is absent or not
// numeric, or when a usage figure is negative. The balance may be negative
// for accounts in arrears.
var ErrMalformedPayload = errors.New("malformed usage payload")

// Normalize validates data and builds the usage summary for phone.
// Balance, voice, total flow and common flow are required; special flow and
// the per-item list are optional.
func Normalize(phone string, data *telecom.ImportantData, now time.Time) (*models.UsageSummary, error) {
	if data == nil {
		return nil, malformed("payload", "missing")
	}

	summary := &models.UsageSummary{
		CreatedAt: now,
		Phone:     phone,
	}

	if data.BalanceInfo == nil || data.BalanceInfo.IndexBalanceDataInfo == nil {
		return nil, malformed("balance", "missing")
	}
	yuan, err := signed("balance", data.BalanceInfo.IndexBalanceDataInfo.Balance)
	if err != nil {
		return nil, err
	}
	summary.Balance = int64(math.Round(yuan * 100))

	if data.VoiceInfo == nil || data.VoiceInfo.VoiceDataInfo == nil {
		return nil, malformed("voice", "missing")
	}
	voice := data.VoiceInfo.VoiceDataInfo
	if summary.Voice.Used, err = requiredInt("voice.used", voice.Used); err != nil {
		return nil, err
	}
	if summary.Voice.Remaining, err = requiredInt("voice.balance", voice.Balance); err != nil {
		return nil, err
	}
	if summary.Voice.Total, err = requiredInt("voice.total", voice.Total); err != nil {
		return nil, err
	}

	if data.FlowInfo == nil {
		return nil, malformed("flow", "missing")
	}
	flow := data.FlowInfo
	if summary.Flow, err = flowQuantity("flow.total", flow.TotalAmount, true); err != nil {
		return nil, err
	}
	if summary.CommonFlow, err = flowQuantity("flow.common", flow.CommonFlow, true); err != nil {
		return nil, err
	}
	if summary.SpecialFlow, err = flowQuantity("flow.special", flow.SpecialAmount, false); err != nil {
		return nil, err
	}

	for i, item := range flow.FlowList {
		field := fmt.Sprintf("flow.list[%d]", i)
		used, err := requiredInt(field+".used", item.Used)
		if err != nil {
			return nil, err
		}
		balance, err := requiredInt(field+".balance", item.Balance)
		if err != nil {
			return nil, err
		}
		summary.FlowItems = append(summary.FlowItems, models.FlowItem{
			Name:      item.Title,
			Used:      used,
			Total:     used + balance,
			Remaining: balance,
		})
	}

	return summary, nil
}

// flowQuantity builds a KB quantity from a used/balance pair. An absent
// optional amount yields the zero quantity.
func flowQuantity(field string, amount *telecom.FlowAmount, mandatory bool) (models.Quantity, error) {
	if amount == nil {
		if mandatory {
			return models.Quantity{}, malformed(field, "missing")
		}
		return models.Quantity{}, nil
	}

	used, err := requiredInt(field+".used", amount.Used)
	if err != nil {
		return models.Quantity{}, err
	}
	balance, err := requiredInt(field+".balance", amount.Balance)
	if err != nil {
		return models.Quantity{}, err
	}
	return models.Quantity{Used: used, Total: used + balance, Remaining: balance}, nil
}

// signed reads a present, finite number of either sign.
func signed(field string, n *telecom.Number) (float64, error) {
	if n == nil {
		return 0, malformed(field, "missing")
	}
	v, ok := n.Float64()
	if !ok {
		return 0, malformed(field, fmt.Sprintf("not numeric (%q)", n.Raw()))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, malformed(field, fmt.Sprintf("out of range (%v)", v))
	}
	return v, nil
}

// required reads a present, finite, non-negative number.
func required(field string, n *telecom.Number) (float64, error) {
	v, err := signed(field, n)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, malformed(field, fmt.Sprintf("out of range (%v)", v))
	}
	return v, nil
}

func requiredInt(field string, n *telecom.Number) (int64, error) {
	v, err := required(field, n)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(v)), nil
}

func malformed(field, problem string) error {
	return fmt.Errorf("%w: %s %s", ErrMalformedPayload, field, problem)
}
