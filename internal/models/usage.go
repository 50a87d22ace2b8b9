// Package models defines data structures and domain types.
package models

import "time"

// Quantity is a used/total pair with the provider-reported remainder.
type Quantity struct {
	Used      int64 `json:"used" yaml:"used"`
	Total     int64 `json:"total" yaml:"total"`
	Remaining int64 `json:"remaining" yaml:"remaining"`
}

// Percent returns the usage percentage. A zero total yields 0.
func (q Quantity) Percent() float64 {
	if q.Total <= 0 {
		return 0
	}
	return float64(q.Used) / float64(q.Total) * 100
}

// FlowItem is a named flow allotment reported in the usage payload (KB).
type FlowItem struct {
	Name      string `json:"name" yaml:"name"`
	Used      int64  `json:"use" yaml:"use"`
	Total     int64  `json:"total" yaml:"total"`
	Remaining int64  `json:"balance" yaml:"balance"`
}

// Quantity returns the item as a Quantity.
func (f FlowItem) Quantity() Quantity {
	return Quantity{Used: f.Used, Total: f.Total, Remaining: f.Remaining}
}

// UsageSummary is the canonical usage snapshot of one account.
// Balance is in fen, voice in minutes and every flow figure in KB.
type UsageSummary struct {
	CreatedAt   time.Time  `json:"createTime" yaml:"create_time"`
	Phone       string     `json:"phonenum" yaml:"phonenum"`
	FlowItems   []FlowItem `json:"flowItems,omitempty" yaml:"flow_items,omitempty"`
	Voice       Quantity   `json:"voice" yaml:"voice"`
	Flow        Quantity   `json:"flow" yaml:"flow"`
	CommonFlow  Quantity   `json:"commonFlow" yaml:"common_flow"`
	SpecialFlow Quantity   `json:"specialFlow" yaml:"special_flow"`
	Balance     int64      `json:"balance" yaml:"balance"`
}

// BalanceYuan returns the balance in major currency units.
func (u *UsageSummary) BalanceYuan() float64 {
	return float64(u.Balance) / 100
}
