package models

// PackageKind distinguishes metered packages from unlimited ones.
type PackageKind string

const (
	PackageMetered   PackageKind = "metered"
	PackageUnlimited PackageKind = "unlimited"
)

// PackageEntry is one flow package parsed from the provider's package text.
// Values keep the units they were written in; Percent and Remaining are derived.
type PackageEntry struct {
	Category   string      `json:"category,omitempty"`
	Name       string      `json:"name"`
	Kind       PackageKind `json:"kind"`
	UsedUnit   string      `json:"usedUnit,omitempty"`
	TotalUnit  string      `json:"totalUnit,omitempty"`
	Label      string      `json:"label,omitempty"`
	UsedValue  float64     `json:"usedValue,omitempty"`
	TotalValue float64     `json:"totalValue,omitempty"`
	Percent    float64     `json:"percent,omitempty"`
	Remaining  float64     `json:"remaining,omitempty"`
}
