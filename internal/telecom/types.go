package telecom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number is a provider numeric field. The gateway sends numbers either as
// JSON numbers or as numeric strings; both decode here.
type Number struct {
	raw   string
	value float64
	valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}

	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	*n = Number{raw: s, value: v, valid: err == nil}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return json.Marshal(n.raw)
	}
	return []byte(strconv.FormatFloat(n.value, 'f', -1, 64)), nil
}

// Float64 returns the value and whether it was numeric.
func (n *Number) Float64() (float64, bool) {
	if n == nil || !n.valid {
		return 0, false
	}
	return n.value, true
}

// Raw returns the text the provider sent.
func (n *Number) Raw() string {
	if n == nil {
		return ""
	}
	return n.raw
}

// Num builds a valid Number, mostly for tests and fakes.
func Num(v float64) *Number {
	return &Number{raw: strconv.FormatFloat(v, 'f', -1, 64), value: v, valid: true}
}

// envelope is the response wrapper shared by every gateway endpoint.
type envelope struct {
	HeaderInfos struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	} `json:"headerInfos"`
	ResponseData *struct {
		ResultCode string          `json:"resultCode"`
		ResultDesc string          `json:"resultDesc"`
		Data       json.RawMessage `json:"data"`
	} `json:"responseData"`
}

// LoginResult is the outcome of a login attempt that reached the provider.
type LoginResult struct {
	Payload   json.RawMessage
	FailCount *int
	Message   string
	Success   bool
}

type loginData struct {
	LoginSuccessResult json.RawMessage `json:"loginSuccessResult"`
	LoginFailResult    *struct {
		LoginFailTime *Number `json:"loginFailTime"`
	} `json:"loginFailResult"`
}

// ImportantData is the usage payload of the qryImportantData endpoint.
type ImportantData struct {
	BalanceInfo *BalanceInfo `json:"balanceInfo"`
	VoiceInfo   *VoiceInfo   `json:"voiceInfo"`
	FlowInfo    *FlowInfo    `json:"flowInfo"`
}

// BalanceInfo holds the account balance in yuan.
type BalanceInfo struct {
	IndexBalanceDataInfo *BalanceData `json:"indexBalanceDataInfo"`
}

// BalanceData is the balance figure itself.
type BalanceData struct {
	Balance *Number `json:"balance"`
}

// VoiceInfo holds voice minutes.
type VoiceInfo struct {
	VoiceDataInfo *VoiceData `json:"voiceDataInfo"`
}

// VoiceData is a used/balance/total triple in minutes.
type VoiceData struct {
	Used    *Number `json:"used"`
	Balance *Number `json:"balance"`
	Total   *Number `json:"total"`
}

// FlowAmount is a used/balance pair in KB.
type FlowAmount struct {
	Used    *Number `json:"used"`
	Balance *Number `json:"balance"`
}

// FlowInfo holds the flow figures in KB.
type FlowInfo struct {
	TotalAmount   *FlowAmount    `json:"totalAmount"`
	CommonFlow    *FlowAmount    `json:"commonFlow"`
	SpecialAmount *FlowAmount    `json:"specialAmount"`
	FlowList      []FlowListItem `json:"flowList"`
}

// FlowListItem is a named flow allotment in KB.
type FlowListItem struct {
	Title   string  `json:"title"`
	Used    *Number `json:"used"`
	Balance *Number `json:"balance"`
}

// FluxPackage is the payload of the userFluxPackage endpoint.
type FluxPackage struct {
	ProductOFFRatable struct {
		RatableResourcePackages []ResourcePackage `json:"ratableResourcePackages"`
	} `json:"productOFFRatable"`
}

// ResourcePackage groups package products under a category title.
type ResourcePackage struct {
	Title        string        `json:"title"`
	ProductInfos []ProductInfo `json:"productInfos"`
}

// ProductInfo describes one flow package product.
type ProductInfo struct {
	Title         string `json:"title"`
	InfiniteTitle string `json:"infiniteTitle"`
	InfiniteValue string `json:"infiniteValue"`
	InfiniteUnit  string `json:"infiniteUnit"`
	LeftTitle     string `json:"leftTitle"`
	LeftHighlight string `json:"leftHighlight"`
	RightCommon   string `json:"rightCommon"`
}

// Category icons used in the package listing.
const (
	iconDomestic = "🇨🇳"
	iconSpecial  = "📺"
	iconOther    = "🌎"
	iconEntry    = "🔹"
)

// Text renders the package payload as the line-oriented listing consumed by
// flux.Parse.
func (p *FluxPackage) Text() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	for _, pkg := range p.ProductOFFRatable.RatableResourcePackages {
		icon := iconOther
		switch {
		case strings.Contains(pkg.Title, "国内"):
			icon = iconDomestic
		case strings.Contains(pkg.Title, "专用"):
			icon = iconSpecial
		}
		fmt.Fprintf(&b, "\n%s%s\n", icon, pkg.Title)

		for _, product := range pkg.ProductInfos {
			if product.InfiniteTitle != "" {
				fmt.Fprintf(&b, "%s[%s]%s%s%s/无限\n",
					iconEntry, product.Title, product.InfiniteTitle, product.InfiniteValue, product.InfiniteUnit)
				continue
			}
			fmt.Fprintf(&b, "%s[%s]%s%s%s\n",
				iconEntry, product.Title, product.LeftTitle, product.LeftHighlight, product.RightCommon)
		}
	}
	return b.String()
}
