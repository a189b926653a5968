package common

import (
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type Account struct {
	Currency string      `json:"currency"`
	Balance  fixed.Point `json:"balance"`
	Equity   fixed.Point `json:"equity"`
}
