package middleware

import (
	"context"

	"github.com/quantfwk/tradefwk/pkg/common"
)

//goland:noinspection ALL
var (
	NoopDataHdl         = func(context.Context, common.Bar) {}
	NoopDecisionHdl     = func(context.Context, common.Decision) {}
	NoopSizingHdl       = func(context.Context, common.Sizing) {}
	NoopOrderHdl        = func(context.Context, common.Order) {}
	NoopExecutionHdl    = func(context.Context, common.Execution) {}
	NoopPendingOrderHdl = func(context.Context, common.PendingOrder) {}
)
