// Package position implements the paper-position loop (spec.md §4.9): a
// simulated $1,000 investment opened per approved eligible signal, tracked
// for validation only — never a real order.
package position

import (
	"time"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

// evaluateExit checks the exit rules in precedence order (first trigger
// wins, matching the teacher's exits.ExitEvaluator shape): stop_loss
// outranks time_exit outranks profit_target, since a capital-preservation
// trigger should never be masked by a later time-based one.
func evaluateExit(p domain.PaperPosition, cfg config.PositionConfig) (domain.ExitReason, bool) {
	if p.ReturnPct <= cfg.StopLossPct {
		return domain.ExitStopLoss, true
	}
	if p.DaysHeld >= cfg.TimeExitDays {
		return domain.ExitTimeExit, true
	}
	if p.ReturnPct >= cfg.ProfitTargetPct {
		return domain.ExitProfitTarget, true
	}
	return domain.ExitNone, false
}

func applyUpdate(p domain.PaperPosition, currentPrice float64, now time.Time, cfg config.PositionConfig) domain.PaperPosition {
	p.CurrentPrice = currentPrice
	p.ReturnPct = (currentPrice - p.EntryPrice) / p.EntryPrice
	p.ReturnDollar = p.ReturnPct * p.SizeDollars
	p.DaysHeld = int(now.Sub(p.EntryDate).Hours() / 24)

	if reason, exit := evaluateExit(p, cfg); exit {
		p.Status = domain.PositionClosed
		p.ExitReason = reason
		exitDate := now
		exitPrice := currentPrice
		p.ExitDate = &exitDate
		p.ExitPrice = &exitPrice
	}
	return p
}
