package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

func testCfg() config.PositionConfig {
	return config.PositionConfig{
		SizeDollars:     1000,
		ProfitTargetPct: 0.15,
		StopLossPct:     -0.10,
		TimeExitDays:    90,
	}
}

func TestApplyUpdate_StopLossTakesPrecedence(t *testing.T) {
	now := time.Now().UTC()
	p := domain.PaperPosition{
		EntryDate:   now.Add(-100 * 24 * time.Hour), // also past time exit
		EntryPrice:  100,
		SizeDollars: 1000,
	}

	updated := applyUpdate(p, 89, now, testCfg()) // -11%, below stop and past time exit

	assert.Equal(t, domain.PositionClosed, updated.Status)
	assert.Equal(t, domain.ExitStopLoss, updated.ExitReason)
}

func TestApplyUpdate_TimeExitWhenNoStopOrTarget(t *testing.T) {
	now := time.Now().UTC()
	p := domain.PaperPosition{
		EntryDate:   now.Add(-91 * 24 * time.Hour),
		EntryPrice:  100,
		SizeDollars: 1000,
	}

	updated := applyUpdate(p, 102, now, testCfg()) // +2%, above time exit days

	assert.Equal(t, domain.PositionClosed, updated.Status)
	assert.Equal(t, domain.ExitTimeExit, updated.ExitReason)
}

func TestApplyUpdate_ProfitTarget(t *testing.T) {
	now := time.Now().UTC()
	p := domain.PaperPosition{
		EntryDate:   now.Add(-10 * 24 * time.Hour),
		EntryPrice:  100,
		SizeDollars: 1000,
	}

	updated := applyUpdate(p, 116, now, testCfg()) // +16%

	assert.Equal(t, domain.PositionClosed, updated.Status)
	assert.Equal(t, domain.ExitProfitTarget, updated.ExitReason)
	assert.InDelta(t, 160.0, updated.ReturnDollar, 0.01)
}

func TestApplyUpdate_StaysOpenWhenNoRuleFires(t *testing.T) {
	now := time.Now().UTC()
	p := domain.PaperPosition{
		EntryDate:   now.Add(-5 * 24 * time.Hour),
		EntryPrice:  100,
		SizeDollars: 1000,
		Status:      domain.PositionOpen,
	}

	updated := applyUpdate(p, 103, now, testCfg())

	assert.Equal(t, domain.PositionOpen, updated.Status)
	assert.Equal(t, domain.ExitNone, updated.ExitReason)
	assert.Nil(t, updated.ExitDate)
}
