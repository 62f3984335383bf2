package scheduler

import (
	"fmt"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"
)

// DayCounts 某天的排班人数统计。AM/PM 已包含外店支援（Guest）的人数
type DayCounts struct {
	AM         int `json:"amCount"`
	PM         int `json:"pmCount"`
	ExternalAM int `json:"externalCoverageAmCount"`
	ExternalPM int `json:"externalCoveragePmCount"`
	GuestAM    int `json:"guestAmCount"`
	GuestPM    int `json:"guestPmCount"`
}

// Staffed 当天所有在岗的人数
func (c DayCounts) Staffed() int {
	return c.AM + c.PM + c.ExternalAM + c.ExternalPM
}

func (c *DayCounts) add(cell Cell) {
	// 只有上班的格子才计数
	if cell.Availability != domain.AvailabilityWork {
		return
	}

	switch cell.EffectiveShift {
	case domain.ShiftNone:
	case domain.ShiftMorning:
		c.AM++
		if cell.Guest {
			c.GuestAM++
		}
	case domain.ShiftEvening:
		c.PM++
		if cell.Guest {
			c.GuestPM++
		}
	case domain.ShiftCoverExtAM:
		c.ExternalAM++
	case domain.ShiftCoverExtPM:
		c.ExternalPM++
	default:
		// 仓储层读取时已经校验过班次类型，走到这里说明新增了班次却没有更新计数
		panic(fmt.Sprintf("scheduler: 未处理的班次类型 %q", cell.EffectiveShift))
	}
}

// CountDay 是唯一的计数口径，周表、月表、校验和建议都必须通过它计数
func CountDay(cells []Cell) DayCounts {
	var c DayCounts
	for _, cell := range cells {
		c.add(cell)
	}
	return c
}
