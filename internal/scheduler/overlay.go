package scheduler

import "github.com/sysu-ecnc-dev/boutique-shift/backend/internal/domain"

// EffectiveShift 调班只能改变上哪个班，不能改变当天是否上班
func EffectiveShift(availability domain.Availability, base domain.Shift, override *domain.ShiftOverride) domain.Shift {
	if availability != domain.AvailabilityWork {
		return domain.ShiftNone
	}
	if override != nil && override.IsActive {
		return override.Shift
	}
	return base
}
