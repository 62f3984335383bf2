package domain

import "fmt"

// Shift 班次类型，是一个封闭的枚举，新增取值时必须同步修改所有计数与校验的 switch
type Shift string

const (
	ShiftNone       Shift = "NONE"
	ShiftMorning    Shift = "MORNING"
	ShiftEvening    Shift = "EVENING"
	ShiftCoverExtAM Shift = "COVER_EXT_AM" // 外派支援早班，不计入门店早班
	ShiftCoverExtPM Shift = "COVER_EXT_PM" // 外派支援晚班，不计入门店晚班
)

var shifts = []Shift{ShiftNone, ShiftMorning, ShiftEvening, ShiftCoverExtAM, ShiftCoverExtPM}

func (s Shift) Valid() bool {
	for _, v := range shifts {
		if v == s {
			return true
		}
	}
	return false
}

// IsCoverage 是否为外派支援班次
func (s Shift) IsCoverage() bool {
	return s == ShiftCoverExtAM || s == ShiftCoverExtPM
}

func ParseShift(s string) (Shift, error) {
	shift := Shift(s)
	if !shift.Valid() {
		return "", fmt.Errorf("未知的班次类型 %q", s)
	}
	return shift, nil
}

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

func ParseTeam(s string) (Team, error) {
	team := Team(s)
	if !team.Valid() {
		return "", fmt.Errorf("未知的班组 %q", s)
	}
	return team, nil
}

// Availability 员工某天的出勤状态
type Availability string

const (
	AvailabilityLeave  Availability = "LEAVE"
	AvailabilityOff    Availability = "OFF"
	AvailabilityAbsent Availability = "ABSENT"
	AvailabilityWork   Availability = "WORK"
)
