package model

// Plan 订阅档位，决定提醒预算和可选的打卡间隔
type Plan string

const (
	PlanFree Plan = "free"
	PlanPlus Plan = "plus"
	PlanPro  Plan = "pro"
)

// PlanLimits 档位限制
type PlanLimits struct {
	MaxReminders int
	IntervalDays []int
}

var planLimits = map[Plan]PlanLimits{
	PlanFree: {MaxReminders: 3, IntervalDays: []int{30}},
	PlanPlus: {MaxReminders: 5, IntervalDays: []int{30, 60}},
	PlanPro:  {MaxReminders: 7, IntervalDays: []int{30, 60, 90}},
}

// LimitsFor 返回档位限制，未知档位按 free 处理
func LimitsFor(p Plan) PlanLimits {
	if limits, ok := planLimits[p]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

// AllowsInterval 判断档位是否允许指定的打卡间隔
func (l PlanLimits) AllowsInterval(days int) bool {
	for _, d := range l.IntervalDays {
		if d == days {
			return true
		}
	}
	return false
}
