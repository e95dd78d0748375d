package xbreaker

// TripPolicyFunc 把函数适配为 TripPolicy。
type TripPolicyFunc func(counts Counts) bool

// ReadyToTrip 调用 f。
func (f TripPolicyFunc) ReadyToTrip(counts Counts) bool { return f(counts) }

// ConsecutiveFailures 连续失败达到该次数后熔断。
//
//	xbreaker.WithTripPolicy(xbreaker.ConsecutiveFailures(5))
type ConsecutiveFailures uint32

// ReadyToTrip 实现 TripPolicy。
func (n ConsecutiveFailures) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= uint32(n)
}

// FailureCount 统计周期内（见 WithInterval）失败总数达到该值后熔断，不要求连续。
type FailureCount uint32

// ReadyToTrip 实现 TripPolicy。
func (n FailureCount) ReadyToTrip(counts Counts) bool {
	return counts.TotalFailures >= uint32(n)
}

// FailureRatio 请求数不少于 MinRequests 且失败率不低于 Ratio 时熔断。
// Ratio 超出 [0, 1] 时按边界处理。
type FailureRatio struct {
	Ratio       float64
	MinRequests uint32
}

// ReadyToTrip 实现 TripPolicy。
func (p FailureRatio) ReadyToTrip(counts Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.MinRequests {
		return false
	}
	ratio := min(max(p.Ratio, 0), 1)
	return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
}

// AnyOf 任一子策略满足即熔断，nil 子策略被跳过，空列表永不熔断。
//
//	xbreaker.AnyOf{
//	    xbreaker.ConsecutiveFailures(5),
//	    xbreaker.FailureRatio{Ratio: 0.5, MinRequests: 20},
//	}
type AnyOf []TripPolicy

// ReadyToTrip 实现 TripPolicy。
func (ps AnyOf) ReadyToTrip(counts Counts) bool {
	for _, p := range ps {
		if p != nil && p.ReadyToTrip(counts) {
			return true
		}
	}
	return false
}

type neverTrip struct{}

func (neverTrip) ReadyToTrip(Counts) bool { return false }

// NeverTrip 返回永不熔断的策略，熔断器只做统计。
func NeverTrip() TripPolicy { return neverTrip{} }
