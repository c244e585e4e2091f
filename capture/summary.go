package capture

import "dccstation/core"

// Summary describes one batch of half periods
type Summary struct {
	Count    int
	Min      uint32
	Max      uint32
	Overruns uint32
}

// Summarize computes count, min and max of durations
func Summarize(durations []uint32) Summary {
	s := Summary{Count: len(durations)}
	for i, d := range durations {
		if i == 0 || d < s.Min {
			s.Min = d
		}
		if d > s.Max {
			s.Max = d
		}
	}
	return s
}

func (s Summary) String() string {
	out := "[capture] n=" + core.Itoa(s.Count) +
		" min=" + core.Itoa(int(s.Min)) + "us" +
		" max=" + core.Itoa(int(s.Max)) + "us"
	if s.Overruns > 0 {
		out += " overruns=" + core.Itoa(int(s.Overruns))
	}
	return out
}
