package memutils

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics summarizes the backing buffers owned by a suballocator and the bytes carved
// out of them
type Statistics struct {
	BufferCount     int
	AllocationCount int
	BufferBytes     int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.BufferCount = 0
	s.AllocationCount = 0
	s.BufferBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BufferCount += other.BufferCount
	s.AllocationCount += other.AllocationCount
	s.BufferBytes += other.BufferBytes
	s.AllocationBytes += other.AllocationBytes
}

func (s *Statistics) AddBuffer(size int) {
	s.BufferCount++
	s.BufferBytes += size
}

func (s *Statistics) PrintJson(json *jwriter.ObjectState) {
	json.Name("BufferCount").Int(s.BufferCount)
	json.Name("AllocationCount").Int(s.AllocationCount)
	json.Name("BufferBytes").Int(s.BufferBytes)
	json.Name("AllocationBytes").Int(s.AllocationBytes)
}

type DetailedStatistics struct {
	Statistics
	InFlightBufferCount int
	FreeBufferCount     int
	AllocationSizeMin   int
	AllocationSizeMax   int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.InFlightBufferCount = 0
	s.FreeBufferCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.InFlightBufferCount += other.InFlightBufferCount
	s.FreeBufferCount += other.FreeBufferCount

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

func (s *DetailedStatistics) PrintJson(json *jwriter.ObjectState) {
	s.Statistics.PrintJson(json)
	json.Name("InFlightBuffers").Int(s.InFlightBufferCount)
	json.Name("FreeBuffers").Int(s.FreeBufferCount)
	if s.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(s.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(s.AllocationSizeMax)
	}
}
