package system

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats is a point-in-time memory snapshot for the capture report.
type HostStats struct {
	CPUs        int
	TotalMemory uint64
	UsedPercent float64
	ProcessRSS  uint64
}

// ReadHostStats collects what it can; fields it could not read stay zero.
func ReadHostStats() (HostStats, error) {
	st := HostStats{CPUs: runtime.NumCPU()}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return st, fmt.Errorf("read virtual memory: %w", err)
	}
	st.TotalMemory = vm.Total
	st.UsedPercent = vm.UsedPercent

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return st, fmt.Errorf("open self process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return st, fmt.Errorf("read process memory: %w", err)
	}
	st.ProcessRSS = info.RSS
	return st, nil
}

func (s HostStats) String() string {
	return fmt.Sprintf("CPUs: %d | RAM: %s (%.1f%% used) | RSS: %s",
		s.CPUs, FormatBytes(s.TotalMemory), s.UsedPercent, FormatBytes(s.ProcessRSS))
}

func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
