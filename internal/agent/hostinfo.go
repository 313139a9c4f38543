package agent

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// InfoFunc produces the reply to an INFO directive.
type InfoFunc func(ctx context.Context) (string, error)

// HostInfo reports basic facts about the machine the agent runs on.
// Facts that cannot be read are omitted rather than failing the reply.
func HostInfo(ctx context.Context) (string, error) {
	var b strings.Builder

	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("host info: %w", err)
	}
	fmt.Fprintf(&b, "hostname=%s os=%s platform=%s %s arch=%s uptime=%s",
		hi.Hostname, hi.OS, hi.Platform, hi.PlatformVersion, runtime.GOARCH,
		(time.Duration(hi.Uptime) * time.Second).String())

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		fmt.Fprintf(&b, " cpus=%d", n)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fmt.Fprintf(&b, " mem_total=%dMiB mem_used=%.1f%%", vm.Total/(1<<20), vm.UsedPercent)
	}
	return b.String(), nil
}
