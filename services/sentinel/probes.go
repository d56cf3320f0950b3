package sentinel

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	linuxproc "github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
	fastping "github.com/tatsushid/go-fastping"
)

// Probe measures one aspect of the node's health.
type Probe interface {
	Name() string
	Run(ctx context.Context) (string, error)
}

// CPUProbe reports how busy the CPUs were since the previous run, or since
// boot on the first run.
type CPUProbe struct {
	Path string

	mu   sync.Mutex
	last linuxproc.CPUStat
}

func (p *CPUProbe) Name() string { return "CPU" }

func cpuTimes(s linuxproc.CPUStat) (idle, total uint64) {
	idle = s.Idle + s.IOWait
	total = idle + s.User + s.Nice + s.System + s.IRQ + s.SoftIRQ + s.Steal
	return idle, total
}

func (p *CPUProbe) Run(ctx context.Context) (string, error) {
	path := p.Path
	if path == "" {
		path = "/proc/stat"
	}
	stat, err := linuxproc.ReadStat(path)
	if err != nil {
		return "", errors.Wrap(err, "reading cpu stats")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	idle, total := cpuTimes(stat.CPUStatAll)
	lastIdle, lastTotal := cpuTimes(p.last)
	p.last = stat.CPUStatAll
	if total <= lastTotal {
		return "0.00", nil
	}
	busy := 1 - float64(idle-lastIdle)/float64(total-lastTotal)
	return fmt.Sprintf("%.2f", busy*100), nil
}

// MemoryProbe reports the percentage of memory available.
type MemoryProbe struct {
	Path string
}

func (p *MemoryProbe) Name() string { return "Memory" }

func (p *MemoryProbe) Run(ctx context.Context) (string, error) {
	path := p.Path
	if path == "" {
		path = "/proc/meminfo"
	}
	info, err := linuxproc.ReadMemInfo(path)
	if err != nil {
		return "", errors.Wrap(err, "reading memory info")
	}
	if info.MemTotal == 0 {
		return "", errors.New("total memory unknown")
	}
	return fmt.Sprintf("%.1f", float64(info.MemAvailable)*100/float64(info.MemTotal)), nil
}

// LocalIPProbe reports the address of the interface routing outbound
// traffic. No packet is sent.
type LocalIPProbe struct{}

func (p *LocalIPProbe) Name() string { return "Local IP address" }

func (p *LocalIPProbe) Run(ctx context.Context) (string, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1", nil
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String(), nil
	}
	return "127.0.0.1", nil
}

// PingFunc returns the round trip time to host.
type PingFunc func(host string, timeout time.Duration) (time.Duration, error)

// PingProbe pings each host once. It fails only when no host answers.
type PingProbe struct {
	Hosts   []string
	Timeout time.Duration
	Ping    PingFunc
}

func (p *PingProbe) Name() string { return "Ping" }

func (p *PingProbe) Run(ctx context.Context) (string, error) {
	ping := p.Ping
	if ping == nil {
		ping = ICMPPing
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = time.Second
	}
	var results []string
	reachable := 0
	for _, host := range p.Hosts {
		rtt, err := ping(host, timeout)
		if err != nil {
			results = append(results, host+": unreachable")
			continue
		}
		reachable++
		results = append(results, fmt.Sprintf("%s: %s", host, rtt.Round(time.Millisecond)))
	}
	summary := strings.Join(results, ", ")
	if reachable == 0 && len(p.Hosts) > 0 {
		return summary, errors.Errorf("no host answered: %s", summary)
	}
	return summary, nil
}

// ICMPPing sends a single ICMP echo to host. It needs raw socket
// privileges.
func ICMPPing(host string, timeout time.Duration) (time.Duration, error) {
	addr, err := net.ResolveIPAddr("ip4:icmp", host)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving %s", host)
	}
	p := fastping.NewPinger()
	p.AddIPAddr(addr)
	p.MaxRTT = timeout

	var rtt time.Duration
	received := false
	p.OnRecv = func(_ *net.IPAddr, d time.Duration) {
		rtt = d
		received = true
	}
	if err := p.Run(); err != nil {
		return 0, errors.Wrapf(err, "pinging %s", host)
	}
	if !received {
		return 0, errors.Errorf("%s did not answer", host)
	}
	return rtt, nil
}

// InternetChecker decides whether the internet is reachable by sending a
// HEAD request to URL. Any response counts.
type InternetChecker struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func (c *InternetChecker) Up(ctx context.Context) bool {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// InternetProbe checks internet access and records every change of state,
// raising an alert for each.
type InternetProbe struct {
	Checker *InternetChecker
	Monitor *InternetMonitor
}

func (p *InternetProbe) Name() string { return "Internet access" }

func (p *InternetProbe) Run(ctx context.Context) (string, error) {
	up := p.Checker.Up(ctx)
	if err := p.Monitor.Observe(ctx, up); err != nil {
		return "", err
	}
	if !up {
		return "", errors.New("No internet access")
	}
	return "OK", nil
}
