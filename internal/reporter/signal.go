package reporter

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// FallbackRSSI is reported when the platform signal cannot be read.
const FallbackRSSI = -70

// ErrNoSignal is returned when no wireless interface reports a level.
var ErrNoSignal = errors.New("reporter: no wireless signal found")

const (
	procWirelessPath = "/proc/net/wireless"
	netshTimeout     = 5 * time.Second
)

// SignalSource reads the current RSSI in dBm.
type SignalSource interface {
	RSSI(ctx context.Context) (int, error)
}

// SignalFunc adapts a function to SignalSource.
type SignalFunc func(ctx context.Context) (int, error)

// RSSI calls f(ctx).
func (f SignalFunc) RSSI(ctx context.Context) (int, error) { return f(ctx) }

// FixedSignal always reports the same value.
type FixedSignal int

// RSSI returns s.
func (s FixedSignal) RSSI(context.Context) (int, error) { return int(s), nil }

// SystemSignal reads the RSSI of the host's wireless interface: netsh on
// Windows, /proc/net/wireless on Linux.
type SystemSignal struct {
	// ProcPath overrides /proc/net/wireless. Used by tests.
	ProcPath string
}

// RSSI implements SignalSource.
func (s SystemSignal) RSSI(ctx context.Context) (int, error) {
	if runtime.GOOS == "windows" {
		ctx, cancel := context.WithTimeout(ctx, netshTimeout)
		defer cancel()

		out, err := exec.CommandContext(ctx, "netsh", "wlan", "show", "interfaces").Output()
		if err != nil {
			return 0, err
		}
		if rssi, ok := ParseNetshSignal(string(out)); ok {
			return rssi, nil
		}
		return 0, ErrNoSignal
	}

	path := s.ProcPath
	if path == "" {
		path = procWirelessPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if rssi, ok := ParseProcWireless(string(data)); ok {
		return rssi, nil
	}
	return 0, ErrNoSignal
}

var netshSignal = regexp.MustCompile(`Signal\s+:\s*(\d+)%`)

// ParseNetshSignal extracts "Signal : NN%" from `netsh wlan show interfaces`
// output and converts it to dBm as NN/2 - 100, truncated toward zero.
func ParseNetshSignal(output string) (int, bool) {
	m := netshSignal.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return int(float64(pct)/2 - 100), true
}

// ParseProcWireless returns the signal level of the first interface listed
// in /proc/net/wireless.
//
//	Inter-| sta-|   Quality        |   Discarded packets
//	 face | tus | link level noise |  nwid  crypt   frag
//	wlan0: 0000   54.  -56.  -256        0      0      0
func ParseProcWireless(content string) (int, bool) {
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		iface, rest, found := strings.Cut(sc.Text(), ":")
		if !found || strings.ContainsAny(iface, "|") {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			continue
		}
		return int(level), true
	}
	return 0, false
}
