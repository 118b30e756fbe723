package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ScanTimeout bounds a port scan. CoreMIDI can hang on enumeration.
const ScanTimeout = 3 * time.Second

var (
	ErrScanTimeout = errors.New("midi: port scan timed out")
	ErrNoPort      = errors.New("midi: no matching output port")
)

// OutPorts returns the available output ports, giving up after timeout.
func OutPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, ErrScanTimeout
	}
}

// ListOutPorts returns the names of the available output ports.
func ListOutPorts(timeout time.Duration) ([]string, error) {
	outs, err := OutPorts(timeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(outs))
	for _, p := range outs {
		names = append(names, p.String())
	}
	return names, nil
}

// FindOutPort picks a port by index ("0", "1", ...) or by case-insensitive
// name substring. An empty name picks the first port.
func FindOutPort(name string, timeout time.Duration) (drivers.Out, error) {
	outs, err := OutPorts(timeout)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, ErrNoPort
	}
	if name == "" {
		return outs[0], nil
	}
	if idx, err := strconv.Atoi(name); err == nil {
		if idx < 0 || idx >= len(outs) {
			return nil, fmt.Errorf("%w: index %d of %d", ErrNoPort, idx, len(outs))
		}
		return outs[idx], nil
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	if i := matchName(names, name); i >= 0 {
		return outs[i], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

// matchName prefers an exact name over a substring match; -1 if none.
func matchName(names []string, name string) int {
	want := strings.ToLower(name)
	for i, n := range names {
		if strings.ToLower(n) == want {
			return i
		}
	}
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}
