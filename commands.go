package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"go-midiplay/config"
	"go-midiplay/debug"
	"go-midiplay/midi"
	"go-midiplay/midifile"
	"go-midiplay/tempo"
)

var (
	dumpLimit  int
	selectPort string
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("select") {
			return saveOutputPort(cmd.OutOrStdout(), selectPort)
		}
		names, err := midi.ListOutPorts(midi.ScanTimeout)
		if err != nil {
			if errors.Is(err, midi.ErrScanTimeout) {
				return fmt.Errorf("%w (CoreMIDI may be hung: sudo killall coreaudiod midiserver)", err)
			}
			return err
		}
		writePorts(cmd.OutOrStdout(), names)
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [file|url]",
	Short: "Print the decoded header, tracks and merged events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := startDebug(cfg); err != nil {
			return err
		}
		defer debug.Disable()
		f, err := loadFile(cmd.Context(), args[0], cfg)
		if err != nil {
			return err
		}
		writeDump(cmd.OutOrStdout(), f, dumpLimit)
		return nil
	},
}

var tempoCmd = &cobra.Command{
	Use:   "tempo [file|url]",
	Short: "Print the tempo map and playing time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := startDebug(cfg); err != nil {
			return err
		}
		defer debug.Disable()
		f, err := loadFile(cmd.Context(), args[0], cfg)
		if err != nil {
			return err
		}
		writeTempo(cmd.OutOrStdout(), f)
		return nil
	},
}

func init() {
	dumpCmd.Flags().IntVarP(&dumpLimit, "limit", "n", 0, "Print at most n events (0 for all)")
	portsCmd.Flags().StringVarP(&selectPort, "select", "s", "",
		"Save a port name, substring or index as the default output (empty clears it)")
}

// saveOutputPort stores name as output.portName in config.json.
func saveOutputPort(w io.Writer, name string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Output.PortName = name
	if err := cfg.Save(); err != nil {
		return err
	}
	path, _ := config.ConfigPath()
	if name == "" {
		fmt.Fprintf(w, "cleared default output in %s\n", path)
	} else {
		fmt.Fprintf(w, "default output %q saved to %s\n", name, path)
	}
	return nil
}

func newTable(w io.Writer, headers ...string) *table.Table {
	r := lipgloss.NewRenderer(w)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers(headers...)
}

func writePorts(w io.Writer, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "no MIDI output ports")
		return
	}
	t := newTable(w, "#", "output port")
	for i, n := range names {
		t.Row(strconv.Itoa(i), n)
	}
	fmt.Fprintln(w, t.Render())
}

func writeDump(w io.Writer, f *midifile.File, limit int) {
	events := f.Events()
	m := tempo.Build(events)
	tpq := f.TicksPerQuarter()

	fmt.Fprintf(w, "format %d, %d of %d tracks, %d ticks per quarter\n",
		f.Header.Format, len(f.Tracks), f.Header.Tracks, tpq)
	for i, tr := range f.Tracks {
		name := f.TrackName(i)
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "track %d: %s (%d events)\n", i, name, len(tr))
	}
	fmt.Fprintln(w)

	for i, ev := range events {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "... %d more\n", len(events)-limit)
			break
		}
		at := m.Elapsed(int64(ev.Ticks), tpq)
		fmt.Fprintf(w, "%9.3fs %8d  t%-2d %-10s %s\n",
			at.Seconds(), ev.Ticks, ev.Track, midi.Label(ev), midi.Describe(ev))
	}
}

func writeTempo(w io.Writer, f *midifile.File) {
	events := f.Events()
	m := tempo.Build(events)
	tpq := f.TicksPerQuarter()

	t := newTable(w, "tick", "time", "µs/quarter", "bpm")
	for _, c := range m {
		t.Row(
			strconv.FormatUint(c.Tick, 10),
			m.Elapsed(int64(c.Tick), tpq).Round(time.Millisecond).String(),
			strconv.FormatUint(uint64(c.MicrosPerQuarter), 10),
			fmt.Sprintf("%.2f", c.BPM()),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "length %s\n", m.Duration(events, tpq).Round(time.Millisecond))
}
