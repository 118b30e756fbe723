package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-midiplay/config"
	"go-midiplay/debug"
	"go-midiplay/midi"
	"go-midiplay/midifile"
	"go-midiplay/player"
	"go-midiplay/source"
	"go-midiplay/theme"
	"go-midiplay/trace"
	"go-midiplay/tui"
)

var Version = "dev"

// Command-line overrides; zero values defer to config.json.
var flags struct {
	port    string
	tui     bool
	quiet   bool
	timeout time.Duration
	log     string
	palette string
}

var rootCmd = &cobra.Command{
	Use:   "midiplay [file|url]",
	Short: "Play a Standard MIDI File through a MIDI output port",
	Long: `midiplay decodes a Standard MIDI File (format 0 or 1) from disk or an
http(s) URL and plays it in real time on a MIDI output port, following every
tempo change in the file.`,
	Version:       Version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlay,
}

func init() {
	rootCmd.Flags().StringVarP(&flags.port, "port", "p", "",
		"Output port name, name substring or index (see 'midiplay ports')")
	rootCmd.Flags().BoolVar(&flags.tui, "tui", false,
		"Show a live playback view instead of the event trace")
	rootCmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false,
		"Print nothing while playing")
	rootCmd.Flags().DurationVar(&flags.timeout, "timeout", 0,
		"Timeout for fetching a URL (default from config, 30s)")
	rootCmd.PersistentFlags().StringVarP(&flags.log, "log", "l", "",
		"Write debug logs to the specified file")
	rootCmd.Flags().StringVar(&flags.palette, "palette", "",
		"GIMP palette (.gpl) used for colors")

	rootCmd.AddCommand(portsCmd, dumpCmd, tempoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "midiplay:", err)
		os.Exit(1)
	}
}

// loadConfig reads config.json and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Output.PortName = flags.port
	}
	if f.Changed("timeout") {
		cfg.Fetch.SetTimeout(flags.timeout)
	}
	if f.Changed("palette") {
		cfg.UI.Palette = flags.palette
	}
	switch {
	case flags.quiet:
		cfg.UI.Mode = config.UIQuiet
	case flags.tui:
		cfg.UI.Mode = config.UITUI
	}
	if flags.log != "" {
		cfg.Debug = true
	}
	return cfg, nil
}

func startDebug(cfg *config.Config) error {
	if !cfg.Debug {
		return nil
	}
	if flags.log != "" {
		return debug.EnableAt(flags.log)
	}
	return debug.Enable()
}

// loadFile reads and decodes the SMF at location.
func loadFile(ctx context.Context, location string, cfg *config.Config) (*midifile.File, error) {
	data, err := source.Load(ctx, location, source.Options{
		Timeout:  cfg.Fetch.Timeout(),
		MaxBytes: cfg.Fetch.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	f, err := midifile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	debug.Log("load", "%s: format %d, %d tracks, division %d", location, f.Header.Format, len(f.Tracks), f.Header.Division)
	return f, nil
}

// openSink opens the configured output. Without a configured port a
// missing or hung MIDI backend falls back to a silent sink; a configured
// port must exist.
func openSink(name string, console *log.Logger) (player.Sink, string, func(), error) {
	port, err := midi.OpenPort(name)
	if err == nil {
		return port, port.Name(), func() {
			if err := port.Close(); err != nil {
				debug.Log("port", "close: %v", err)
			}
		}, nil
	}
	if name != "" {
		return nil, "", nil, err
	}
	console.Warn("no MIDI output, playing silently", "err", err)
	return player.Discard, "", func() {}, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := startDebug(cfg); err != nil {
		return err
	}
	defer debug.Disable()

	console := log.NewWithOptions(os.Stderr, log.Options{Prefix: "midiplay"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := loadFile(ctx, args[0], cfg)
	if err != nil {
		return err
	}

	th, err := theme.Load(cfg.UI.Palette)
	if err != nil {
		return err
	}

	sink, portName, closeSink, err := openSink(cfg.Output.PortName, console)
	if err != nil {
		return err
	}
	defer closeSink()

	opts := []player.Option{
		player.WithLogger(debug.Logger("dispatch")),
		player.WithObserver(player.ObserverFunc(logLag)),
	}

	name := filepath.Base(args[0])
	switch cfg.UI.Mode {
	case config.UITUI:
		return playTUI(ctx, f, name, portName, sink, th, opts)
	case config.UIQuiet:
		p := player.ForFile(f, sink, opts...)
		return finish(p.Play(ctx))
	default:
		printer := trace.New(os.Stdout, th)
		p := player.ForFile(f, sink, append(opts, player.WithObserver(printer))...)
		printer.Header(name, f, p.Tempo())
		err := p.Play(ctx)
		printer.Summary(p.Stats(), err)
		return finish(err)
	}
}

func playTUI(ctx context.Context, f *midifile.File, name, portName string, sink player.Sink, th *theme.Theme, opts []player.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := tui.NewFeed(256)
	p := player.ForFile(f, sink, append(opts, player.WithObserver(feed))...)

	tracks := make([]string, len(f.Tracks))
	for i := range f.Tracks {
		tracks[i] = f.TrackName(i)
	}
	info := tui.Info{
		Name:   name,
		Port:   portName,
		Tracks: tracks,
		PPQ:    p.TicksPerQuarter(),
		Tempo:  p.Tempo(),
		Length: p.Tempo().Duration(p.Events(), p.TicksPerQuarter()),
		Total:  len(p.Events()),
	}
	prog := tea.NewProgram(tui.NewModel(info, feed, th, cancel), tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := p.Play(ctx)
		done <- err
		prog.Send(tui.DoneMsg{Err: err})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return err
	}
	cancel()
	return finish(<-done)
}

// finish treats a user stop as a normal exit.
func finish(err error) error {
	if errors.Is(err, player.ErrCancelled) {
		debug.Log("player", "stopped: %v", err)
		return nil
	}
	return err
}

func logLag(d player.Dispatch) {
	if d.Lag() > 5*time.Millisecond {
		debug.LogEvery(10, "lag", "event %d tick %d late by %v", d.Index, d.Event.Ticks, d.Lag())
	}
}
