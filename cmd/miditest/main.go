// miditest is a scratch tool for checking the MIDI backend without a file.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-midiplay/midi"
	"go-midiplay/midifile"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "note":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		testNotes(port)
	case "poll":
		pollPorts()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list         - List all MIDI ports")
	fmt.Println("  note [port]  - Play a C major arpeggio on an output")
	fmt.Println("  poll         - Poll for output port changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range gomidi.GetInPorts() {
		fmt.Printf("  %d: %s\n", i, p.String())
	}

	fmt.Println("\n=== MIDI Output Ports ===")
	fmt.Printf("(waiting up to %v...)\n", midi.ScanTimeout)
	names, err := midi.ListOutPorts(midi.ScanTimeout)
	if err != nil {
		fmt.Printf("\n%v\n", err)
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
}

func testNotes(port string) {
	sink, err := midi.OpenPort(port)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer sink.Close()

	fmt.Printf("Using output: %s\n", sink.Name())
	for _, key := range []uint8{60, 64, 67, 72} {
		if err := sink.Send(midifile.NewChannelEvent(0, midifile.NoteOn, key, 100)); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		time.Sleep(250 * time.Millisecond)
		sink.Send(midifile.NewChannelEvent(0, midifile.NoteOff, key, 0))
	}
	fmt.Printf("Done! %d messages sent\n", sink.Sent())
}

func pollPorts() {
	fmt.Println("Polling for output port changes every 2 seconds... Ctrl+C to exit.")

	last := ""
	for {
		names, err := midi.ListOutPorts(midi.ScanTimeout)
		if err != nil {
			fmt.Printf("[%s] %v\n", time.Now().Format("15:04:05"), err)
		} else if current := strings.Join(names, ","); current != last {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Outputs: %v\n", names)
			last = current
		}
		time.Sleep(2 * time.Second)
	}
}
