package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/k0kubun/pp"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/logging"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/x11"
)

func runSurfaces(args []string) int {
	fs := flag.NewFlagSet("surfaces", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	pretty := fs.Bool("pretty", false, "Pretty-print full surface records")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xwbridge surfaces [--pretty|--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List surfaces known to the running daemon.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	surfaces, err := newClient().ListSurfaces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	switch {
	case *asJSON:
		return printJSON(os.Stdout, surfaces)
	case *pretty:
		pp.ColoringEnabled = logging.IsTerminal(os.Stdout)
		pp.Fprintln(os.Stdout, surfaces)
		return 0
	}

	if len(surfaces) == 0 {
		fmt.Println("no surfaces")
		return 0
	}
	printSurfaceTable(os.Stdout, surfaces)
	return 0
}

func printSurfaceTable(w io.Writer, surfaces []compositor.SurfaceSnapshot) {
	fmt.Fprintf(w, "%-8s %-9s %-20s %-10s %-8s %s\n", "SURFACE", "ROLE", "STATE", "WINDOW", "PARENT", "TITLE")
	for _, s := range surfaces {
		window := "-"
		if s.Window != 0 {
			window = fmt.Sprintf("%#x", s.Window)
		}
		parent := "-"
		if s.Parent != 0 {
			parent = fmt.Sprint(s.Parent)
		}
		fmt.Fprintf(w, "%-8d %-9s %-20s %-10s %-8s %s\n", s.ID, s.Role, s.State, window, parent, s.Title)
	}
}

func runOutputs(args []string) int {
	fs := flag.NewFlagSet("outputs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	detect := fs.Bool("detect", false, "Read outputs from an X server with RandR and print them as config descriptors")
	display := fs.String("display", "", "X display for --detect (default: $DISPLAY)")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xwbridge outputs [--json]")
		fmt.Fprintln(os.Stderr, "       xwbridge outputs --detect [--display :0]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *detect {
		return detectOutputs(*display)
	}

	outputs, err := newClient().ListOutputs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(os.Stdout, outputs)
	}
	if len(outputs) == 0 {
		fmt.Println("no outputs")
		return 0
	}
	fmt.Printf("%-4s %-16s %-20s %-12s %-6s %s\n", "ID", "NAME", "MODE", "TRANSFORM", "SCALE", "POSITION")
	for _, o := range outputs {
		mode := "-"
		if o.CurrentMode != nil {
			mode = o.CurrentMode.String()
		}
		fmt.Printf("%-4d %-16s %-20s %-12s %-6d %d,%d\n", o.ID, o.Name, mode, o.Transform, o.Scale, o.Location.X, o.Location.Y)
	}
	return 0
}

func detectOutputs(display string) int {
	conn, err := x11.Dial(display)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer conn.Close()

	infos, err := conn.Outputs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	data, err := yaml.Marshal(map[string]any{"outputs": infos})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}

func runOutput(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage: xwbridge output apply <file|->")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Apply one descriptor or a list of descriptors (YAML or JSON).")
		return 2
	}
	if args[0] != "apply" {
		fmt.Fprintf(os.Stderr, "Unknown output subcommand: %s\n", args[0])
		return 2
	}
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "output apply requires <file|->")
		return 2
	}

	var (
		data []byte
		err  error
	)
	if args[1] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[1])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	infos, err := parseDescriptors(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	client := newClient()
	for _, info := range infos {
		if err := client.ApplyOutput(info); err != nil {
			fmt.Fprintf(os.Stderr, "output %d: %v\n", info.ID, err)
			return 1
		}
		fmt.Printf("applied %s\n", info.OutputName())
	}
	return 0
}

// parseDescriptors accepts a single descriptor, a list, or a document with
// an outputs key as printed by "outputs --detect".
func parseDescriptors(data []byte) ([]output.Info, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse descriptors: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("no output descriptors")
	}
	root := doc.Content[0]

	var infos []output.Info
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&infos); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		if isOutputsDocument(root) {
			var wrapped struct {
				Outputs []output.Info `yaml:"outputs"`
			}
			if err := root.Decode(&wrapped); err != nil {
				return nil, err
			}
			infos = wrapped.Outputs
			break
		}
		var info output.Info
		if err := root.Decode(&info); err != nil {
			return nil, err
		}
		infos = []output.Info{info}
	default:
		return nil, errors.New("expected a descriptor or a list of descriptors")
	}

	for i := range infos {
		if infos[i].ScaleFactor == 0 {
			infos[i].ScaleFactor = 1
		}
		if err := infos[i].Validate(); err != nil {
			return nil, err
		}
	}
	return infos, nil
}

func isOutputsDocument(node *yaml.Node) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if strings.TrimSpace(node.Content[i].Value) == "outputs" {
			return true
		}
	}
	return false
}

func printJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
