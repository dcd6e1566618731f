package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xwbridge/internal/config"
)

var errUsage = errors.New("usage")

type configCommand struct {
	usage string
	run   func(fs *flag.FlagSet, path *string, args []string) error
}

var configCommands = map[string]configCommand{
	"validate": {"validate [--path PATH]", configValidate},
	"print":    {"print [--path PATH] [--defaults]", configPrint},
	"explain":  {"explain [--path PATH] <yaml.path>", configExplain},
	"path":     {"path", configPath},
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, name := range []string{"validate", "print", "explain", "path"} {
		fmt.Fprintf(w, "  xwbridge config %s\n", configCommands[name].usage)
	}
}

func runConfig(args []string) int {
	if len(args) == 0 || isHelp(args[0]) {
		printConfigUsage(os.Stderr)
		return 2
	}
	cmd, ok := configCommands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/xwbridge/config.yaml)")
	err := cmd.run(fs, path, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}

func isHelp(arg string) bool {
	switch arg {
	case "help", "-h", "--help":
		return true
	}
	return false
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func configValidate(fs *flag.FlagSet, path *string, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	res, err := loadConfig(*path)
	if err != nil {
		return err
	}
	fmt.Printf("config: ok (%d file(s), %d output(s))\n", len(res.Files), len(res.Config.Outputs))
	return nil
}

func configPrint(fs *flag.FlagSet, path *string, args []string) error {
	defaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if !*defaults {
		res, err := loadConfig(*path)
		if err != nil {
			return err
		}
		cfg = res.Config
	}
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func configExplain(fs *flag.FlagSet, path *string, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "explain requires exactly one <yaml.path>")
		return errUsage
	}
	key := fs.Arg(0)

	res, err := loadConfig(*path)
	if err != nil {
		return err
	}
	value, src, err := config.Explain(res, key)
	if err != nil {
		return err
	}
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	fmt.Printf("path: %s\nsource: %s\nvalue:\n%s", key, formatSource(src), b.String())
	return nil
}

func configPath(*flag.FlagSet, *string, []string) error {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// formatSource renders a config source as kind[:detail].
func formatSource(src config.Source) string {
	var detail string
	switch src.Kind {
	case config.SourceFile:
		detail = src.File
		if detail != "" && src.Line > 0 {
			detail = fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
		}
	case config.SourceDefault:
		detail = src.Name
	}
	if detail == "" {
		return string(src.Kind)
	}
	return string(src.Kind) + ":" + detail
}
