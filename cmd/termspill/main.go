/*
Package main implements the termspill CLI.

termspill sorts a large listing of weighted suggestion entries on disk and
replays it in deterministic order (term bytes ascending, weight ascending at
ties) for downstream index builders. Input is a text listing, one entry per
line:

	term<TAB>weight[<TAB>payload[<TAB>ctx1,ctx2,...]]

Sort a listing into TSV:

	termspill -in words.tsv -out sorted.tsv

Emit a msgpack stream with payload and context columns enabled:

	termspill -in words.tsv -out sorted.msgpack -format msgpack -payloads -contexts

Verify the output loads into a patricia trie like the downstream dictionary
loader would:

	termspill -in words.tsv -out sorted.tsv -verify -d
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/termspill/internal/cli"
	"github.com/bastiangx/termspill/pkg/config"
	"github.com/bastiangx/termspill/pkg/sorter"
)

func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func main() {
	sigHandler()
	inPath := flag.String("in", "", "Input listing (default: stdin)")
	outPath := flag.String("out", "", "Output file (default: stdout)")
	format := flag.String("format", "", "Output format: tsv or msgpack (default: from config)")
	configPath := flag.String("config", "", "Path to config.toml")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	verify := flag.Bool("verify", false, "Replay the sorted output into a patricia trie and report stats")
	payloads := flag.Bool("payloads", false, "Entries carry a payload column")
	contexts := flag.Bool("contexts", false, "Entries carry a context column")
	runSize := flag.Int("runsize", 0, "Records per in-memory sort run (default: from config)")
	tempDir := flag.String("tmp", "", "Directory for temp spill files (default: from config)")

	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(false)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.InitConfig(*configPath)
		if err == nil {
			cfg = loaded
			log.Debugf("Loaded config from %s", *configPath)
		}
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *runSize > 0 {
		cfg.Sorter.RunSize = *runSize
	}
	if *tempDir != "" {
		cfg.Sorter.TempDir = *tempDir
	}
	if *verify {
		cfg.CLI.DefaultVerify = true
	}

	if err := run(cfg, *inPath, *outPath, *payloads, *contexts); err != nil {
		log.Fatalf("termspill failed: %v", err)
	}
}

func run(cfg *config.Config, inPath, outPath string, payloads, contexts bool) error {
	var in io.Reader = os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	producer := cli.NewLineIterator(in, payloads, contexts)
	opts := &sorter.Options{
		TempDir: cfg.Sorter.TempDir,
		RunSize: cfg.Sorter.RunSize,
	}

	log.Debug("Starting spill-and-sort pipeline",
		"payloads", payloads,
		"contexts", contexts,
		"runSize", cfg.Sorter.RunSize)

	it, err := sorter.New(producer, bytes.Compare, opts)
	if err != nil {
		return err
	}
	defer it.Close()

	var emitter cli.Emitter
	switch cfg.Output.Format {
	case "tsv", "":
		emitter = cli.NewTSVEmitter(out, payloads, contexts)
	case "msgpack":
		emitter = cli.NewMsgpackEmitter(out)
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}

	var check *cli.TrieCheck
	if cfg.CLI.DefaultVerify {
		check = cli.NewTrieCheck(cfg.CLI.ReportTop)
	}

	count := 0
	for {
		e, err := it.Next()
		if err != nil {
			return err
		}
		if e == nil {
			break
		}
		if err := emitter.Emit(e); err != nil {
			return fmt.Errorf("failed to emit entry: %w", err)
		}
		if check != nil {
			check.Add(e)
		}
		count++
	}
	if err := emitter.Close(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	log.Infof("Wrote %d sorted entries", count)
	if check != nil {
		check.Report(log.Default())
	}
	return nil
}
