package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tuannm99/novaplan/internal/engine"
	"github.com/tuannm99/novaplan/sqlclient"
)

const (
	prompt     = "novaplan> "
	contPrompt = "...> "
)

// statementComplete reports whether buf holds a ';' outside a double
// quoted literal.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}

func isMetaCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

type session struct {
	optimize bool
	asJSON   bool
}

func printReport(w io.Writer, r *engine.Report, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r.Plan)
	} else {
		fmt.Fprint(w, r.Explain)
	}
	fmt.Fprintf(w, "(%s, cost %d, optimized %t)\n", r.Kind, r.Cost, r.Optimized)
}

// meta runs one backslash command. It returns false when the REPL should
// exit.
func (s *session) meta(w io.Writer, h *History, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "\\q", "quit", "exit":
		return false
	case "\\help":
		fmt.Fprintln(w, `meta commands:
  \q | quit | exit       quit
  \history               print history
  \opt on|off            toggle the optimizer (default on)
  \json on|off           print plans as JSON instead of text
  \help                  show help

sql:
  end each statement with ';'
  multiline is supported (the CLI waits for ';')`)
	case "\\history":
		h.Print(w, 50)
	case "\\opt", "\\json":
		if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
			fmt.Fprintf(w, "usage: %s on|off\n", fields[0])
			break
		}
		on := fields[1] == "on"
		if fields[0] == "\\opt" {
			s.optimize = on
		} else {
			s.asJSON = on
		}
	default:
		fmt.Fprintf(w, "unknown command: %s\n", line)
	}
	return true
}

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8866", "server address")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial timeout")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
		noOpt      = flag.Bool("no-opt", false, "skip the optimizer")
		asJSON     = flag.Bool("json", false, "print plans as JSON")
		oneShotSQL = flag.String("c", "", "explain one statement and exit")
	)
	flag.Parse()

	cli, err := sqlclient.Dial(*addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cli.Close() }()

	s := &session{optimize: !*noOpt, asJSON: *asJSON}

	if strings.TrimSpace(*oneShotSQL) != "" {
		r, err := cli.Plan(*oneShotSQL, s.optimize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printReport(os.Stdout, r, s.asJSON)
		return
	}

	h := NewHistory(*histPath)
	_ = h.Load(*histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	var buf strings.Builder
	fmt.Printf("connected to %s\n", *addr)
	fmt.Println("type \\help for help")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(prompt)
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && isMetaCommand(line) {
			if !s.meta(os.Stdout, h, line) {
				return
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if !statementComplete(buf.String()) {
			rl.SetPrompt(contPrompt)
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt(prompt)

		_ = h.Append(stmt)
		_ = rl.SaveHistory(compactOneLine(stmt))

		r, err := cli.Plan(stmt, s.optimize)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printReport(os.Stdout, r, s.asJSON)
	}
}
