package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wkalt/betree/tree"
)

/*
shell is a tiny interactive REPL for poking at a tree by hand, grounded on
the teacher's client/dp3/cmd/client.go readline loop (prompt/history file,
CaptureExitSignal, the read-dispatch-continue shape). It only understands
the demo string->[]byte tree bench/inspect already use.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	shellDir         string
	shellMaxNodeSize int
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "interactively insert, update, and query a demo tree",
	Run: func(_ *cobra.Command, _ []string) {
		checkErr(runShell())
	},
}

func runShell() error {
	tr := newDemoTree(shellDir, shellMaxNodeSize, false)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "betree # ",
		HistoryFile:     "/tmp/betree-shell-history.tmp",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Println(`Commands: insert <key> <value>, update <key> <value>, query <key>, quit`)
	ctx := context.Background()
	for {
		line, err := l.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return tr.Sync(ctx)
			}
			return err
		}
		if err := dispatchShellLine(ctx, tr, strings.TrimSpace(line)); err != nil {
			if errors.Is(err, errShellQuit) {
				return tr.Sync(ctx)
			}
			fmt.Println("error:", err)
		}
	}
}

var errShellQuit = errors.New("quit")

func dispatchShellLine(ctx context.Context, tr *tree.Tree[string, []byte], line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "quit", "exit":
		return errShellQuit
	case "insert":
		if len(fields) != 3 {
			return errors.New("usage: insert <key> <value>")
		}
		return tr.Insert(ctx, fields[1], []byte(fields[2]))
	case "update":
		if len(fields) != 3 {
			return errors.New("usage: update <key> <value>")
		}
		return tr.Update(ctx, fields[1], []byte(fields[2]))
	case "query":
		if len(fields) != 2 {
			return errors.New("usage: query <key>")
		}
		v, err := tr.Query(ctx, fields[1])
		if err != nil {
			return err
		}
		fmt.Println(string(v))
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVarP(&shellDir, "dir", "d", "",
		"directory to persist nodes under (defaults to an in-memory store)")
	shellCmd.Flags().IntVarP(&shellMaxNodeSize, "max-node-size", "", 1024, "target node capacity")
}
