package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hotvault/hotvault/config"
	"github.com/hotvault/hotvault/logging"
)

type keyRow struct {
	Name string `json:"name"`
}

// cmdStatus lists every key name present in the store, either as a
// bordered lipgloss table on a TTY or as JSON otherwise.
func cmdStatus() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "list key names present in the store",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(cfg.Store)
			if err != nil {
				if os.IsNotExist(err) {
					entries = nil
				} else {
					return fmt.Errorf("status: %w", err)
				}
			}

			rows := lo.FilterMap(entries, func(e os.DirEntry, _ int) (keyRow, bool) {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
					return keyRow{}, false
				}
				return keyRow{Name: strings.TrimSuffix(filepath.Base(e.Name()), ".json")}, true
			})

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return json.NewEncoder(os.Stdout).Encode(rows)
			}

			fmt.Println(renderStatusTable(rows))
			return nil
		},
	}
}

// cmdLogs prints the last n lines of the running daemon's log file.
func cmdLogs() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "show the last lines of the daemon's log file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "log file path (default: alongside the daemon binary)"},
			&cli.StringFlag{Name: "lines", Value: "100", Usage: "number of trailing lines to show"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.String("file")
			if path == "" {
				path = logging.DefaultFileInExecDir("hotvaultd.log")
			}
			n, err := strconv.Atoi(c.String("lines"))
			if err != nil {
				return fmt.Errorf("logs: -lines: %w", err)
			}
			lines, err := logging.TailLastLines(path, n)
			if err != nil {
				return fmt.Errorf("logs: %w", err)
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
}

func renderStatusTable(rows []keyRow) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	var b strings.Builder
	b.WriteString(header.Render("KEY NAME"))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(cell.Render(r.Name))
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString(cell.Render("(no keys)"))
		b.WriteString("\n")
	}
	return border.Render(strings.TrimRight(b.String(), "\n"))
}
