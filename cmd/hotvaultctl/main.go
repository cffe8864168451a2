// Command hotvaultctl is the operator-facing CLI: add-master, add-existing,
// simple-backup, and status — utilities that sit alongside the HTTP
// custody API rather than behind it.
package main

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hotvault/hotvault/config"
	"github.com/hotvault/hotvault/custody"
	"github.com/hotvault/hotvault/keystore"
	"github.com/hotvault/hotvault/zero"
)

func main() {
	app := &cli.Command{
		Name:  "hotvaultctl",
		Usage: "operator CLI for the hot-wallet key custody store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to config JSON (default: embedded)"},
			&cli.StringFlag{Name: "master-file", Usage: "path to the master-secret file (dev backend)"},
		},
		Commands: []*cli.Command{
			cmdAddMaster(),
			cmdAddExisting(),
			cmdSimpleBackup(),
			cmdStatus(),
			cmdLogs(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// obtainPassword reads a secret line from the terminal without echo.
func obtainPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt+": ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pass, nil
}

// cmdAddMaster sets the master secret for this store: prompt, confirm,
// constant-time compare, write. Writes to the plain master-secret file the
// dev platform backend reads; a real OS-vault write path is an external
// collaborator outside this repository's scope.
func cmdAddMaster() *cli.Command {
	return &cli.Command{
		Name:  "add-master",
		Usage: "set the master secret used to encrypt every keystore",
		Action: func(ctx context.Context, c *cli.Command) error {
			pass, err := obtainPassword("Master passphrase")
			if err != nil {
				return err
			}
			defer zero.Bytes(pass)

			confirm, err := obtainPassword("Confirm master passphrase")
			if err != nil {
				return err
			}
			defer zero.Bytes(confirm)

			if subtle.ConstantTimeCompare(pass, confirm) != 1 {
				return fmt.Errorf("add-master: passphrases do not match")
			}

			masterFile := c.String("master-file")
			if masterFile == "" {
				return fmt.Errorf("add-master: -master-file is required")
			}
			if err := keystore.WriteAtomic(masterFile, pass, 0600); err != nil {
				return fmt.Errorf("add-master: write: %w", err)
			}
			fmt.Println("Master secret stored.")
			return nil
		},
	}
}

// cmdAddExisting imports a hex-encoded private key under name.
func cmdAddExisting() *cli.Command {
	return &cli.Command{
		Name:      "add-existing",
		Usage:     "import an existing hex-encoded private key",
		ArgsUsage: "<name> <hex-key>",
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args()
			if args.Len() != 2 {
				return fmt.Errorf("add-existing: usage: hotvaultctl add-existing <name> <hex-key>")
			}
			name, hexKey := args.Get(0), args.Get(1)
			if err := custody.ValidateName(name); err != nil {
				return err
			}

			plaintext, err := decodeHexArg(hexKey)
			if err != nil {
				return fmt.Errorf("add-existing: %w", err)
			}
			defer zero.Bytes(plaintext)

			masterFile := c.String("master-file")
			if masterFile == "" {
				return fmt.Errorf("add-existing: -master-file is required")
			}
			master, err := os.ReadFile(masterFile)
			if err != nil {
				return fmt.Errorf("add-existing: read master: %w", err)
			}
			defer zero.Bytes(master)

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			store, err := keystore.NewStore(cfg.Store)
			if err != nil {
				return err
			}
			file, err := keystore.Encrypt(plaintext, master)
			if err != nil {
				return fmt.Errorf("add-existing: encrypt: %w", err)
			}
			if err := store.Create(name, file); err != nil {
				return fmt.Errorf("add-existing: %w", err)
			}
			fmt.Printf("Imported key %q.\n", name)
			return nil
		},
	}
}

// cmdSimpleBackup rsyncs the keystore directory to a remote host.
func cmdSimpleBackup() *cli.Command {
	return &cli.Command{
		Name:      "simple-backup",
		Usage:     "rsync the keystore directory to <host>:~/<folder>",
		ArgsUsage: "<host> <folder>",
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args()
			if args.Len() != 2 {
				return fmt.Errorf("simple-backup: usage: hotvaultctl simple-backup <host> <folder>")
			}
			host, folder := args.Get(0), args.Get(1)

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			dest := fmt.Sprintf("%s:~/%s", host, folder)
			cmd := exec.CommandContext(ctx, "rsync", "-avz", cfg.Store+"/", dest)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("simple-backup: rsync: %w", err)
			}
			return nil
		},
	}
}

func decodeHexArg(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
