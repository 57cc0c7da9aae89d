package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"escrowboard/internal/app"
	"escrowboard/internal/config"
	"escrowboard/internal/tui"
	"escrowboard/internal/wallet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const logFile = "escrow-tui.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := app.Deps{Config: cfg, Logger: logger}
	if cfg.Chain.KeystoreDir != "" && cfg.Chain.PrivateKey == "" && cfg.Chain.KeystorePassphrase == "" {
		phrase, err := readPassphrase()
		if err != nil {
			return err
		}
		deps.Passphrase = wallet.StaticPassphrase(phrase)
	}

	a, err := app.New(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(a.Session, tui.Options{Variant: cfg.Variant, Contract: a.Contract, Context: ctx})
	defer m.Close()

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// readPassphrase prompts on the terminal before the dashboard takes over the
// screen.
func readPassphrase() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal: set CHAIN_KEYSTORE_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, "Keystore passphrase: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	phrase := string(raw)
	clear(raw)
	return phrase, nil
}
