// Package cli implements the pwkeeper command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/atinyakov/pwkeeper/internal/config"
	"github.com/atinyakov/pwkeeper/internal/crypto"
	"github.com/atinyakov/pwkeeper/internal/logger"
	"github.com/atinyakov/pwkeeper/internal/models"
	"github.com/atinyakov/pwkeeper/internal/service"
)

var errPasswordMismatch = errors.New("passwords do not match")

// App carries the collaborators shared by all commands. Zero-valued fields
// are replaced with production defaults by NewRootCmd.
type App struct {
	Prompter  Prompter
	Clipboard Clipboard
	Out       io.Writer
	Err       io.Writer

	// OpenStore opens the record store selected by the configuration.
	OpenStore func(opts *config.Options) (Store, error)
	// Envelope overrides the key derivation used by the vault.
	Envelope *crypto.Envelope
	// Logger overrides the logger built from the configured level.
	Logger *zap.Logger
	// Spinner shows progress while the master key is derived.
	Spinner bool

	Version   string
	BuildDate string

	opts *config.Options
	log  *zap.Logger
}

func (a *App) setDefaults() {
	if a.Prompter == nil {
		a.Prompter = NewTerminalPrompter(os.Stdin, os.Stderr)
	}
	if a.Clipboard == nil {
		a.Clipboard = SystemClipboard{}
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.OpenStore == nil {
		a.OpenStore = OpenStore
	}
}

// configure resolves options and the logger from the parsed flags of cmd.
func (a *App) configure(cmd *cobra.Command) error {
	opts, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.opts = opts

	if a.Logger != nil {
		a.log = a.Logger
		return nil
	}
	l := logger.New()
	if f, ok := a.Err.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		err = l.Init(opts.LogLevel)
	} else {
		err = l.InitWriter(opts.LogLevel, a.Err)
	}
	if err != nil {
		return err
	}
	a.log = l.Log
	return nil
}

// withVault opens the store, authenticates and runs fn with the unlocked
// manager. fn also receives the master password that unlocked the vault.
func (a *App) withVault(ctx context.Context, fn func(m *service.VaultManager, password string) error) (err error) {
	store, err := a.OpenStore(a.opts)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	m, err := service.NewVaultManager(ctx, store, a.Envelope, a.log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, m.Close()) }()

	password, err := a.unlock(ctx, m)
	if err != nil {
		return err
	}
	return fn(m, password)
}

func (a *App) unlock(ctx context.Context, m *service.VaultManager) (string, error) {
	fresh := m.State() == models.Uninitialized

	var password string
	var err error
	if fresh {
		fmt.Fprintln(a.Err, color.YellowString("!")+" No vault found, creating a new one")
		password, err = a.newPassword("New master password: ")
	} else {
		password, err = a.Prompter.Password("Master password: ")
	}
	if err != nil {
		return "", err
	}

	stop := a.startSpinner("Unlocking vault...")
	err = m.Authenticate(ctx, password)
	stop()
	if err != nil {
		return "", err
	}
	a.log.Debug("authenticated", zap.Bool("provisioned", fresh))
	return password, nil
}

// newPassword prompts twice and requires both answers to match.
func (a *App) newPassword(prompt string) (string, error) {
	first, err := a.Prompter.Password(prompt)
	if err != nil {
		return "", err
	}
	second, err := a.Prompter.Password("Confirm: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}

func (a *App) startSpinner(message string) func() {
	if !a.Spinner {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.Err))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		a.log.Warn("failed to set spinner color", zap.Error(err))
	}
	s.Start()
	return s.Stop
}

func (a *App) success(format string, args ...any) {
	fmt.Fprintln(a.Err, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}
