package cli

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atinyakov/pwkeeper/internal/config"
	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
	"github.com/atinyakov/pwkeeper/internal/service"
)

// NewRootCmd builds the pwkeeper command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	app.setDefaults()

	root := &cobra.Command{
		Use:           "pwkeeper",
		Short:         "Local encrypted password vault",
		Long:          `Stores named secrets encrypted under a single master password.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.configure(cmd)
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newInitCmd(app),
		newGetCmd(app),
		newPutCmd(app),
		newDeleteCmd(app),
		newListCmd(app),
		newChangePasswordCmd(app),
		newResetCmd(app),
		newVersionCmd(app),
	)
	return root
}

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault or check the master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withVault(cmd.Context(), func(m *service.VaultManager, _ string) error {
				app.success("Vault unlocked (%s store at %s)", app.opts.Store, location(app.opts))
				return nil
			})
		},
	}
}

func newGetCmd(app *App) *cobra.Command {
	var info bool
	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Copy a secret to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return app.withVault(cmd.Context(), func(m *service.VaultManager, _ string) error {
				entry, err := m.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				value, what := entry.Secret, "secret"
				if info {
					value, what = entry.Info, "info"
				}
				if err := app.Clipboard.WriteAll(value); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				app.success("Copied %s of %s to the clipboard", what, color.YellowString(name))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&info, "info", "i", false, "copy the info field instead of the secret")
	return cmd
}

func newPutCmd(app *App) *cobra.Command {
	var info string
	cmd := &cobra.Command{
		Use:     "put NAME",
		Aliases: []string{"new"},
		Short:   "Add a new record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return app.withVault(cmd.Context(), func(m *service.VaultManager, _ string) error {
				exists, err := m.Has(cmd.Context(), name)
				if err != nil {
					return err
				}
				if exists {
					return fmt.Errorf("%w: %q", vaulterrors.ErrAlreadyExists, name)
				}

				if !cmd.Flags().Changed("info") {
					if info, err = app.Prompter.Line("Info (login, URL, notes): "); err != nil {
						return err
					}
				}
				secret, err := app.newPassword("Secret: ")
				if err != nil {
					return err
				}

				if err := m.Put(cmd.Context(), name, info, secret); err != nil {
					return err
				}
				app.success("Added %s", color.YellowString(name))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&info, "info", "i", "", "info stored next to the secret")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return app.withVault(cmd.Context(), func(m *service.VaultManager, _ string) error {
				if err := m.Delete(cmd.Context(), name); err != nil {
					return err
				}
				app.success("Deleted %s", color.YellowString(name))
				return nil
			})
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print record names, one per line",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withVault(cmd.Context(), func(m *service.VaultManager, _ string) error {
				for name, err := range m.List(cmd.Context()) {
					if err != nil {
						return err
					}
					fmt.Fprintln(app.Out, name)
				}
				return nil
			})
		},
	}
}

func newChangePasswordCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withVault(cmd.Context(), func(m *service.VaultManager, current string) error {
				next, err := app.newPassword("New master password: ")
				if err != nil {
					return err
				}
				if err := m.ChangePassword(cmd.Context(), current, next); err != nil {
					return err
				}
				app.success("Master password changed")
				return nil
			})
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every record and the vault itself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withVault(cmd.Context(), func(m *service.VaultManager, _ string) error {
				if !yes {
					answer, err := app.Prompter.Line(color.RedString("This deletes all records.") + " Type 'yes' to continue: ")
					if err != nil {
						return err
					}
					if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
						fmt.Fprintln(app.Err, color.YellowString("!")+" Reset cancelled")
						return nil
					}
				}
				if err := m.Reset(cmd.Context()); err != nil {
					return err
				}
				app.success("Vault reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(app.Out, "Build version: %s\n", cmp.Or(app.Version, "N/A"))
			fmt.Fprintf(app.Out, "Build date: %s\n", cmp.Or(app.BuildDate, "N/A"))
			return nil
		},
	}
}

func location(opts *config.Options) string {
	if opts.Store == config.StorePostgres {
		return "postgres"
	}
	return opts.Path
}
