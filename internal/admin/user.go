package admin

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/biobank/internal/auth"
	"github.com/sakif/biobank/internal/model"
	"github.com/sakif/biobank/internal/service"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account management",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userActivateCommand(),
		userDeactivateCommand(),
		userListCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create EMAIL USERNAME",
		Short: "Create an active account",
		Long: "Creates an account that can log in immediately. The password is read\n" +
			"from the terminal without echo, or from stdin when piped. The same\n" +
			"validation rules apply as on the registration endpoint.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			in := service.RegisterInput{
				Email:    strings.TrimSpace(args[0]),
				Username: strings.TrimSpace(args[1]),
			}
			in.Password, err = promptPassword("password: ")
			if err != nil {
				return err
			}

			if err := in.Validate(); err != nil {
				return err
			}

			hash, err := auth.NewPasswordService().Hash(in.Password)
			if err != nil {
				return err
			}

			user := &model.User{
				Email:        in.Email,
				Username:     in.Username,
				PasswordHash: hash,
				IsActive:     true,
			}
			if err := store.CreateUser(cmd.Context(), user); err != nil {
				return err
			}

			cmd.Printf("created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
}

func userActivateCommand() *cobra.Command {
	return setActiveCommand(
		"activate EMAIL",
		"Reactivate an account",
		"Reactivated accounts can log in again on their next attempt.",
		true,
	)
}

func userDeactivateCommand() *cobra.Command {
	return setActiveCommand(
		"deactivate EMAIL",
		"Deactivate an account",
		"Deactivated accounts fail login, and tokens already issued stop\n"+
			"resolving on their next use. No data is deleted.",
		false,
	)
}

func setActiveCommand(use, short, long string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			user, err := store.GetUserByEmail(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			state := "inactive"
			if active {
				state = "active"
			}
			if user.IsActive == active {
				cmd.Printf("user %s is already %s\n", user.Email, state)
				return nil
			}

			user.IsActive = active
			if err := store.UpdateUser(cmd.Context(), user); err != nil {
				return err
			}

			cmd.Printf("user %s is now %s\n", user.Email, state)
			return nil
		},
	}
}

func userListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			users, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tUSERNAME\tACTIVE\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
					u.ID, u.Email, u.Username, u.IsActive, u.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}
