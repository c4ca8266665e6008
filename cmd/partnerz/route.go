package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/routing"
	"github.com/sakif/partnerz/internal/scratchpad"
	"github.com/sakif/partnerz/internal/server"
	"github.com/sakif/partnerz/internal/service"
	"github.com/sakif/partnerz/internal/session"
	"github.com/sakif/partnerz/internal/wizard"
)

var errRoutingFailed = errors.New("routing failed")

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Sign in from the terminal and show where you land",
	Long: "Signs in (or signs up) and runs the same routing pass as the web app:\n" +
		"the profile is created on first sign-in and the next view is printed.\n" +
		"Without flags the credentials are asked for interactively.",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		// One terminal run is one client, so its hints live in memory.
		hints := scratchpad.NewMemoryStore()
		services, err := server.NewServices(ctx, cfg, store, hints, logger)
		if err != nil {
			return err
		}

		client := service.NewAuthClient(services.Auth, nil)
		machine := routing.NewMachine(services.Router)
		listener := session.NewListener(client, machine.Handle, logger)
		listener.Start(ctx)
		defer listener.Stop()

		if creds.SignUp {
			err = client.SignUp(ctx, creds.Email, creds.Password, creds.Role)
		} else {
			if creds.Role != "" {
				if err := scratchpad.SetIntendedRole(ctx, hints, creds.Role); err != nil {
					return err
				}
			}
			err = client.SignInWithPassword(ctx, creds.Email, creds.Password)
		}
		if err != nil {
			return err
		}

		state := machine.State()
		fmt.Fprint(cmd.OutOrStdout(), wizard.DefaultStyles().RenderState(state, client.Session()))
		if state.Phase == routing.PhaseFatalError {
			return errRoutingFailed
		}
		if sess := client.Session(); sess != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "\nuser id: %s\n", sess.UserID)
		}
		return nil
	},
}

// credentialsFromFlags reads --email/--password/--role/--signup, falling
// back to the interactive form when no email was given. Role stays empty
// when --role is not set.
func credentialsFromFlags(cmd *cobra.Command) (*wizard.Credentials, error) {
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		if !wizard.IsInteractive() {
			return nil, errors.New("--email and --password are required when stdin is not a terminal")
		}
		return wizard.AskCredentials()
	}

	password, _ := cmd.Flags().GetString("password")
	rawRole, _ := cmd.Flags().GetString("role")
	signUp, _ := cmd.Flags().GetBool("signup")

	creds := &wizard.Credentials{Email: email, Password: password, SignUp: signUp}
	if rawRole != "" {
		role, err := model.ParseRole(rawRole)
		if err != nil {
			return nil, err
		}
		creds.Role = role
	}
	return creds, nil
}

func init() {
	routeCmd.Flags().String("email", "", "account email")
	routeCmd.Flags().String("password", "", "account password")
	routeCmd.Flags().String("role", "", "SAAS or AFFILIATE (new profiles default to SAAS)")
	routeCmd.Flags().Bool("signup", false, "create the account instead of signing in")
	rootCmd.AddCommand(routeCmd)
}
