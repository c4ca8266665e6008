package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/server"
	"github.com/sakif/partnerz/internal/wizard"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Run an onboarding wizard for a user",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var onboardSaaSCmd = &cobra.Command{
	Use:   "saas",
	Short: "Set up a SaaS user's first affiliate program",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireWizard(cmd)
		if err != nil {
			return err
		}
		cfgIn, err := wizard.AskProgram(model.DefaultProgramConfig())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		services, err := server.NewServices(ctx, cfg, store, nil, logger)
		if err != nil {
			return err
		}

		program, err := services.Onboarding.CompleteSaaS(ctx, userID, cfgIn)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), wizard.DefaultStyles().RenderProgram(program))
		return nil
	},
}

var onboardAffiliateCmd = &cobra.Command{
	Use:   "affiliate",
	Short: "Complete an affiliate's profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireWizard(cmd)
		if err != nil {
			return err
		}
		in, err := wizard.AskAffiliate()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		services, err := server.NewServices(ctx, cfg, store, nil, logger)
		if err != nil {
			return err
		}

		saved, err := services.Onboarding.CompleteAffiliate(ctx, userID, in)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), wizard.DefaultStyles().RenderAffiliate(saved))
		return nil
	},
}

func requireWizard(cmd *cobra.Command) (string, error) {
	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		return "", errors.New("--user is required")
	}
	if !wizard.IsInteractive() {
		return "", errors.New("onboarding wizards need a terminal")
	}
	return userID, nil
}

func init() {
	for _, c := range []*cobra.Command{onboardSaaSCmd, onboardAffiliateCmd} {
		c.Flags().String("user", "", "user id (printed by `partnerz route`)")
		onboardCmd.AddCommand(c)
	}
	rootCmd.AddCommand(onboardCmd)
}
