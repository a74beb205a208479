package main

import (
	"errors"
	"time"

	"github.com/mbolis/formify/config"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/report"
	"github.com/mbolis/formify/store"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	rootCmd = &cobra.Command{
		Use:           "formify",
		Short:         "Forms, processes and reports server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the websocket report channel and the report scheduler",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	runReportsCmd = &cobra.Command{
		Use:   "run-reports",
		Short: "Run every scheduled report that is due, then exit",
		Args:  cobra.NoArgs,
		RunE:  runReports,
	}

	userAddCmd = &cobra.Command{
		Use:   "user-add <username> <password>",
		Short: "Create a user that can log in to the admin API",
		Args:  cobra.ExactArgs(2),
		RunE:  userAdd,
	}
)

func init() {
	config.BindFlags(rootCmd.PersistentFlags())

	userAddCmd.Flags().String("email", "", "email address, used as report recipient")
	userAddCmd.Flags().Bool("staff", false, "staff users may follow live reports of any form")

	rootCmd.AddCommand(serveCmd, runReportsCmd, userAddCmd)
}

// loadOffline loads the configuration of commands that never issue tokens.
func loadOffline(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if errors.Is(err, config.ErrMissingSecret) {
		err = nil
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, err
}

func runReports(cmd *cobra.Command, args []string) error {
	cfg, err := loadOffline(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	builder := report.NewBuilder(db)
	scheduler := report.NewScheduler(db, builder, report.NewDeliverer(report.NewSMTPMailer(cfg.SMTP), cfg.SMTP))

	ran, err := scheduler.RunDue(cmd.Context(), time.Now())
	log.Infof("run_reports: ran %d report(s)", ran)
	return err
}

func userAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadOffline(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	staff, _ := cmd.Flags().GetBool("staff")
	user := model.User{Username: args[0], Email: email, IsStaff: staff}

	if err := store.InsertUser(cmd.Context(), db, &user, hash); err != nil {
		return err
	}
	log.Infof("user_add: created user %s (%d)", user.Username, user.ID)
	return nil
}
