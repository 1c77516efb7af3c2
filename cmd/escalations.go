package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/database"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
)

func newEscalationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "Work the counsellor intake queue",
	}
	cmd.AddCommand(newEscalationsListCmd(opts), newEscalationsContactedCmd(opts))
	return cmd
}

func openEscalations(opts *rootOptions) (repository.EscalationRepository, func(), error) {
	cfg, log, err := opts.setup()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Init(cfg.Database.DSN, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = log.Sync()
	}
	return repository.NewEscalationRepository(db, log), closeFn, nil
}

func newEscalationsListCmd(opts *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List intake requests, urgent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openEscalations(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			reqs, err := repo.ListByStatus(cmd.Context(), models.EscalationStatus(status))
			if err != nil {
				return err
			}
			return writeEscalations(cmd, reqs)
		},
	}
	cmd.Flags().StringVar(&status, "status", string(models.EscalationPending), "pending or contacted")
	return cmd
}

func writeEscalations(cmd *cobra.Command, reqs []models.EscalationRequest) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUrgency\tFlagged\tName\tContact\tCreated")
	for _, r := range reqs {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\t%s\n",
			r.ID, r.Urgency, r.Flagged, r.Name, r.Contact, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func newEscalationsContactedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contacted <id>",
		Short: "Mark an intake request as contacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q", args[0])
			}
			repo, closeFn, err := openEscalations(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			err = repo.UpdateStatus(cmd.Context(), uint(id), models.EscalationContacted)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no intake request with id %d", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %d marked contacted\n", id)
			return nil
		},
	}
}
