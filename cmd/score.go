package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abimbolaoige/KFM-Counsel-Chat/assessment"
)

func newScoreCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "score [answers...]",
		Short: "Score a complete questionnaire offline",
		Example: `  kfmcounsel score 4 4 4 4 4
  kfmcounsel score --type singles 3 2 5 4 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := assessment.DefaultCatalog().Get(assessment.Type(kind))
			if !ok {
				return fmt.Errorf("unknown assessment type %q", kind)
			}
			answers := make([]int, 0, len(args))
			for _, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("answer %q is not a number", a)
				}
				answers = append(answers, v)
			}
			res, err := assessment.Score(def, answers)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", string(assessment.TypeTriage), "assessment type (triage or singles)")
	return cmd
}
