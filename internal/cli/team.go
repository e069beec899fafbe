package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewTeamCmd создаёт группу команд для состава команды выезда.
func NewTeamCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage run team membership",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list RUN_ID",
			Short: "List team members, lead first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				team, err := clientFn().ListTeam(args[0])
				if err != nil {
					return err
				}

				rows := make([][]string, len(team))
				for i, m := range team {
					role := "member"
					if i == 0 {
						role = "lead"
					}
					rows[i] = []string{m.UserID, role, m.JoinedAt}
				}
				outputFn().Print([]string{"USER_ID", "ROLE", "JOINED"}, rows, team)
				return nil
			},
		},
		newTeamJoinCmd(clientFn, outputFn),
		&cobra.Command{
			Use:   "leave RUN_ID USER_ID",
			Short: "Remove a user from the team",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := clientFn().LeaveTeam(args[0], args[1]); err != nil {
					return err
				}
				outputFn().Success(fmt.Sprintf("User %s left the team", args[1]))
				return nil
			},
		},
	)

	return cmd
}

func newTeamJoinCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "join RUN_ID",
		Short: "Join a run team (yourself unless --user is set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := clientFn().JoinTeam(args[0], userID)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("User %s is on the team", m.UserID))
			out.Print([]string{"USER_ID", "JOINED"}, [][]string{{m.UserID, m.JoinedAt}}, m)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User to add")
	return cmd
}
