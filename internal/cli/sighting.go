package cli

import (
	"github.com/spf13/cobra"
)

// NewSightingCmd создаёт группу команд для встреч с friends.
func NewSightingCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sighting",
		Short: "Record and look up friend sightings",
	}

	cmd.AddCommand(
		newSightingRecordCmd(clientFn, outputFn),
		&cobra.Command{
			Use:   "expected ROUTE_ID",
			Short: "Show where each friend was last seen on a route",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				expected, err := clientFn().ExpectedFriends(args[0])
				if err != nil {
					return err
				}

				rows := make([][]string, len(expected))
				for i, e := range expected {
					rows[i] = []string{e.FriendName, e.FriendID, e.LocationID, e.LastSeenAt}
				}
				outputFn().Print([]string{"FRIEND", "FRIEND_ID", "LOCATION_ID", "LAST_SEEN"}, rows, expected)
				return nil
			},
		},
	)

	return cmd
}

func newSightingRecordCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req SightingRequest

	cmd := &cobra.Command{
		Use:   "record FRIEND_ID LOCATION_ID",
		Short: "Record that a friend was seen at a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FriendID, req.LocationID = args[0], args[1]

			s, err := clientFn().RecordSighting(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success("Sighting recorded")
			out.Print(
				[]string{"ID", "FRIEND_ID", "LOCATION_ID", "AT"},
				[][]string{{s.ID, s.FriendID, s.LocationID, s.CreatedAt}},
				s,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.RunID, "run-id", "", "Run during which the friend was seen")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&req.ClientRequestID, "client-id", "", "Idempotency key for retries")
	return cmd
}
