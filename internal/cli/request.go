package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var requestHeaders = []string{"ID", "STATUS", "ATTEMPTS", "DESCRIPTION", "UPDATED"}

func requestRow(r *RequestResponse) []string {
	return []string{r.ID, r.Status, strconv.Itoa(r.DeliveryAttempts), r.Description, r.UpdatedAt}
}

var historyHeaders = []string{"SEQ", "STATUS", "NOTE", "USER", "AT"}

func historyRows(history []HistoryResponse) [][]string {
	rows := make([][]string, len(history))
	for i, h := range history {
		rows[i] = []string{strconv.FormatInt(h.Seq, 10), h.Status, h.Note, h.UserID, h.CreatedAt}
	}
	return rows
}

// NewRequestCmd создаёт группу команд для запросов friends.
func NewRequestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Manage friend requests and their status history",
	}

	cmd.AddCommand(
		newRequestListCmd(clientFn, outputFn),
		newRequestCreateCmd(clientFn, outputFn),
		newRequestStatusCmd(clientFn, outputFn),
		newRequestHistoryCmd(clientFn, outputFn, false),
		newRequestHistoryCmd(clientFn, outputFn, true),
	)

	return cmd
}

func newRequestListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list RUN_ID",
		Short: "List requests for a run (pinned or unassigned on its route)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requests, err := clientFn().ListRunRequests(args[0], status)
			if err != nil {
				return err
			}

			rows := make([][]string, len(requests))
			for i := range requests {
				rows[i] = requestRow(&requests[i])
			}
			outputFn().Print(requestHeaders, rows, requests)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Request status (default ready_for_delivery)")
	return cmd
}

func newRequestCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateRequestRequest

	cmd := &cobra.Command{
		Use:   "create FRIEND_ID LOCATION_ID DESCRIPTION",
		Short: "Create a friend request",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FriendID, req.LocationID, req.Description = args[0], args[1], args[2]

			r, err := clientFn().CreateRequest(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Request created: %s", r.ID))
			out.Print(requestHeaders, [][]string{requestRow(r)}, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.RunID, "run-id", "", "Pin the request to a run")
	return cmd
}

func newRequestStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req StatusRequest

	cmd := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Append a status (taken, ready_for_delivery, delivered, delivery_attempt_failed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Status = args[1]

			res, err := clientFn().AppendStatus(args[0], req)
			if err != nil {
				return err
			}

			out := outputFn()
			if res.Replayed {
				out.Success("Already recorded, nothing appended")
			} else {
				out.Success(fmt.Sprintf("Status appended: %s", res.Entry.Status))
			}
			out.Print(requestHeaders, [][]string{requestRow(&res.Request)}, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Note, "note", "", "Note for the history entry")
	cmd.Flags().StringVar(&req.ClientRequestID, "client-id", "", "Idempotency key for retries")
	return cmd
}

func newRequestHistoryCmd(clientFn func() *Client, outputFn func() *Output, attemptsOnly bool) *cobra.Command {
	use, short := "history ID", "Show the full status history"
	if attemptsOnly {
		use, short = "attempts ID", "Show delivery attempts only"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			fetch := client.GetHistory
			if attemptsOnly {
				fetch = client.GetAttempts
			}

			history, err := fetch(args[0])
			if err != nil {
				return err
			}
			outputFn().Print(historyHeaders, historyRows(history), history)
			return nil
		},
	}
}
