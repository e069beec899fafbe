package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var runHeaders = []string{"ID", "NAME", "STATUS", "DATE", "MEALS", "STOP"}

func runRow(r *RunResponse) []string {
	return []string{r.ID, r.Name, r.Status, r.Date(), strconv.Itoa(r.MealCount), r.Stop()}
}

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage outreach runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunCreateCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunUpdateCmd(clientFn, outputFn),
		newRunActionCmd(clientFn, outputFn, "start", "Start a scheduled run at its first stop"),
		newRunActionCmd(clientFn, outputFn, "advance", "Move to the next stop"),
		newRunActionCmd(clientFn, outputFn, "retreat", "Move back to the previous stop"),
		newRunActionCmd(clientFn, outputFn, "complete", "Complete a run in progress"),
		newRunActionCmd(clientFn, outputFn, "cancel", "Cancel a run"),
		newRunContextCmd(clientFn, outputFn),
		newRunPrepCmd(clientFn, outputFn),
		newRunChangesCmd(clientFn, outputFn),
		newRunDeliverCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := clientFn().ListRuns(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i := range runs {
				rows[i] = runRow(&runs[i])
			}
			outputFn().Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.RouteID, "route-id", "", "Filter by route ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (scheduled, in_progress, completed, cancelled)")
	cmd.Flags().StringVar(&opts.From, "from", "", "Scheduled on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "Scheduled on or before YYYY-MM-DD")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateRunRequest

	cmd := &cobra.Command{
		Use:   "create ROUTE_ID DATE",
		Short: "Schedule a new run (DATE is YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.RouteID = args[0]
			req.ScheduledDate = args[1]

			run, err := clientFn().CreateRun(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Run created: %s", run.Name))
			out.Print(runHeaders, [][]string{runRow(run)}, run)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.MealCount, "meals", 0, "Number of meals to carry")
	cmd.Flags().StringVar(&req.StartTime, "start", "", "Planned start time (HH:MM)")
	cmd.Flags().StringVar(&req.EndTime, "end", "", "Planned end time (HH:MM)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Coordinator notes")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}
			outputFn().Print(runHeaders, [][]string{runRow(run)}, run)
			return nil
		},
	}
}

func newRunUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		routeID, date, start, end, notes string
		meals                            int
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a run (name is derived and cannot be changed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req UpdateRunRequest
			flags := cmd.Flags()
			if flags.Changed("route-id") {
				req.RouteID = &routeID
			}
			if flags.Changed("date") {
				req.ScheduledDate = &date
			}
			if flags.Changed("start") {
				req.StartTime = &start
			}
			if flags.Changed("end") {
				req.EndTime = &end
			}
			if flags.Changed("meals") {
				req.MealCount = &meals
			}
			if flags.Changed("notes") {
				req.Notes = &notes
			}

			run, err := clientFn().UpdateRun(args[0], req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success("Run updated")
			out.Print(runHeaders, [][]string{runRow(run)}, run)
			return nil
		},
	}

	cmd.Flags().StringVar(&routeID, "route-id", "", "New route (only before start)")
	cmd.Flags().StringVar(&date, "date", "", "New date YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "Planned start time")
	cmd.Flags().StringVar(&end, "end", "", "Planned end time")
	cmd.Flags().IntVar(&meals, "meals", 0, "Number of meals")
	cmd.Flags().StringVar(&notes, "notes", "", "Coordinator notes")

	return cmd
}

func newRunActionCmd(clientFn func() *Client, outputFn func() *Output, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().RunAction(args[0], action)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Run %s: %s, stop %s", action, run.Status, run.Stop()))
			out.Print(runHeaders, [][]string{runRow(run)}, run)
			return nil
		},
	}
}

func newRunContextCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "context ID",
		Short: "Show stops with expected friends, ready requests and deliveries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ec, err := clientFn().GetContext(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(ec.Stops))
			for i, s := range ec.Stops {
				marker := ""
				if i == ec.CurrentStopIndex {
					marker = "*"
				}
				meals := "-"
				if s.Delivery != nil {
					meals = strconv.Itoa(s.Delivery.MealsDelivered)
				}
				rows[i] = []string{
					marker,
					strconv.Itoa(s.StopNumber),
					s.Location.Name,
					strconv.Itoa(len(s.ExpectedFriends)),
					strconv.Itoa(len(s.Requests)),
					meals,
				}
			}
			outputFn().Print([]string{"", "STOP", "LOCATION", "FRIENDS", "REQUESTS", "DELIVERED"}, rows, ec)
			return nil
		},
	}
}

func newRunPrepCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "prep ID",
		Short: "Show what to load before the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prep, err := clientFn().GetPreparation(args[0])
			if err != nil {
				return err
			}

			s := prep.Supplies
			outputFn().Print(
				[]string{"MEALS", "UTENSILS", "NAPKINS", "REQUESTS", "STOPS"},
				[][]string{{
					strconv.Itoa(s.Meals),
					strconv.Itoa(s.Utensils),
					strconv.Itoa(s.Napkins),
					strconv.Itoa(s.Requests),
					strconv.Itoa(prep.TotalStops),
				}},
				prep,
			)
			return nil
		},
	}
}

func newRunChangesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "changes ID",
		Short: "Show changes since a cursor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := clientFn().GetChanges(args[0], since)
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"STATUS", "REQUESTS", "SIGHTINGS", "DELIVERIES", "CURSOR"},
				[][]string{{
					cs.Run.Status,
					strconv.Itoa(len(cs.UpdatedRequests)),
					strconv.Itoa(len(cs.RecentSightings)),
					strconv.Itoa(len(cs.UpdatedDeliveries)),
					cs.Timestamp,
				}},
				cs,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Cursor from a previous call (RFC3339)")
	return cmd
}

func newRunDeliverCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req DeliveryRequest

	cmd := &cobra.Command{
		Use:   "deliver RUN_ID LOCATION_ID",
		Short: "Record meals delivered at a stop (last write wins)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := clientFn().RecordDelivery(args[0], args[1], req)
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"RUN_ID", "LOCATION_ID", "MEALS", "VISITED"},
				[][]string{{d.RunID, d.LocationID, strconv.Itoa(d.MealsDelivered), d.VisitedAt}},
				d,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.MealsDelivered, "meals", 0, "Meals delivered")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Notes")
	return cmd
}
