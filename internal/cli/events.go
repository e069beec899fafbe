package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Outreach/internal/mq"
)

var eventHeaders = []string{"KEY", "RUN_ID", "STATUS", "STOP", "USER_ID", "AT"}

func eventRow(ev *mq.Event) []string {
	stop := "-"
	if ev.StopNumber > 0 {
		stop = strconv.Itoa(ev.StopNumber)
	}
	return []string{
		string(ev.Key),
		ev.RunID.String(),
		ev.Status,
		stop,
		ev.UserID.String(),
		ev.OccurredAt.Format("2006-01-02 15:04:05"),
	}
}

// NewEventsCmd создаёт команду, печатающую события из outreach.events.
// Работает напрямую с RabbitMQ, минуя API.
func NewEventsCmd(outputFn func() *Output) *cobra.Command {
	var amqpURL, pattern string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail run, request and sighting events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			conn, err := mq.NewConnection(amqpURL, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			out := outputFn()
			tailer := mq.NewTailer(conn, logger, mq.TailerConfig{
				Pattern: mq.RoutingKey(pattern),
				Handler: func(ctx context.Context, d *mq.Delivery) error {
					ev, err := d.Event()
					if err != nil {
						return err
					}
					out.Print(eventHeaders, [][]string{eventRow(ev)}, ev)
					return nil
				},
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := tailer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", mq.DefaultURL, "RabbitMQ URL")
	cmd.Flags().StringVar(&pattern, "pattern", "#", `Routing key pattern ("run.*", "request.status", "#")`)
	return cmd
}
