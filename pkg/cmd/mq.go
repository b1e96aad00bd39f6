package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/file2crashes/pkg/configs"
	mq "github.com/yeisme/file2crashes/pkg/internal/storage/mq"
	"github.com/yeisme/file2crashes/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "Message queue related commands",
		Aliases: []string{"messagequeue"},
	}

	mqListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered mq types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")

			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	// 订阅分析完成与失败事件并逐条打印，Ctrl-C 结束.
	mqTailCmd = &cobra.Command{
		Use:   "tail",
		Short: "print analysis events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()
			if !cfg.MQ.Enabled {
				return fmt.Errorf("mq is disabled (mq.enabled=false)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client, err := mq.New(ctx, cfg.MQ, mq.Options{})
			if err != nil {
				return err
			}
			defer client.Close()

			g, gctx := errgroup.WithContext(ctx)

			for _, topic := range queue.AllTopics() {
				msgs, err := client.Subscribe(gctx, topic)
				if err != nil {
					return fmt.Errorf("subscribe %s: %w", topic, err)
				}

				g.Go(func() error { return printEvents(gctx, cmd, topic, msgs) })
			}

			return g.Wait()
		},
	}
)

func printEvents(ctx context.Context, cmd *cobra.Command, topic string, msgs <-chan *message.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			var (
				v   any
				err error
			)

			switch topic {
			case queue.TopicAnalysisCompleted:
				v, err = queue.ParseAnalysisCompleted(msg)
			case queue.TopicAnalysisFailed:
				v, err = queue.ParseAnalysisFailed(msg)
			}

			msg.Ack()

			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", topic, err)
				continue
			}

			if err := printJSON(cmd.OutOrStdout(), v); err != nil {
				return err
			}
		}
	}
}

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd, mqTailCmd)
}
