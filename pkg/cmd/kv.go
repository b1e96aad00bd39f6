package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/file2crashes/pkg/configs"
	kv "github.com/yeisme/file2crashes/pkg/internal/storage/kv"
	"github.com/yeisme/file2crashes/pkg/middleware"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	// 清除缓存的 HTTP 响应，ProcessedCrash 缓存不受影响.
	kvPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "drop cached API responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()

			client, err := kv.NewKVClient(cmd.Context(), cfg.KV)
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := middleware.PurgeResponseCache(cmd.Context(), client, cfg.KV.Prefix)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached responses\n", n)

			return nil
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd, kvPurgeCmd)
}
