package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/internal/storage"
	"github.com/yeisme/file2crashes/pkg/internal/storage/db"
	"github.com/yeisme/file2crashes/pkg/internal/types"
)

var dbLsFlags struct {
	product string
	channel string
	date    string
	dir     string
}

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list all registered database types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")

			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+dbType)
			}
		},
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the crashes table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCrashes(cmd, func(svc *service.CrashesService) error {
				created, err := svc.Migrate(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "crashes table ready (created: %t)\n", created)

				return nil
			})
		},
	}

	// 不带 --dir 时列出目录，带 --dir 时打印该目录下的证据.
	dbLsCmd = &cobra.Command{
		Use:   "ls",
		Short: "list stored directories, or the evidence of one directory with --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCrashes(cmd, func(svc *service.CrashesService) error {
				ctx := cmd.Context()
				product := service.NormalizeProduct(dbLsFlags.product)
				channel := service.NormalizeChannel(dbLsFlags.channel)
				date := service.NormalizeDate(dbLsFlags.date, time.Now().UTC())

				if dbLsFlags.dir == "" {
					dirs, err := svc.ListDirs(ctx, product, channel, date)
					if err != nil {
						return err
					}

					for _, d := range dirs {
						fmt.Fprintln(cmd.OutOrStdout(), d)
					}

					return nil
				}

				res, err := svc.Get(ctx, product, channel, dbLsFlags.dir, date)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), types.NewFileEvidence(res))
			})
		},
	}
)

// withCrashes 只初始化存储后调用 fn.
func withCrashes(cmd *cobra.Command, fn func(svc *service.CrashesService) error) error {
	ctx := cmd.Context()

	mgr, err := storage.New(ctx, configs.GetConfig())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer mgr.Close()

	ctx = ctxPkg.WithStorageManager(ctx, mgr)
	cmd.SetContext(ctx)

	return fn(service.NewCrashesService(ctx))
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	f := dbLsCmd.Flags()
	f.StringVarP(&dbLsFlags.product, "product", "p", service.DefaultProduct, "product")
	f.StringVar(&dbLsFlags.channel, "channel", service.DefaultChannel, "release channel")
	f.StringVarP(&dbLsFlags.date, "date", "d", "today", "reference date")
	f.StringVar(&dbLsFlags.dir, "dir", "", "directory to print evidence for")

	dbCmd.AddCommand(dbTypesCmd, dbMigrateCmd, dbLsCmd)
	rootCmd.AddCommand(dbCmd)
}
