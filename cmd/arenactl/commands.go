package main

import (
	"encoding/json"
	"fmt"

	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"github.com/SlpAus/versus-arena-backend/internal/platform/logger"
	"github.com/SlpAus/versus-arena-backend/internal/platform/startup"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cliOptions 是所有子命令共享的全局参数
type cliOptions struct {
	configDir string
	driver    string
	dsn       string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "arenactl",
		Short:         "Versus Arena 的管理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config", "", "config.yaml 所在目录")
	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "覆盖 database.driver")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "覆盖 database.dsn")

	var dryRun bool
	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "按投票记录重新计算所有条目的分数",
		Long:  "从默认分数出发按写入顺序重放全部投票，修正条目的分数和对决次数。运行中的服务需要重启才能刷新采样权重。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := opts.open()
			if err != nil {
				return err
			}
			report, err := vote.RebuildRatings(cmd.Context(), db, cfg.Arena.DefaultRating, dryRun, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	rebuildCmd.Flags().BoolVar(&dryRun, "dry-run", false, "只打印差异，不写回")

	rootCmd.AddCommand(
		rebuildCmd,
		&cobra.Command{
			Use:   "migrate",
			Short: "创建或更新所有表",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, _, err := opts.open()
				if err != nil {
					return err
				}
				if err := startup.Migrate(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed <catalog.yaml>",
			Short: "从YAML目录导入条目",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cat, err := item.LoadCatalogFile(args[0])
				if err != nil {
					return err
				}
				db, cfg, err := opts.open()
				if err != nil {
					return err
				}
				if err := startup.Migrate(db); err != nil {
					return err
				}
				items, err := item.CreateCatalog(cmd.Context(), db, cat.Items, cfg.Arena.DefaultRating)
				if err != nil {
					return err
				}
				for _, it := range items {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", it.ID, it.Name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已导入 %d 个条目\n", len(items))
				return nil
			},
		},
		&cobra.Command{
			Use:   "stats <pairKey>",
			Short: "打印一个配对的统计",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, cfg, err := opts.open()
				if err != nil {
					return err
				}
				svc := vote.NewStatsService(db, nil, cfg.Arena.Privacy.MinGroupSize, nil)
				stats, err := svc.ComputeStats(cmd.Context(), args[0], "")
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			},
		},
		&cobra.Command{
			Use:   "pair <idA> <idB>",
			Short: "计算两个条目的规范配对键",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, id := range args {
					if !pairkey.ValidID(id) {
						return fmt.Errorf("ID %q 不能为空或包含分隔符 %q", id, pairkey.Separator)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), pairkey.Encode(args[0], args[1]))
				return nil
			},
		},
	)
	return rootCmd
}

// open 加载配置并连接数据库，命令行参数优先于配置文件
func (o *cliOptions) open() (*gorm.DB, *config.Config, error) {
	var paths []string
	if o.configDir != "" {
		paths = append(paths, o.configDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, nil, err
	}
	if o.driver != "" {
		cfg.Database.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Database.DSN = o.dsn
	}

	zl, err := logger.New(config.LogConfig{Level: "warn"})
	if err != nil {
		zl = zap.NewNop()
	}
	db, err := database.InitDB(cfg.Database, zl)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
