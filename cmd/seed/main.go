package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/config"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/repository"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var days int
	var file string
	var location string
	var from string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机员工, 2: 导入花名册, 3: 插入随机请假, 4: 写入默认排班规则)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&days, "days", 28, "随机请假分布的天数")
	flag.StringVar(&file, "file", "", "花名册文件路径，支持 csv 和 xlsx")
	flag.StringVar(&location, "location", "DXB", "随机员工所属的门店代码")
	flag.StringVar(&from, "from", scheduler.DateKey(time.Now()), "随机请假的起始日期")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	scheduleCfg, err := cfg.ScheduleConfig()
	if err != nil {
		logger.Error("排班配置有误", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx = context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}

		employees, err := seed.SeedEmployees(ctx, repo, r, n, location, scheduleCfg.SpecialDay)
		if err != nil {
			slog.Error("无法插入员工", slog.String("error", err.Error()))
		}
		slog.Info("插入员工成功", slog.Int("count", len(employees)))
	case 2:
		if file == "" {
			slog.Error("请指定花名册文件")
			return
		}

		rows, err := seed.ReadRosterFile(file)
		if err != nil {
			slog.Error("无法读取花名册", slog.String("error", err.Error()))
			return
		}

		records, err := seed.ParseRoster(rows)
		if err != nil {
			slog.Error("花名册内容有误", slog.String("error", err.Error()))
			return
		}

		cnt, err := seed.ImportRoster(ctx, repo, records)
		if err != nil {
			slog.Error("导入花名册失败", slog.String("error", err.Error()))
		}
		slog.Info("导入花名册完成", slog.Int("count", cnt), slog.Int("total", len(records)))
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的请假数量")
			return
		}

		start, err := scheduler.ParseDate(from)
		if err != nil {
			slog.Error("起始日期有误", slog.String("error", err.Error()))
			return
		}

		employees, err := repo.ListRosterEmployees(ctx, location)
		if err != nil {
			slog.Error("无法获取门店员工", slog.String("error", err.Error()))
			return
		}
		ids := make([]int64, 0, len(employees))
		for _, emp := range employees {
			ids = append(ids, emp.ID)
		}

		leaves, err := seed.SeedLeaves(ctx, repo, r, ids, n, start, days)
		if err != nil {
			slog.Error("无法插入请假记录", slog.String("error", err.Error()))
		}
		slog.Info("插入请假记录成功", slog.Int("count", len(leaves)))
	case 4:
		if err := seed.SeedCoverageRules(ctx, repo, seed.DefaultCoverageRules(scheduleCfg)); err != nil {
			slog.Error("无法写入排班规则", slog.String("error", err.Error()))
			return
		}
		slog.Info("写入默认排班规则成功")
	default:
		slog.Error("指定的操作非法")
	}
}
