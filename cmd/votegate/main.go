package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/config"
	"github.com/xxxsen/votegate/internal/db"
	"github.com/xxxsen/votegate/internal/handler"
	"github.com/xxxsen/votegate/internal/metrics"
	"github.com/xxxsen/votegate/internal/middleware"
	"github.com/xxxsen/votegate/internal/pkg/password"
	"github.com/xxxsen/votegate/internal/repo"
	"github.com/xxxsen/votegate/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "votegate",
		Short: "votegate ballot server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run votegate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(context.Background()).Info("migrations applied")
			return nil
		},
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "print a bcrypt hash for admin.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "delete all submissions and retire outstanding codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			driver := cfg.Database.Driver
			admin := service.NewAdminService(conn,
				repo.NewIdentityRepo(conn, driver),
				repo.NewOTPRepo(conn, driver),
				repo.NewSubmissionRepo(conn, driver),
				cfg.Admin, []byte(cfg.Session.Secret), cfg.Questions)
			result, err := admin.Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submissions deleted: %d, codes retired: %d\n", result.SubmissionsDeleted, result.CodesRetired)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd, hashCmd, resetCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("mail", cfg.Mail.Type),
		zap.Bool("eligibility_check", cfg.EligibilityCheckEnabled),
	)

	driver := cfg.Database.Driver
	identityRepo := repo.NewIdentityRepo(conn, driver)
	otpRepo := repo.NewOTPRepo(conn, driver)
	submissionRepo := repo.NewSubmissionRepo(conn, driver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	codeTTL := time.Duration(cfg.OTP.TTLSeconds) * time.Second
	secret := []byte(cfg.Session.Secret)
	mailSender := service.NewEmailSender(cfg.Mail)
	codeSender := service.NewCodeSender(mailSender, cfg.Mail.Subject, codeTTL)
	ballotService := service.NewBallotService(identityRepo, otpRepo, submissionRepo, codeSender, service.BallotOptions{
		EligibilityCheckEnabled: cfg.EligibilityCheckEnabled,
		CodeTTL:                 codeTTL,
		Questions:               cfg.Questions,
	}, service.WithRecorder(metrics.NewCollector(reg)))
	questionService, err := service.NewQuestionService(cfg.Questions)
	if err != nil {
		return fmt.Errorf("init questions: %w", err)
	}
	adminService := service.NewAdminService(conn, identityRepo, otpRepo, submissionRepo, cfg.Admin, secret, cfg.Questions)

	reg.MustRegister(metrics.NewStatsCollector(adminService, 5*time.Second))

	session := middleware.NewSession(secret, cfg.Session.CookieName, time.Duration(cfg.Session.TTLMinutes)*time.Minute, cfg.Session.CookieSecure)
	deps := handler.RouterDeps{
		Ballot:          handler.NewBallotHandler(ballotService, questionService, session),
		Admin:           handler.NewAdminHandler(adminService),
		Session:         session,
		AdminSecret:     secret,
		RateLimitWindow: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		RateLimitKeys:   cfg.RateLimit.MaxKeys,
		Metrics:         metrics.Handler(reg),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
