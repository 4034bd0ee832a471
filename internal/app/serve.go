package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subtrack/subtrack/internal/api"
	"github.com/subtrack/subtrack/internal/authstate"
	"github.com/subtrack/subtrack/internal/bot"
	"github.com/subtrack/subtrack/internal/catalog"
	"github.com/subtrack/subtrack/internal/db"
	"github.com/subtrack/subtrack/internal/inference"
	"github.com/subtrack/subtrack/internal/mail"
	"github.com/subtrack/subtrack/internal/scan"
	"github.com/subtrack/subtrack/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serves subscription reads, on-demand scans, chat linking and the bot webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		// Initialize database
		if err := db.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		cat, err := catalog.Load()
		if err != nil {
			return fmt.Errorf("failed to load provider catalog: %w", err)
		}

		subs := store.NewPGSubscriptions(db.Pool)
		users := store.NewPGUsers(db.Pool)
		pipeline := inference.NewPipeline(cat, viper.GetInt("scan.billing_cycle_days"))

		// On-demand scans share the scan service code path but the
		// polling loops stay off: this process only scans when asked.
		scanner := scan.NewService(mail.NewClient(), subs, users, buildNotifier(), pipeline, scan.Config{
			Interval: viper.GetDuration("scan.interval"),
			Lookback: time.Duration(viper.GetInt("scan.lookback_hours")) * time.Hour,
		})

		states := buildAuthStates()
		dispatcher := bot.NewDispatcher(subs, users, scanner, states)
		server := api.NewServer(subs, users, scanner, dispatcher, states)

		addr := fmt.Sprintf(":%s", viper.GetString("http.port"))
		log.Printf("Starting Subtrack API server on %s", addr)
		return http.ListenAndServe(addr, server.Router())
	},
}

// buildAuthStates uses Redis when configured so link tokens survive
// restarts and work across replicas, and an in-process map otherwise.
func buildAuthStates() authstate.Store {
	if addr := viper.GetString("redis.addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		return authstate.NewRedis(client, authstate.DefaultTTL)
	}
	return authstate.NewMemory(authstate.DefaultTTL)
}

func init() {
	serveCmd.Flags().String("http.port", "8081", "HTTP API listen port")
	viper.BindPFlag("http.port", serveCmd.Flags().Lookup("http.port"))

	rootCmd.AddCommand(serveCmd)
}
