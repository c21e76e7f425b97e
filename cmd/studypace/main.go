package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studypace/studypace/internal/profile"
	"github.com/studypace/studypace/internal/version"
	"github.com/studypace/studypace/server"
	"github.com/studypace/studypace/store"
	"github.com/studypace/studypace/store/db"
)

const greetingBanner = `
     _             _
 ___| |_ _   _  __| |_   _ _ __   __ _  ___ ___
/ __| __| | | |/ _` + "`" + ` | | | | '_ \ / _` + "`" + ` |/ __/ _ \
\__ \ |_| |_| | (_| | |_| | |_) | (_| | (_|  __/
|___/\__|\__,_|\__,_|\__, | .__/ \__,_|\___\___|
                     |___/|_|
`

var rootCmd = &cobra.Command{
	Use:   "studypace",
	Short: "A spaced-repetition study scheduler that paces you to exam day",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		instanceProfile, err := buildProfile()
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Print(greetingBanner)
		slog.Info("starting studypace",
			slog.String("version", instanceProfile.Version),
			slog.String("mode", instanceProfile.Mode),
			slog.String("driver", instanceProfile.Driver))

		return s.Start(ctx)
	},
}

func buildProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:        viper.GetString("mode"),
		Addr:        viper.GetString("addr"),
		Port:        viper.GetInt("port"),
		UNIXSock:    viper.GetString("unix-sock"),
		Data:        viper.GetString("data"),
		Driver:      viper.GetString("driver"),
		DSN:         viper.GetString("dsn"),
		InstanceURL: viper.GetString("instance-url"),
	}
	p.Version = version.GetCurrentVersion(p.Mode)
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server: "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8231, "port of the server")
	rootCmd.PersistentFlags().String("unix-sock", "", "unix socket path, overrides addr and port")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver: "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("instance-url", "", "public url of this instance")

	for _, flag := range []string{"mode", "addr", "port", "unix-sock", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("studypace")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
