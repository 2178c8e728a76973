package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"fuelcard-backend/lib/configutil"
	"fuelcard-backend/lib/restyutil"
	"fuelcard-backend/lib/scrapers/avtoversant"
	"fuelcard-backend/lib/serviceutil"
	"fuelcard-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fuelcard-cli",
	Short: "fuelcard-cli extracts fuel purchase transactions from the avtoversant portal.",
}

var debugHttp *bool

func init() {
	debugHttp = rootCmd.PersistentFlags().Bool(
		"debug-http", false,
		"Dump every portal HTTP exchange to dev/.state/resty/fuelcard-cli.",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Url       string   `json:"url"`
	Login     string   `json:"login"`
	Password  string   `json:"password"`
	Contracts []string `json:"contracts"`
}

func (c Config) credential() avtoversant.Credential {
	return avtoversant.Credential{
		Url:       c.Url,
		Login:     c.Login,
		Password:  c.Password,
		Contracts: c.Contracts,
	}
}

func createClient(ctx context.Context) *avtoversant.Client {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	if *debugHttp {
		telemetry.InitSlog(true)
		avtoversant.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput("<dev_state>/resty/fuelcard-cli"),
		)
	}

	loginCtx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	client, err := avtoversant.NewClient()
	if err != nil {
		serviceutil.Fatal("failed to initialize portal client", err)
	}
	err = client.Login(loginCtx, cfg.credential())
	if err != nil {
		serviceutil.Fatal("failed to login to the portal", err)
	}

	return client
}
