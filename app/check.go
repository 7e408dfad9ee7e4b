package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dirgate/dirgate/internal/auth"
	"github.com/dirgate/dirgate/internal/config"
)

func init() { //nolint: gochecknoinits
	checkCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration directory")

	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check-directory",
	Short: "Probe the configured directory server (connect and service bind)",
	PreRun: func(_ *cobra.Command, _ []string) {
		if cfg, err = config.ReadConfig(configPath); err != nil {
			panic(err)
		}
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		dirCfg := cfg.Auth.Directory.DirectoryConfig()

		client, errClient := auth.NewDirectoryClient(dirCfg)
		if errClient != nil {
			return errClient
		}

		if errCheck := auth.CheckConnection(client, dirCfg); errCheck != nil {
			return errCheck
		}

		log.Info().
			Str("host", dirCfg.Host).
			Int("port", dirCfg.Port).
			Msg("directory server is reachable and the service bind succeeded")

		return nil
	},
}
