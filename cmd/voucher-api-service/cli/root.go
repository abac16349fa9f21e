package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	defaultConfigFileName         = "config.yml"
	defaultProtocolParamsFileName = "protocol_params.json"
)

var (
	cfgPath            string
	protocolParamsPath string
	replayFlag         bool
	rootCmd            = &cobra.Command{
		Use: "start-server",
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := getDefaultConfigFile(homePath, defaultConfigFileName)
	defaultProtocolParamsPath := getDefaultConfigFile(homePath, defaultProtocolParamsFileName)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	rootCmd.PersistentFlags().StringVar(&protocolParamsPath, "params", defaultProtocolParamsPath, fmt.Sprintf("protocol params file (default %s)", defaultProtocolParamsPath))
	rootCmd.PersistentFlags().BoolVar(&replayFlag, "replay", false, "replay parked unprocessable messages and exit")
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}

func GetProtocolParamsPath() string {
	return protocolParamsPath
}

func GetReplayFlag() bool {
	return replayFlag
}
