package commands

import (
	"github.com/mosaicnetworks/glomers/src/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//AddConfigFlags adds the flags shared by every command that runs nodes
func AddConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs, as JSON, to this file")
	cmd.Flags().StringP("metrics-listen", "m", _config.MetricsAddr, "Listen IP:Port for the HTTP metrics service (disabled if empty)")
}

//AddGossipFlags adds the flags of broadcast nodes
func AddGossipFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("gossip-interval", _config.GossipInterval, "Time between gossip rounds")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	if file := viper.ConfigFileUsed(); file != "" {
		_config.Logger().Debugf("Using config file: %s", file)
	}

	if err := _config.Validate(); err != nil {
		_config.Logger().Error(err)
		return err
	}

	_config.Logger().WithFields(logrus.Fields{
		"DataDir":        _config.DataDir,
		"LogLevel":       _config.LogLevel,
		"LogFile":        _config.LogFile,
		"GossipInterval": _config.GossipInterval,
		"MetricsAddr":    _config.MetricsAddr,
	}).Debug("Config")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/glomers.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir)          // search root directory

	// If a config file is found, read it in. Nothing is logged before the
	// second unmarshal since the logger is configured from its result.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
