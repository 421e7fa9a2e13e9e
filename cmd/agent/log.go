package agent

import (
	"github.com/spf13/cobra"
)

// Flag names follow the config keys exactly so the viper decode in
// config.LoadAgentConfig lands on the right fields.
func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	logPrefix := "log."

	f.String(
		logPrefix+"level",
		defaultCfg.Log.Level,
		"-> File log level [debug,info,warn,error]")
	f.String(
		logPrefix+"format",
		defaultCfg.Log.Format,
		"-> File log format [json,console]")
	f.String(
		logPrefix+"path",
		defaultCfg.Log.Path,
		"-> Log file directory")
	f.Int(
		logPrefix+"max_size",
		defaultCfg.Log.MaxSizeMB,
		"-> Max size of a single log file (MB)")
	f.Int(
		logPrefix+"max_age",
		defaultCfg.Log.MaxAgeDays,
		"-> Retention of rotated log files (days)")
}
