package agent

import (
	"github.com/spf13/cobra"
)

func initServerFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	serverPrefix := "server."

	f.Bool(
		serverPrefix+"enabled",
		defaultCfg.Server.Enabled,
		"-> Expose self-metrics over HTTP (/metrics, /health)")
	f.String(
		serverPrefix+"addr",
		defaultCfg.Server.Addr,
		"-> Self-metrics listening address")
	f.Duration(
		serverPrefix+"read_timeout",
		defaultCfg.Server.ReadTimeout,
		"-> Self-metrics read timeout")
	f.Duration(
		serverPrefix+"write_timeout",
		defaultCfg.Server.WriteTimeout,
		"-> Self-metrics write timeout")
	f.Duration(
		serverPrefix+"idle_timeout",
		defaultCfg.Server.IdleTimeout,
		"-> Self-metrics idle connection timeout")
}
