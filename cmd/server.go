package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/example/op-booking/internal/metrics"
	"github.com/example/op-booking/internal/session"
	"github.com/example/op-booking/internal/web"
)

func newServerCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the patient web portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			env, err := loadEnv(metrics.NewPortalMetrics(reg))
			if err != nil {
				return err
			}
			if addr == "" {
				addr = env.cfg.ListenAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			ws := &web.Server{
				API:            env.api,
				Codec:          session.NewCookieCodec(env.cfg.SessionHashKey, env.cfg.SessionBlockKey),
				Letterhead:     env.letterhead(),
				Log:            env.log,
				Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				RecordsRefresh: env.cfg.RecordsRefresh,
			}
			h, err := ws.Routes()
			if err != nil {
				return err
			}
			return web.Start(ctx, addr, h, env.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default LISTEN_ADDR)")
	return cmd
}
