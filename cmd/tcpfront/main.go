package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"tcpfront/pkg/config"
	"tcpfront/pkg/listener"
	"tcpfront/pkg/logging"
	"tcpfront/pkg/proxy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tcpfront",
		Short:         "TCP load-balancing proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var cfgPath, settingsPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bind all listeners and relay traffic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgPath, settingsPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "f", "tcpfront.cfg", "proxy configuration file")
	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "runtime settings file (YAML)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the proxy configuration without binding sockets",
		RunE: func(_ *cobra.Command, _ []string) error {
			return check(cfgPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "f", "tcpfront.cfg", "proxy configuration file")
	return cmd
}

func loadConfig(cfgPath string, reg *listener.Registry) ([]*proxy.Frontend, error) {
	frontends, err := config.LoadFrontends(cfgPath, reg)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			logging.Errorf("%v", e)
		}
		return nil, err
	}
	return frontends, nil
}

func check(cfgPath string) error {
	frontends, err := loadConfig(cfgPath, listener.New())
	if err != nil {
		return err
	}
	var listeners int
	for _, fe := range frontends {
		listeners += len(fe.Group.Members())
	}
	logging.Infof("configuration valid: %d frontend(s), %d listener(s)", len(frontends), listeners)
	return nil
}

func run(ctx context.Context, cfgPath, settingsPath string) error {
	settings := config.DefaultSettings()
	if settingsPath != "" {
		if err := config.LoadSettings(settingsPath, settings); err != nil {
			logging.Errorf("%v", err)
			return err
		}
	}
	config.LoadSettingsFromEnv(settings)
	if err := settings.Validate(); err != nil {
		logging.Errorf("settings: %v", err)
		return err
	}
	if err := settings.ApplyLogging(); err != nil {
		logging.Errorf("settings: %v", err)
		return err
	}

	reg := listener.New()
	frontends, err := loadConfig(cfgPath, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := listener.NewEngine(reg)
	var (
		proxies []*proxy.Proxy
		bound   []*listener.Listener
		report  listener.Report
	)
	for _, fe := range frontends {
		outcomes, _ := engine.BindAll(ctx, fe.Group.Members())
		for _, out := range outcomes {
			if out.Err != nil {
				report.Fatalf("", "", "%v", out.Err)
				continue
			}
			for _, w := range out.Warnings {
				report.Add(w)
			}
			bound = append(bound, out.Listener)
			proxies = append(proxies, proxy.New(fe, out.Socket))
		}
	}
	if report.HasFatal() {
		// One failed listener aborts the whole startup; release whatever
		// did bind before exiting.
		for _, rec := range report.Records() {
			if rec.Severity == listener.SeverityFatal {
				logging.Errorf("%s", rec)
			}
		}
		for _, l := range bound {
			_ = l.Close()
		}
		return report.Err()
	}

	done := make(chan struct{}, len(proxies))
	for _, p := range proxies {
		go func(p *proxy.Proxy) {
			if err := p.Serve(ctx); err != nil {
				logging.Errorf("serve: %v", err)
			}
			done <- struct{}{}
		}(p)
	}
	if iv := settings.Stats.IntervalSeconds; iv > 0 {
		go proxy.ReportLoop(ctx, time.Duration(iv)*time.Second, proxies)
	}
	logging.Infof("started: %d frontend(s), %d listener(s)", len(frontends), len(proxies))

	<-ctx.Done()
	logging.Infof("shutting down")
	for _, l := range bound {
		_ = l.Close()
	}
	for range proxies {
		<-done
	}
	return nil
}
