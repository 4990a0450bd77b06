package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/favbox/breeze/app/server"
	"github.com/favbox/breeze/app/tracing"
	"github.com/favbox/breeze/common/config"
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/network/netpoll"
	"github.com/favbox/breeze/network/standard"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动服务器",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, fc)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// 运行服务器直至 ctx 结束或服务器出错，ctx 结束后优雅退出。
func serve(ctx context.Context, fc *config.FileConfig) error {
	opts := fc.Options()
	switch fc.Transport {
	case "netpoll":
		if fc.TLS.Key != "" && fc.TLS.Cert != "" {
			hlog.SystemLogger().Warnf("netpoll 不支持 TLS，改用标准库传输器")
			opts = append(opts, server.WithTransport(standard.NewTransporter))
		} else {
			opts = append(opts, server.WithTransport(netpoll.NewTransporter))
		}
	case "standard":
		opts = append(opts, server.WithTransport(standard.NewTransporter))
	}

	if fc.Tracing == "stdout" {
		tp, err := tracing.NewStdoutProvider(os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				hlog.SystemLogger().Warnf("关闭跟踪导出器失败：%v", err)
			}
		}()
		opts = append(opts, server.WithTracer(tracing.NewTracer(tp)))
	}

	b, err := server.Default(nil, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(b.Run)
	g.Go(func() error {
		<-gctx.Done()
		hlog.SystemLogger().Infof("开始优雅退出，最多等待 %s...", b.GetOptions().ExitWaitTimeout)
		sctx, cancel := context.WithTimeout(context.Background(), b.GetOptions().ExitWaitTimeout)
		defer cancel()
		err := b.Shutdown(sctx)
		if errors.Is(err, errs.ErrNotRunning) {
			// 服务器未能启动
			return b.Close()
		}
		return err
	})
	return g.Wait()
}
