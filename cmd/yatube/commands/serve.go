package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/web"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var seed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Auth.Secret == "" {
			a.log.Warn("auth.secret is empty: every request is anonymous")
		}
		if seed {
			if err := fillWithMockData(ctx, a.store, a.log); err != nil {
				return err
			}
		}

		pages, err := a.openCache(ctx)
		if err != nil {
			return err
		}
		images, err := a.openMedia()
		if err != nil {
			return err
		}
		templates, err := web.NewTemplates(images.URL)
		if err != nil {
			return err
		}

		srv := web.New(web.Deps{
			Store:    a.store,
			Cache:    pages,
			Media:    images,
			Tokens:   auth.NewTokens(a.cfg.Auth.Secret, a.cfg.Auth.TokenTTL),
			Renderer: templates,
			Log:      a.log,
			PageSize: a.cfg.Posts.PageSize,
			HomeTTL:  a.cfg.Cache.HomeTTL,
			LoginURL: a.cfg.Auth.LoginURL,
		})
		httpServer := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.WithField("addr", a.cfg.Server.Addr).Info("server started")
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&seed, "seed", false, "Fill storage with demo users, a group and posts")
	rootCmd.AddCommand(serveCmd)
}
