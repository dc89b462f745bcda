package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hafizbahtiar/console/internal/handler"
	"github.com/hafizbahtiar/console/internal/mockapi"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the route guard in front of the console frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Guard
			if addr != "" {
				cfg.Addr = addr
			}
			if !a.cfg.Logging.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			router, err := handler.NewRouter(cfg, a.log)
			if err != nil {
				return err
			}
			a.log.Info("route guard starting", "addr", cfg.Addr, "upstream", cfg.Upstream)
			return listen(cmd.Context(), cfg.Addr, router, a.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from CONSOLE_GUARD_ADDR)")
	return cmd
}

// mockAPICmd serves the in-process backend on the default API address so the
// other commands work without a real server.
func (a *app) mockAPICmd() *cobra.Command {
	var (
		addr     string
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Run a local stand-in for the console backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := mockapi.New(mockapi.Options{})
			if email != "" {
				if _, err := srv.Auth.Seed(model.User{Email: email, Role: model.RoleOwner, EmailVerified: true}, password); err != nil {
					return fmt.Errorf("seed owner: %w", err)
				}
			}
			a.log.Info("mock api starting", "addr", addr, "owner", email)
			return listen(cmd.Context(), addr, srv.Handler(), a.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address")
	cmd.Flags().StringVar(&email, "owner-email", "owner@example.com", "Seed an owner account with this email")
	cmd.Flags().StringVar(&password, "owner-password", "password123", "Password for the seeded owner")
	return cmd
}

// listen serves h until ctx is canceled, then shuts down gracefully.
func listen(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
