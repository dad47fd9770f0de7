package proxy

import (
	"context"
	"fmt"

	"github.com/BerryBytes/portalctl/internal/config"
	"github.com/BerryBytes/portalctl/internal/imageproxy"
	generalUtils "github.com/BerryBytes/portalctl/utils/general"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ProxyDependencies struct {
	Config         func() (*config.Config, error)
	Logger         func() zerolog.Logger
	GeneralManager generalUtils.GeneralUtilsInterface
	Loader         imageproxy.ConfigLoader
}

func NewProxyCmd(deps ProxyDependencies) *cobra.Command {
	proxyCmd := &cobra.Command{
		Use:   "proxy",
		Short: "Signed URLs for images in object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	proxyCmd.PersistentFlags().String("bucket", "", "Bucket holding the images (overrides the config)")
	proxyCmd.AddCommand(serveCmd(deps), signCmd(deps))

	return proxyCmd
}

func serveCmd(deps ProxyDependencies) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve GET /api/s3-image until interrupted",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}

			addr, err := cmd.Flags().GetString("addr")
			if err != nil {
				return fmt.Errorf("could not get addr flag: %w", err)
			}
			if addr == "" {
				addr = cfg.Proxy.Addr
			}

			ctx := deps.GeneralManager.HandleSignals()
			srv, err := newServer(ctx, cmd, deps, cfg)
			if err != nil {
				return err
			}

			deps.GeneralManager.PrintBanner(cmd.OutOrStdout(), "image proxy")
			cmd.Printf("Listening on %s (bucket %q)\n", addr, srv.Bucket)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address (overrides the config)")

	return serveCmd
}

func signCmd(deps ProxyDependencies) *cobra.Command {
	return &cobra.Command{
		Use:          "sign KEY",
		Short:        "Print a signed URL for one image key",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			srv, err := newServer(ctx, cmd, deps, cfg)
			if err != nil {
				return err
			}

			key := imageproxy.NormalizeKey(args[0], srv.Bucket)
			if key == "" {
				return imageproxy.ErrMissingKey
			}
			url, err := srv.Sign(ctx, key)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}
}

func newServer(ctx context.Context, cmd *cobra.Command, deps ProxyDependencies, cfg *config.Config) (*imageproxy.Server, error) {
	bucket, err := cmd.Flags().GetString("bucket")
	if err != nil {
		return nil, fmt.Errorf("could not get bucket flag: %w", err)
	}
	if bucket == "" {
		bucket = cfg.Proxy.Bucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: set proxy.bucket or pass --bucket", imageproxy.ErrNotConfigured)
	}

	presigner, err := imageproxy.NewS3Presigner(ctx, imageproxy.StorageSettings{
		Region:          cfg.Proxy.Region,
		Endpoint:        cfg.Proxy.Endpoint,
		AccessKeyID:     cfg.Proxy.AccessKeyID,
		SecretAccessKey: cfg.Proxy.SecretAccessKey,
	}, deps.Loader)
	if err != nil {
		return nil, err
	}

	return imageproxy.NewServer(bucket, presigner,
		imageproxy.WithExpiry(cfg.URLExpiry()),
		imageproxy.WithLogger(deps.Logger()),
	), nil
}
