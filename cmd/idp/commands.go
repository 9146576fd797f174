package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/idp/internal/idp/app"
	"github.com/aussiebroadwan/idp/internal/idp/seed"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/idx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// NewRootCmd builds the idp command tree.
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "idp",
		Short: "Multi-tenant OAuth2 and OpenID Connect identity provider",
		Long: `idp issues and verifies tokens for tenants and their applications.

Configuration is read from the environment. An optional dotenv file
(AUTH_ENV_FILE, default .env) is applied first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if envFile != "" {
				_ = os.Setenv("AUTH_ENV_FILE", envFile)
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newServeCmd() *cobra.Command {
	var (
		port     int
		issuer   string
		seedFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the identity service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if issuer != "" {
				cfg.Issuer = strings.TrimSuffix(issuer, "/")
			}
			if seedFile != "" {
				cfg.SeedFile = seedFile
			}

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer claim (overrides AUTH_ISSUER)")
	cmd.Flags().StringVar(&seedFile, "seed", "", "seed file applied on start (overrides AUTH_SEED_FILE)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			s, err := app.OpenMigratedStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", s.Driver())
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Apply a YAML seed document",
		Long: `Apply a YAML seed document in one transaction. Entities are upserted by
id, so the same document can be applied repeatedly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			doc, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}

			pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
			if err != nil {
				return fmt.Errorf("failed to load pepper: %w", err)
			}
			sealer, err := cryptox.LoadSealer(cfg.MasterKeyPath)
			if err != nil {
				return fmt.Errorf("failed to load master key: %w", err)
			}

			s, err := app.OpenMigratedStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			logger := slogx.New(slogx.Config{
				Service: "idp",
				Version: app.BuildVersion,
				Env:     cfg.Env,
				Level:   cfg.LogLevel,
				Format:  cfg.LogFormat,
				Output:  cmd.ErrOrStderr(),
			})
			seeder := &seed.Seeder{Store: s, Hasher: cryptox.NewHasher(pepper), Sealer: sealer}
			sum, err := seeder.Apply(slogx.WithContext(cmd.Context(), logger), doc)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d keys (%d generated), %d tenants, %d applications, %d users, %d registrations, %d roles, %d groups, %d api keys\n",
				sum.Keys, sum.KeysGenerated, sum.Tenants, sum.Applications, sum.Users,
				sum.Registrations, sum.Roles, sum.Groups, sum.APIKeys)
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password with the configured pepper",
		Long: `Print an argon2id hash suitable for a registration's passwordHash or an
application's clientSecretHash seed field. The password is read from
--password or the first line of stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if password == "" {
				password, err = readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New("password is required")
			}

			pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
			if err != nil {
				return fmt.Errorf("failed to load pepper: %w", err)
			}
			hash, err := cryptox.NewHasher(pepper).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash (read from stdin when empty)")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	var (
		alg string
		id  string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate signing material as a seed key entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := jwtx.Method(alg); err != nil {
				return fmt.Errorf("%w (supported: %s)", err, strings.Join(jwtx.SupportedAlgorithms, ", "))
			}
			pair, err := cryptox.GenerateKey(alg)
			if err != nil {
				return err
			}
			if id == "" {
				id = idx.NewString()
			}

			entry := seed.Key{
				ID:         id,
				Algorithm:  alg,
				PrivateKey: string(pair.PrivateKey),
				PublicKey:  string(pair.PublicKey),
				Secret:     string(pair.Secret),
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string][]seed.Key{"keys": {entry}}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&alg, "alg", "EdDSA", "signing algorithm")
	cmd.Flags().StringVar(&id, "id", "", "key id (a new ULID when empty)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "idp %s\n", app.BuildVersion)
		},
	}
}

func readLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if sc.Scan() {
		return strings.TrimRight(sc.Text(), "\r"), nil
	}
	return "", sc.Err()
}
