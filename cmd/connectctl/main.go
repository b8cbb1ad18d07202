// connectctl: CLI de operación del flujo connect (inspección de settings,
// chequeo de dominios, migraciones y ejecución manual de un intento).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rotterdam-cs/portal-connect/internal/app"
	"github.com/rotterdam-cs/portal-connect/internal/config"
	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
	"github.com/rotterdam-cs/portal-connect/internal/security/password"
	tokens "github.com/rotterdam-cs/portal-connect/internal/security/token"
	storepg "github.com/rotterdam-cs/portal-connect/internal/store/pg"
)

func main() {
	var (
		envFile    string
		configPath string
	)

	var cfg *config.Config
	var a *app.App

	loadApp := func(cmd *cobra.Command) error {
		if envFile != "" {
			_ = godotenv.Load(envFile)
		}
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.FromEnv()
		}
		logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL"), ServiceName: "connectctl"})
		a, err = app.New(cmd.Context(), cfg)
		return err
	}

	root := &cobra.Command{
		Use:           "connectctl",
		Short:         "Operación del flujo Google connect",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env")
	root.PersistentFlags().StringVar(&configPath, "config", "", "ruta a config.yaml (si no, solo env)")

	showTenant := &cobra.Command{
		Use:   "show-tenant <tenant-id>",
		Short: "Muestra los settings connect de un tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadApp(cmd); err != nil {
				return err
			}
			defer a.Close()
			s, err := a.TenantStore.Settings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.GoogleClientSecret = "" // nunca por stdout
			b, _ := json.MarshalIndent(s, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}

	checkDomain := &cobra.Command{
		Use:   "check-domain <tenant-id> <email>",
		Short: "Evalúa la domain policy para un email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadApp(cmd); err != nil {
				return err
			}
			defer a.Close()
			d := a.Policy.Evaluate(cmd.Context(), args[0], args[1])
			fmt.Printf("decision=%s allowed=%v\n", d, d.Allowed())
			return nil
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema embebido (idempotente)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadApp(cmd); err != nil {
				return err
			}
			defer a.Close()
			if err := storepg.ApplyMigrations(cmd.Context(), a.Pool); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}

	var redirectURI string
	connectCmd := &cobra.Command{
		Use:   "connect <tenant-id> <code>",
		Short: "Corre un intento de conexión completo (debug/ops)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadApp(cmd); err != nil {
				return err
			}
			defer a.Close()
			out, err := a.Orchestrator.Connect(cmd.Context(), args[0], redirectURI, args[1])
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
	connectCmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "redirect URI usada para obtener el code")

	genPassword := &cobra.Command{
		Use:   "gen-password",
		Short: "Genera una password opaca y su hash argon2id",
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := tokens.GenerateOpaqueToken(24)
			if err != nil {
				return err
			}
			phc, err := password.Hash(password.Default, plain)
			if err != nil {
				return err
			}
			fmt.Printf("password=%s\nhash=%s\n", plain, phc)
			return nil
		},
	}

	root.AddCommand(showTenant, checkDomain, migrate, connectCmd, genPassword)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
