// Package cli implements the favourpro CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/favourpro/internal/affinity"
	"github.com/rcliao/favourpro/internal/config"
	"github.com/rcliao/favourpro/internal/model"
)

var (
	cfgFile    string
	formatFlag string
	asUser     string

	v = viper.New()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "favourpro",
	Short: "Affinity state for AI assistants",
	Long: "Keeps a favour score, attitude and relationship per user, injects them into the system prompt " +
		"and applies the [Favour: .., Attitude: .., Relationship: ..] marker the assistant appends to its replies.",
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default: $FAVOURPRO_CONFIG or ~/.favourpro/config.yaml)")
	pf.StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
	pf.StringVar(&asUser, "as-user", "", "Run as this non-admin user instead of the operator")
	pf.String("backend", "", "Store backend: json, sqlite or redis")
	pf.String("store-path", "", "State file or database path")
	pf.String("redis-addr", "", "Redis address for the redis backend")
	pf.Bool("session-based", false, "Key records by session and user")
	pf.String("log-level", "", "Log level: debug, info, warn or error")

	v.BindPFlag("store.backend", pf.Lookup("backend"))
	v.BindPFlag("store.path", pf.Lookup("store-path"))
	v.BindPFlag("store.redis_addr", pf.Lookup("redis-addr"))
	v.BindPFlag("session_based", pf.Lookup("session-based"))
	v.BindPFlag("log.level", pf.Lookup("log-level"))
}

// openEngine loads configuration and opens the store behind an engine. The
// returned func closes the store and must run before the command returns.
func openEngine(cmd *cobra.Command) (*affinity.Engine, func()) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		exitErr("load config", err)
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		exitErr("logger", err)
	}
	s, err := cfg.OpenStore(cmd.Context(), logger)
	if err != nil {
		exitErr("open store", err)
	}
	e, err := affinity.New(s, cfg, logger)
	if err != nil {
		s.Close()
		exitErr("init engine", err)
	}
	return e, func() {
		if err := s.Close(); err != nil {
			exitErr("close store", err)
		}
	}
}

// caller is the operator (an administrator) unless --as-user is given.
func caller() affinity.Caller {
	if asUser != "" {
		return affinity.Caller{ID: asUser}
	}
	return affinity.Caller{ID: "operator", Admin: true}
}

func identityFlags(cmd *cobra.Command, required bool) {
	cmd.Flags().StringP("user", "u", "", "User ID")
	cmd.Flags().StringP("session", "s", "", "Session ID (used when session_based is on)")
	if required {
		cmd.MarkFlagRequired("user")
	}
}

func identity(cmd *cobra.Command) model.Identity {
	user, _ := cmd.Flags().GetString("user")
	session, _ := cmd.Flags().GetString("session")
	return model.Identity{UserID: user, SessionID: session}
}

// readText takes positional args first, then piped stdin.
func readText(cmd *cobra.Command, args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return ""
	}
	b, err := io.ReadAll(in)
	if err != nil {
		exitErr("read stdin", err)
	}
	return string(b)
}

// render writes v in the selected format. text renders the plain form and
// may be nil, in which case JSON is used.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) {
	w := cmd.OutOrStdout()
	switch formatFlag {
	case "text":
		if text != nil {
			text(w)
			return
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			exitErr("encode yaml", err)
		}
		enc.Close()
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func exitErr(msg string, err error) {
	var denied *affinity.DeniedError
	if errors.As(err, &denied) {
		fmt.Fprintln(os.Stderr, denied.Message)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
