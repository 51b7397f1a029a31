package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-yaml/yaml"
	"github.com/spf13/cobra"

	"github.com/totegamma/curatorgate/client"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:           "curatorctl",
	Short:         "curatorctl talks to a curatorgate server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CURATORGATE_URL", "http://localhost:8000"), "curatorgate base url")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CURATORGATE_TOKEN"), "session or admin bearer token")

	rootCmd.AddCommand(verifyCmd, checkCmd, issueCmd, showCmd)
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func printYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
