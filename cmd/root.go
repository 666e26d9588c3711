/*
Copyright © 2025 docuquery
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rag-be",
	Short: "Document Q&A backend",
	Long: `rag-be answers natural-language questions against a corpus of uploaded
documents. Documents are chunked, embedded and stored in a vector store;
queries retrieve the most similar chunks and synthesize a cited answer.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config/config.yaml", "config file")
}
