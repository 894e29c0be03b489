// Package commands - команды CLI yatube.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Глобальные флаги
	configFile string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "yatube",
	Short: "Yatube - блог-платформа с группами, подписками и комментариями",
	Long: `Yatube - блог-платформа: посты, тематические группы, комментарии
и подписки на авторов.

Настройки читаются из config.yaml (или файла из --config), .env и
переменных окружения с префиксом YATUBE_ (например YATUBE_STORAGE_DRIVER).`,
	SilenceUsage: true,
}

// Execute запускает корневую команду.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
}
