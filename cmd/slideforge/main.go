package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/engine"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "slideforge",
	Short: "Таймлайн слайдов: проекты, кадры и рендер в видео",
	Long: `slideforge собирает проекты из PDF или папки с изображениями,
раскладывает элементы по дорожкам таймлайна и записывает результат в видео
через FFmpeg с фиксированным шагом кадра.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			engine.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Путь к YAML-конфигу (по умолчанию: встроенные значения)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробный лог в stderr")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(frameCmd)
	rootCmd.AddCommand(inspectCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
}
