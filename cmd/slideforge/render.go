package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/engine"
	"github.com/ivlev/slideforge/internal/system"
	"github.com/ivlev/slideforge/internal/video"
)

var renderCmd = &cobra.Command{
	Use:   "render [project.yaml]",
	Short: "Записать проект в видео",
	Long: `Загружает ресурсы проекта и проигрывает таймлайн с фиксированным шагом,
передавая каждый кадр в FFmpeg. Без аргумента берется самый свежий проект
из projects/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderOutput  string
	renderWidth   int
	renderHeight  int
	renderFPS     int
	renderWorkers int
	renderQuality int
	renderEncoder string
	renderStats   bool
)

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "Ширина кадра (если 0, из конфига)")
	renderCmd.Flags().IntVar(&renderHeight, "height", 0, "Высота кадра (если 0, из конфига)")
	renderCmd.Flags().IntVar(&renderFPS, "fps", 0, "FPS (если 0, из конфига)")
	renderCmd.Flags().IntVar(&renderWorkers, "workers", runtime.NumCPU(), "Потоки")
	renderCmd.Flags().IntVar(&renderQuality, "quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	renderCmd.Flags().StringVar(&renderEncoder, "encoder", "", "Кодек: auto, libx264, h264_nvenc, h264_videotoolbox (если пусто, из конфига)")
	renderCmd.Flags().BoolVar(&renderStats, "stats", false, "Показать статистику памяти после рендера")
}

func applyRenderFlags(cfg *config.Config, cmd *cobra.Command) {
	if renderWidth > 0 {
		cfg.Capture.Width = renderWidth
	}
	if renderHeight > 0 {
		cfg.Capture.Height = renderHeight
	}
	if renderFPS > 0 {
		cfg.Capture.FPS = renderFPS
	}
	if cmd.Flags().Changed("workers") || cfg.Capture.Workers <= 0 {
		cfg.Capture.Workers = renderWorkers
	}
	if renderEncoder != "" {
		cfg.Capture.Encoder = renderEncoder
	}
	if renderQuality > 0 {
		cfg.Capture.Quality = renderQuality
	}
	if renderStats {
		cfg.Capture.ShowStats = true
	}
	if renderOutput != "" {
		cfg.Capture.Output = renderOutput
	}
}

// pickEncoder resolves "auto" and chooses a default quality for the
// encoder when none was given.
func pickEncoder(cfg *config.Config) {
	if cfg.Capture.Encoder == "" || cfg.Capture.Encoder == "auto" {
		cfg.Capture.Encoder = system.GetBestH264Encoder()
		if cfg.Capture.Encoder != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.Capture.Encoder)
		}
		if renderQuality == 0 {
			cfg.Capture.Quality = 0
		}
	}
	if cfg.Capture.Quality == 0 {
		switch cfg.Capture.Encoder {
		case "h264_videotoolbox":
			cfg.Capture.Quality = 75 // Хорошее качество для VideoToolbox
		case "h264_nvenc":
			cfg.Capture.Quality = 28 // Эквивалент CRF для NVENC
		default:
			cfg.Capture.Quality = 23 // Стандартный CRF для x264
		}
	}
}

func outputPath(projectFile string) string {
	baseName := filepath.Base(projectFile)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}

func runRender(cmd *cobra.Command, args []string) error {
	system.InitResourceLimits()
	if err := system.CheckFFmpeg(); err != nil {
		return err
	}

	path := projectPath(args)
	cfg := loadConfig()
	applyRenderFlags(cfg, cmd)
	pickEncoder(cfg)
	if cfg.Capture.Output == "" {
		if err := os.MkdirAll("output", 0755); err != nil {
			return err
		}
		cfg.Capture.Output = outputPath(path)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, doc, err := openProject(path, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	assets, err := loadAssets(ctx, s, cfg.Capture.Workers, doc.DPI)
	if err != nil {
		return err
	}

	fmt.Printf("[*] Рендер: %dx%d @ %d FPS, %.2fs (%s)\n",
		cfg.Capture.Width, cfg.Capture.Height, cfg.Capture.FPS, s.TotalDuration(), cfg.Capture.Encoder)

	rep, err := s.Capture(ctx, assets, video.NewFFmpegSink())
	if err != nil {
		var ce *engine.CaptureError
		if errors.As(err, &ce) {
			return fmt.Errorf("рендер прерван на кадре %d: %w", ce.Frame, ce.Err)
		}
		return err
	}

	if rep.Skipped > 0 {
		log.Printf("[!] Пропущено отрисовок элементов: %d", rep.Skipped)
	}
	fmt.Printf("[*] Кадров: %d за %s (%.1f FPS)\n", rep.Frames, rep.Wall.Round(time.Millisecond), rep.EffectiveFPS())
	if rep.Host != nil {
		fmt.Printf("[*] %s\n", rep.Host)
	}
	fmt.Printf("[+++] Успех! Результат: %s (%s)\n", rep.Artifact.Path, system.FormatBytes(uint64(rep.Artifact.Bytes)))
	return nil
}
