package main

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/slideforge/internal/renderer"
)

var frameCmd = &cobra.Command{
	Use:   "frame [project.yaml]",
	Short: "Сохранить один кадр проекта в PNG",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFrame,
}

var (
	frameAt     float64
	frameOutput string
)

func init() {
	frameCmd.Flags().Float64Var(&frameAt, "at", 0, "Момент времени в секундах")
	frameCmd.Flags().StringVarP(&frameOutput, "output", "o", "frame.png", "Путь к PNG")
}

func runFrame(cmd *cobra.Command, args []string) error {
	path := projectPath(args)
	cfg := loadConfig()

	s, doc, err := openProject(path, cfg)
	if err != nil {
		return err
	}
	assets, err := loadAssets(context.Background(), s, cfg.Capture.Workers, doc.DPI)
	if err != nil {
		return err
	}

	surface := renderer.NewSurface(
		cfg.Capture.Width, cfg.Capture.Height, cfg.SurfaceScale(),
		renderer.ParseColor(cfg.Canvas.Background, color.RGBA{A: 255}),
		assets,
	)
	dst := surface.NewFrame()
	for _, sk := range surface.Render(dst, s.FrameAt(frameAt)) {
		log.Printf("[!] Элемент %s пропущен: %v", sk.ElementID, sk.Err)
	}

	f, err := os.Create(frameOutput)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return fmt.Errorf("ошибка записи PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("[+++] Кадр %.2fs сохранен: %s\n", frameAt, frameOutput)
	return nil
}
