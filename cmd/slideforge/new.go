package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/slideforge/internal/engine"
	"github.com/ivlev/slideforge/internal/project"
	"github.com/ivlev/slideforge/internal/source"
	"github.com/ivlev/slideforge/internal/system"
)

var newCmd = &cobra.Command{
	Use:   "new [pdf|папка]",
	Short: "Создать проект из PDF или папки с изображениями",
	Long: `Каждая страница PDF или изображение становится слайдом: масштаб подбирается
под холст, слайды идут друг за другом по первой дорожке. Без аргумента берется
самый свежий PDF из input/pdf/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

var (
	newTitle        string
	newOutput       string
	newDuration     float64
	newPageDuration float64
	newDPI          int
	newPreset       string
	newQR           string
)

func init() {
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Титульная карточка перед слайдами")
	newCmd.Flags().StringVarP(&newOutput, "output", "o", "", "Путь к проекту (если пусто, генерируется автоматически в projects/)")
	newCmd.Flags().Float64Var(&newDuration, "duration", 0, "Общая длительность (если 0, рассчитывается из --page-duration)")
	newCmd.Flags().Float64Var(&newPageDuration, "page-duration", 0, "Длительность одного слайда в секундах (если 0, из конфига)")
	newCmd.Flags().IntVar(&newDPI, "dpi", 150, "DPI растеризации PDF")
	newCmd.Flags().StringVar(&newPreset, "preset", "", "Пресет холста: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	newCmd.Flags().StringVar(&newQR, "qr", "", "Добавить QR-код с этим текстом последним слайдом")
}

func runNew(cmd *cobra.Command, args []string) error {
	system.InitResourceLimits()
	cfg := loadConfig()

	switch newPreset {
	case "":
	case "16:9":
		cfg.Canvas.Width, cfg.Canvas.Height = 1280, 720
	case "9:16":
		cfg.Canvas.Width, cfg.Canvas.Height = 720, 1280
	case "4:5":
		cfg.Canvas.Width, cfg.Canvas.Height = 1080, 1350
	default:
		return fmt.Errorf("неизвестный пресет %q", newPreset)
	}

	inputPath := ""
	if len(args) > 0 {
		inputPath = args[0]
	} else {
		latest, err := system.FindLatestPDF("input/pdf")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите PDF в input/pdf/", err)
		}
		inputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", inputPath)
	}

	src, err := source.Open(inputPath)
	if err != nil {
		return fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	defer src.Close()

	pageCount := src.PageCount()
	if pageCount == 0 {
		return fmt.Errorf("в источнике нет страниц или изображений")
	}

	pages := make([]project.Page, 0, pageCount+1)
	for i := 0; i < pageCount; i++ {
		w, h, err := source.PixelSize(src, i, newDPI)
		if err != nil {
			return fmt.Errorf("страница %d: %w", i+1, err)
		}
		pages = append(pages, project.Page{Ref: src.Ref(i), Width: w, Height: h})
	}
	if newQR != "" {
		size := float64(source.NewDecoder().QRSize)
		pages = append(pages, project.Page{Ref: source.QRRef(newQR), Width: size, Height: size})
	}

	layout := project.NewLayout(cfg.Canvas.Width, cfg.Canvas.Height)
	fallback := newPageDuration
	if fallback <= 0 {
		fallback = cfg.Timeline.DefaultDuration
	}
	slides := len(pages)
	if newTitle != "" {
		slides++
	}
	dwell := layout.Dwell(newDuration, slides, fallback)

	s := engine.NewSession(cfg)
	if err := layout.Build(s, pages, newTitle, dwell); err != nil {
		return err
	}

	out := newOutput
	if out == "" {
		if err := os.MkdirAll(project.DefaultDir, 0755); err != nil {
			return err
		}
		out = project.GeneratePath(project.DefaultDir, time.Now())
	}
	doc := project.New(newTitle, cfg.Canvas, s.Snapshot())
	doc.DPI = newDPI
	if err := project.Write(doc, out); err != nil {
		return fmt.Errorf("ошибка записи проекта: %w", err)
	}

	fmt.Printf("[*] Слайдов: %d, по %.2fs, всего %.2fs\n", slides, dwell, s.TotalDuration())
	fmt.Printf("[+++] Проект создан: %s\n", out)
	return nil
}
