package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/engine"
	"github.com/ivlev/slideforge/internal/project"
	"github.com/ivlev/slideforge/internal/source"
)

// projectPath returns args[0] or the newest project in project.DefaultDir.
func projectPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	latest, err := project.FindLatest(project.DefaultDir)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v. Создайте проект командой `slideforge new`", err)
	}
	fmt.Printf("[*] Выбран проект: %s\n", latest)
	return latest
}

// openProject reads path into a new session. The document canvas
// overrides the configured one.
func openProject(path string, cfg *config.Config) (*engine.Session, *project.Document, error) {
	doc, err := project.Read(path)
	if err != nil {
		return nil, nil, err
	}
	doc.Apply(cfg)

	s := engine.NewSession(cfg)
	if err := s.Load(doc.Elements); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, doc, nil
}

// loadAssets decodes every asset the session uses and attaches the decoded
// sizes. Failed assets are reported and later skipped when drawing.
func loadAssets(ctx context.Context, s *engine.Session, workers, dpi int) (*source.Cache, error) {
	cache := source.NewCache()
	loader := source.NewLoader(cache, workers)
	if dpi > 0 {
		loader.Decoder.DPI = dpi
	}

	refs := engine.AssetRefs(s.Elements())
	if len(refs) == 0 {
		return cache, nil
	}
	fmt.Printf("[*] Загрузка ресурсов: %d (потоков: %d)\n", len(refs), loader.Workers)

	rep, err := loader.Load(ctx, refs, func(ref string, w, h int) {
		s.AttachAssetByRef(ref, w, h)
	})
	if err != nil {
		return nil, err
	}
	for ref, ferr := range rep.Failed {
		log.Printf("[!] Ресурс %s не загружен: %v", ref, ferr)
	}
	return cache, nil
}
