package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"omniscore/internal/compose"
	"omniscore/internal/domain"
	"omniscore/internal/infra"
	"omniscore/internal/library"
	"omniscore/internal/pipeline"
	"omniscore/internal/posts"
	"omniscore/internal/providers"
	"omniscore/internal/providers/genai"
	"omniscore/internal/storage"
)

func main() {
	var (
		opsFlag         string
		topicFlag       string
		titleFlag       string
		contentFlag     string
		typeFlag        string
		platformsFlag   string
		sizeFlag        string
		aspectFlag      string
		editFlag        string
		videoPromptFlag string
		videoEditFlag   string
		videoAspectFlag string
		outFlag         string
		timeoutFlag     time.Duration
	)
	flag.StringVar(&opsFlag, "ops", "caption,image_generate", "Comma separated operations to run in order")
	flag.StringVar(&topicFlag, "topic", "", "Post topic, used for captions and image prompts")
	flag.StringVar(&titleFlag, "title", "", "Post title (publish)")
	flag.StringVar(&contentFlag, "content", "", "Post content; caption overwrites it")
	flag.StringVar(&typeFlag, "type", "", "Content type: text, reel or vlog")
	flag.StringVar(&platformsFlag, "platforms", "", "Comma separated target platforms")
	flag.StringVar(&sizeFlag, "size", "", "Image size tier: 1K, 2K or 4K")
	flag.StringVar(&aspectFlag, "aspect", "", "Image aspect ratio")
	flag.StringVar(&editFlag, "edit", "", "Image edit instruction")
	flag.StringVar(&videoPromptFlag, "video-prompt", "", "Animation prompt")
	flag.StringVar(&videoEditFlag, "video-edit", "", "Extend, edit or trim instruction")
	flag.StringVar(&videoAspectFlag, "video-aspect", "", "Video aspect ratio: 16:9 or 9:16")
	flag.StringVar(&outFlag, "out", "./compose-out", "Directory receiving generated files")
	flag.DurationVar(&timeoutFlag, "timeout", 15*time.Minute, "Overall deadline for the chain")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		fail("load config: %v", err)
	}

	if _, err := compose.ParseOps(strings.Split(opsFlag, ",")); err != nil {
		fail("%v", err)
	}

	outDir, err := filepath.Abs(outFlag)
	if err != nil {
		fail("resolve output directory: %v", err)
	}
	blobs, err := storage.NewFileStore(outDir, "file://"+filepath.ToSlash(outDir))
	if err != nil {
		fail("prepare output directory: %v", err)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "compose").Logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeoutFlag)
	defer cancel()

	client := genai.NewClient(genai.Options{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL, Logger: &logger})
	if client.Offline() {
		logger.Warn().Msg("GEMINI_API_KEY not set, generating synthetic media")
	}
	lib := library.New()
	manager := pipeline.NewManager(ctx, pipeline.Dependencies{
		Generator: providers.NewGeminiStudio(client, blobs, cfg, logger),
		Assets:    lib,
		Posts:     posts.NewStore(),
	}, logger)

	patch := pipeline.DraftPatch{}
	setIf := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	setIf(&patch.Topic, topicFlag)
	setIf(&patch.Title, titleFlag)
	setIf(&patch.Content, contentFlag)
	setIf(&patch.ContentType, typeFlag)
	setIf(&patch.ImageSize, sizeFlag)
	setIf(&patch.ImageAspect, aspectFlag)
	setIf(&patch.EditPrompt, editFlag)
	setIf(&patch.VideoPrompt, videoPromptFlag)
	setIf(&patch.VideoEditPrompt, videoEditFlag)
	setIf(&patch.VideoAspect, videoAspectFlag)
	if platformsFlag != "" {
		var platforms []domain.Platform
		for _, p := range strings.Split(platformsFlag, ",") {
			platforms = append(platforms, domain.Platform(strings.TrimSpace(p)))
		}
		patch.Platforms = &platforms
	}

	enc := json.NewEncoder(os.Stdout)
	runner := compose.NewRunner(manager, compose.Options{
		Blobs: blobs,
		OnStep: func(step compose.Step) {
			line := map[string]any{"step": step}
			if step.Asset != nil {
				if path, err := saveAsset(ctx, blobs, step.Asset.Name, step.Asset.URL); err != nil {
					logger.Warn().Err(err).Str("asset", step.Asset.Name).Msg("asset not written")
				} else if path != "" {
					line["file"] = path
				}
			}
			if key, ok := blobs.KeyFromURL(step.Audio); ok {
				line["file"] = filepath.Join(outDir, filepath.FromSlash(key))
			}
			_ = enc.Encode(line)
		},
	}, logger)

	res := runner.Run(ctx, compose.Job{
		ID:    fmt.Sprintf("cli-%d", time.Now().UnixMilli()),
		Draft: patch,
		Ops:   strings.Split(opsFlag, ","),
	})
	if res.Status != compose.StatusSucceeded {
		fail("%s", res.Error)
	}
	logger.Info().Int("assets", lib.Counts().Total).Str("out", outDir).Msg("chain finished")
}

// saveAsset writes data URI images next to the stored clips. Clips are
// already in the output directory.
func saveAsset(ctx context.Context, blobs *storage.FileStore, name, locator string) (string, error) {
	if !strings.HasPrefix(locator, "data:") {
		if key, ok := blobs.KeyFromURL(locator); ok {
			return filepath.Join(blobs.BasePath(), filepath.FromSlash(key)), nil
		}
		return "", nil
	}
	in, err := genai.ParseDataURI(locator)
	if err != nil {
		return "", err
	}
	key, err := blobs.Write(ctx, "images/"+filepath.Base(name), in.Data)
	if err != nil {
		return "", err
	}
	return filepath.Join(blobs.BasePath(), filepath.FromSlash(key)), nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
