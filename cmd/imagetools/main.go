package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imagetools-go/internal/app"
	"imagetools-go/internal/compressor"
	"imagetools-go/internal/config"
	"imagetools-go/internal/editor"
	"imagetools-go/internal/imageio"
	"imagetools-go/internal/logger"
	"imagetools-go/internal/statistics"
	"imagetools-go/internal/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile    string
	outputDir  string
	imageNames []string
	verbose    bool
	quiet      bool
	version    = "dev"

	maxSize     string
	canResize   bool
	forceLimit  bool
	resizeValue string
	resizeQual  string
	targetFmt   string
	renameValue string
	filterName  string
	textValue   string
	textFont    string
	textSize    int
	textColor   string
	textPos     string
	thumbSizes  []int
	favicon     bool
	forceConfig bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:     "imagetools",
	Short:   "Batch image editing with size-constrained compression",
	Version: version,
	Long: `ImageTools edits batches of images in a directory and writes the results
to an output directory (new_images by default).

Features:
- Reduce file size below a limit by lowering quality and, if allowed, resizing
- Resize by fixed dimensions or percentage
- Convert between JPEG, PNG, WEBP, BMP, GIF and TIFF (HEIC input supported)
- Filters, text overlays, thumbnails and favicons
- Watch a directory and reduce new images as they arrive

Run without a sub-command for the interactive interface.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

// reduceCmd compresses images below a size limit.
var reduceCmd = &cobra.Command{
	Use:   "reduce <directory>",
	Short: "Reduce images below a maximum file size",
	Long: `Lowers the encoder quality in steps of 5 down to 40 (or 5 with --force)
until each image fits the size limit. With --can-resize the image is also
scaled to 75% once quality reaches 40; adding --force continues with 50%,
25% and 10%.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd.Context(), args[0], func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error) {
			opts, err := reduceOptions(svc.Config())
			if err != nil {
				return nil, err
			}
			return svc.Reduce(ctx, args[0], images, opts)
		})
	},
}

// resizeCmd resizes images.
var resizeCmd = &cobra.Command{
	Use:   "resize <directory>",
	Short: "Resize images to WIDTHxHEIGHT or a percentage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quality, err := editor.ParseFilterQuality(resizeQual)
		if err != nil {
			return err
		}
		mode, err := editor.ParseResizeMode(resizeValue, quality)
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), args[0], func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error) {
			return svc.Resize(ctx, args[0], images, mode)
		})
	},
}

// convertCmd converts images to another format.
var convertCmd = &cobra.Command{
	Use:   "convert <directory>",
	Short: "Convert images to another format",
	Long: `Converts images to the target format. Images already in that format are
skipped. --rename sets a new base name; "--INDEX" appends a counter and
"--START n" sets its first value (default 1), e.g. --rename "trip --INDEX --START 10".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := imageio.ParseFormat(targetFmt)
		if err != nil {
			return imageio.InvalidParameterf("unknown format %q", targetFmt)
		}
		opts := editor.ConvertOptions{Target: target}
		if renameValue != "" {
			p := editor.ParseRenamePattern(renameValue)
			opts.Rename = &p
		}
		return runBatch(cmd.Context(), args[0], func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error) {
			return svc.Convert(ctx, args[0], images, opts)
		})
	},
}

// filterCmd applies a filter.
var filterCmd = &cobra.Command{
	Use:   "filter <directory>",
	Short: "Apply a filter to images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := editor.ParseFilter(filterName)
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), args[0], func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error) {
			return svc.Filter(ctx, args[0], images, f)
		})
	},
}

// addTextCmd draws text onto images.
var addTextCmd = &cobra.Command{
	Use:   "add-text <directory>",
	Short: "Draw text onto images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := editor.ParseTextColor(textColor)
		if err != nil {
			return err
		}
		pos, err := editor.ParseTextPosition(textPos)
		if err != nil {
			return err
		}
		opts := editor.TextOptions{Text: textValue, Font: textFont, SizePercent: textSize, Color: c, Position: pos}
		return runBatch(cmd.Context(), args[0], func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error) {
			return svc.AddText(ctx, args[0], images, opts)
		})
	},
}

// thumbnailCmd creates thumbnails and favicons.
var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail <directory>",
	Short: "Create thumbnails or favicons",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := editor.ThumbnailOptions{Sizes: thumbSizes, Favicon: favicon}
		return runBatch(cmd.Context(), args[0], func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error) {
			return svc.Thumbnail(ctx, args[0], images, opts)
		})
	},
}

// infoCmd prints dimensions, size and EXIF data.
var infoCmd = &cobra.Command{
	Use:   "info <directory>",
	Short: "Show dimensions, size and EXIF data of images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, images, err := prepare(args[0], !quiet)
		if err != nil {
			return err
		}
		for _, info := range svc.Inspect(args[0], images) {
			fmt.Println(info.String())
		}
		return nil
	},
}

// watchCmd reduces images as they appear.
var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and reduce new images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts, err := reduceOptions(cfg)
		if err != nil {
			return err
		}
		svc := app.New(cfg, setupLogger(cfg, true))

		fmt.Fprintf(os.Stderr, "Watching %s, press Ctrl+C to stop\n", args[0])
		stats, err := svc.Watch(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		printSummary(stats)
		return nil
	},
}

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !forceConfig {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "output directory (default from config: new_images)")
	rootCmd.PersistentFlags().StringSliceVar(&imageNames, "images", nil, "comma separated image names to process (default: all)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	for _, cmd := range []*cobra.Command{reduceCmd, watchCmd} {
		cmd.Flags().StringVar(&maxSize, "max-size", "512KB", "maximum file size (512KB, 1024KB or 2048KB)")
		cmd.Flags().BoolVar(&canResize, "can-resize", false, "allow scaling the image down when quality alone is not enough")
		cmd.Flags().BoolVar(&forceLimit, "force", false, "allow quality down to 5 to reach the limit")
	}

	resizeCmd.Flags().StringVar(&resizeValue, "size", "", "WIDTHxHEIGHT or N%")
	resizeCmd.Flags().StringVar(&resizeQual, "quality", "normal", "resampling quality for fixed sizes: normal or high")
	_ = resizeCmd.MarkFlagRequired("size")

	convertCmd.Flags().StringVar(&targetFmt, "format", "", "target format: jpeg, png, webp, bmp, gif or tiff")
	convertCmd.Flags().StringVar(&renameValue, "rename", "", `new base name with optional "--INDEX" and "--START n"`)
	_ = convertCmd.MarkFlagRequired("format")

	filterCmd.Flags().StringVar(&filterName, "filter", "", "filter to apply")
	_ = filterCmd.MarkFlagRequired("filter")

	addTextCmd.Flags().StringVar(&textValue, "text", "", "text to draw")
	addTextCmd.Flags().StringVar(&textFont, "font", "", "font file in the fonts directory (default: built-in)")
	addTextCmd.Flags().IntVar(&textSize, "size", 5, "font size as a percentage of the image width")
	addTextCmd.Flags().StringVar(&textColor, "color", "black", "black, white, red, blue or green")
	addTextCmd.Flags().StringVar(&textPos, "position", "top-left", "top-left, top-right, center, bottom-left or bottom-right")
	_ = addTextCmd.MarkFlagRequired("text")

	thumbnailCmd.Flags().IntSliceVar(&thumbSizes, "sizes", editor.ThumbnailSizes, "thumbnail sizes in pixels")
	thumbnailCmd.Flags().BoolVar(&favicon, "favicon", false, "write a single .ico per image")

	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(reduceCmd, resizeCmd, convertCmd, filterCmd, addTextCmd, thumbnailCmd, infoCmd, watchCmd, configCmd)
}

type batchFunc func(ctx context.Context, svc *app.Service, images []string) (*statistics.Statistics, error)

// runBatch resolves the images of dir, runs fn and prints the summary.
func runBatch(ctx context.Context, dir string, fn batchFunc) error {
	svc, images, err := prepare(dir, !quiet)
	if err != nil {
		return err
	}
	stats, err := fn(ctx, svc, images)
	if err != nil {
		return err
	}
	printSummary(stats)
	return nil
}

// prepare loads the configuration, sets up logging and lists the selected images.
func prepare(dir string, console bool) (*app.Service, []string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc := app.New(cfg, setupLogger(cfg, console))
	images, err := svc.Images(dir, imageNames)
	if err != nil {
		return nil, nil, err
	}
	return svc, images, nil
}

// runInteractive starts the terminal interface.
func runInteractive(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := app.New(cfg, setupLogger(cfg, false))
	return tui.NewManager(svc).Run(ctx)
}

func reduceOptions(cfg *config.Config) (compressor.Options, error) {
	limit, err := cfg.ParseLimit(maxSize)
	if err != nil {
		return compressor.Options{}, err
	}
	return compressor.Options{Limit: limit, AllowResize: canResize, ForceToLimit: forceLimit}, nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if outputDir != "" {
		cfg.OutputDirectory = outputDir
	}
	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config, console bool) *logrus.Logger {
	loggerCfg := cfg.LoggerConfig(console && !quiet)

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func printSummary(stats *statistics.Statistics) {
	if quiet {
		return
	}
	fmt.Println("\n" + stats.GetSummary())
	if len(stats.FormatStats) > 0 {
		fmt.Println("\n" + stats.GetFormatBreakdown())
	}
	if stats.GetImagesWithErrors() > 0 {
		fmt.Println(stats.GetErrorSummary())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
