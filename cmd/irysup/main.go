// IrysUp creator — text-over-image design tool.
//
// Usage:
//
//	irysup init [--design design.json] [--background background.png]
//	irysup render --design <path> -o <file> [--background <path>] [--font <path>]
//	irysup publish --background <path> --name <name> [options]
//	irysup serve [--port 8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/xob0t/irysup-creator/clients/server"
	"github.com/xob0t/irysup-creator/pkg/assets"
	"github.com/xob0t/irysup-creator/pkg/creator"
	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/editor"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "publish":
		err = runPublish(os.Args[2:])
	case "serve":
		err = server.RunServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		fatal(err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var designOut, bgOut string
	fs.StringVar(&designOut, "design", "design.json", "Output path for the sample design")
	fs.StringVar(&bgOut, "background", "background.png", "Output path for the sample background")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.WriteFile(designOut, []byte(design.ExampleJSON()), 0644); err != nil {
		return fmt.Errorf("write design: %w", err)
	}
	cfg := generator.Config{Width: 1280, Height: 720, Color: editor.PlaceholderColor}
	if err := generator.Generate(bgOut, cfg); err != nil {
		return fmt.Errorf("write background: %w", err)
	}

	fmt.Printf("Created: %s, %s\n", designOut, bgOut)
	fmt.Printf("Run: irysup render --design %s -o output.png\n", designOut)
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		designPath string
		bgPath     string
		fontPath   string
		output     string
		verbose    bool
	)
	fs.StringVar(&designPath, "design", "", "Path to design JSON")
	fs.StringVar(&bgPath, "background", "", "Background image (default: the design's backgroundUrl, relative to the design file)")
	fs.StringVar(&fontPath, "font", "", "TTF/OTF font file (optional)")
	fs.StringVar(&output, "o", "", "Output file path (.png, .jpg or .bmp)")
	fs.StringVar(&output, "output", "", "Output file path (.png, .jpg or .bmp)")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if designPath == "" || output == "" {
		return errors.New("--design and -o are required")
	}
	log := newLogger(verbose)

	rec, warnings, err := design.Load(designPath)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	if bgPath == "" && rec.BackgroundURL != "" {
		if strings.Contains(rec.BackgroundURL, "://") {
			log.Warn("remote backgroundUrl ignored, pass --background", "url", rec.BackgroundURL)
		} else {
			bgPath = filepath.Join(filepath.Dir(designPath), filepath.FromSlash(rec.BackgroundURL))
		}
	}

	var bg image.Image
	if bgPath != "" {
		data, err := os.ReadFile(bgPath)
		if err != nil {
			return fmt.Errorf("read background: %w", err)
		}
		img, format, err := creator.DecodeImage(data)
		if err != nil {
			return err
		}
		log.Debug("background decoded", "path", bgPath, "format", format, "size", img.Bounds().Size())
		bg = img
	} else {
		log.Warn("no background, rendering on the placeholder color")
		bg = generator.NewSolidImage(max(rec.CanvasWidth, 1), max(rec.CanvasHeight, 1), generator.ParseHexRGBA(editor.PlaceholderColor))
	}

	var fontData []byte
	if fontPath != "" {
		if fontData, err = os.ReadFile(fontPath); err != nil {
			return fmt.Errorf("read font: %w", err)
		}
	}

	img, err := creator.Compose(rec, bg, fontData, log)
	if err != nil {
		return err
	}
	if err := generator.Generate(output, generator.Config{Image: img}); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", output)
	return nil
}

func runPublish(args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	var (
		configPath string
		bgPath     string
		fontPath   string
		name       string
		text       string
		size       int
		color      string
		x, y       float64
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "Config JSON (apiBaseUrl, token, timeout, profile)")
	fs.StringVar(&bgPath, "background", "", "Background image to upload")
	fs.StringVar(&fontPath, "font", "", "Custom font to upload (.ttf, .otf, .woff, .woff2)")
	fs.StringVar(&name, "name", "", "Design name in the collection")
	fs.StringVar(&text, "text", editor.DefaultText, "Overlay text")
	fs.IntVar(&size, "size", editor.DefaultFontSize, "Font size in pixels")
	fs.StringVar(&color, "color", editor.DefaultColor, "Text color (#rrggbb)")
	fs.Float64Var(&x, "x", -1, "Text X in canvas pixels (default: centered)")
	fs.Float64Var(&y, "y", -1, "Text Y in canvas pixels (default: centered)")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if bgPath == "" || name == "" {
		return errors.New("--background and --name are required")
	}
	log := newLogger(verbose)

	cfg, err := creator.LoadConfig(configPath)
	if err != nil {
		return err
	}
	app, err := creator.New(cfg, creator.Options{Logger: log})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, err := app.Open(creator.WorkspaceOptions{})
	if err != nil {
		return err
	}

	rec, err := publish(ctx, w, publishInput{
		bgPath: bgPath, fontPath: fontPath, name: name,
		text: text, size: size, color: color, x: x, y: y,
	})
	if err != nil {
		// Best effort: remove what was uploaded before the failure.
		w.Clear(context.Background())
		return err
	}
	w.Close()

	fmt.Printf("Published %q: %s\n", name, rec.ImageURL)
	return nil
}

type publishInput struct {
	bgPath, fontPath, name string
	text                   string
	size                   int
	color                  string
	x, y                   float64
}

func publish(ctx context.Context, w *creator.Workspace, in publishInput) (design.Record, error) {
	bg, err := openFile(in.bgPath)
	if err != nil {
		return design.Record{}, err
	}
	defer bg.Close()
	if err := w.UploadBackground(ctx, bg.File); err != nil {
		return design.Record{}, err
	}

	if in.fontPath != "" {
		font, err := openFile(in.fontPath)
		if err != nil {
			return design.Record{}, err
		}
		defer font.Close()
		if err := w.UploadFont(ctx, font.File); err != nil {
			return design.Record{}, err
		}
		if w.Status() == creator.StatusFontFallback {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w.Status())
		}
	}

	ed := w.Editor()
	ed.SetText(in.text)
	ed.SetFontSize(in.size)
	if err := ed.SetFontColor(in.color); err != nil {
		return design.Record{}, err
	}
	ed.ResetPosition()
	if in.x >= 0 && in.y >= 0 {
		// Drag from the centered default to the requested spot at 1:1 scale.
		st := ed.State()
		canvas := editor.Rect{Width: float64(st.CanvasSize.Width), Height: float64(st.CanvasSize.Height)}
		if st.Position != nil {
			ed.PointerDown(*st.Position, canvas)
			ed.PointerMove(editor.Point{X: in.x, Y: in.y}, canvas)
			ed.PointerUp()
		}
	}
	if ed.Overflow() {
		fmt.Fprintln(os.Stderr, "Warning: the text extends past the canvas edge")
	}

	if _, err := w.Save(ctx); err != nil {
		return design.Record{}, err
	}
	return w.Publish(ctx, in.name)
}

type openedFile struct {
	assets.File
	f *os.File
}

func (o openedFile) Close() error { return o.f.Close() }

func openFile(path string) (openedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return openedFile{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return openedFile{}, err
	}
	return openedFile{
		File: assets.File{Name: filepath.Base(path), Size: info.Size(), Content: f},
		f:    f,
	}, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`IrysUp creator — text over image designs

USAGE:
    irysup init [--design design.json] [--background background.png]
    irysup render --design <path> -o <file> [--background <path>] [--font <path>]
    irysup publish --background <path> --name <name> [options]
    irysup serve [--port 8080] [--token <t>] [-v]

RENDER:
    --design <path>        Design JSON (see irysup init)
    --background <path>    Background image (default: backgroundUrl next to the design)
    --font <path>          TTF/OTF font (optional)
    -o, --output <path>    Output file (.png, .jpg or .bmp)

PUBLISH:
    --config <path>        Config JSON; IRYSUP_API_URL and IRYSUP_TOKEN override it
    --background <path>    Background image to upload
    --font <path>          Custom font to upload (optional, max 10 MB)
    --name <name>          Design name in the collection
    --text, --size, --color, -x, -y   Text settings

SERVE:
    irysup serve [--port 8080]   Start the development creator API

EXAMPLES:
    irysup init
    irysup render --design design.json -o card.png
    irysup serve --port 8080 &
    IRYSUP_API_URL=http://localhost:8080 irysup publish --background photo.jpg --name "Sunset" --text "Hello"
`)
}
