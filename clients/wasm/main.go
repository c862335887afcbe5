//go:build js && wasm

// IrysUp creator WASM — drives the text editor on a browser canvas.
// Compiled with: GOOS=js GOARCH=wasm go build -o creator.wasm ./clients/wasm/
package main

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"log/slog"
	"os"
	"sync"
	"syscall/js"
	"time"

	"github.com/xob0t/irysup-creator/pkg/creator"
	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/editor"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

// One editor per page; goEditorOpen replaces it.
var (
	mu     sync.Mutex
	active *editor.Editor
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

func main() {
	logger.Info("creator WASM loaded")

	funcs := map[string]func(js.Value, []js.Value) any{
		"goEditorOpen":       editorOpen,
		"goEditorClose":      editorClose,
		"goBackgroundLoaded": backgroundLoaded,
		"goBackgroundFailed": backgroundFailed,
		"goRequestFont":      requestFont,
		"goFontLoaded":       fontLoaded,
		"goFontFailed":       fontFailed,
		"goSetText":          setText,
		"goSetFontSize":      setFontSize,
		"goSetFontColor":     setFontColor,
		"goPointerDown":      pointerDown,
		"goPointerMove":      pointerMove,
		"goPointerUp":        pointerUp,
		"goPointerLeave":     pointerUp,
		"goResetPosition":    resetPosition,
		"goOverflow":         overflow,
		"goState":            state,
		"goSnapshot":         snapshot,
	}
	for name, fn := range funcs {
		js.Global().Set(name, js.FuncOf(fn))
	}
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func current() *editor.Editor {
	mu.Lock()
	defer mu.Unlock()
	return active
}

// redraw copies the surface into the page via goOnRedraw(width, height, pixels).
func redraw(img *image.RGBA) {
	cb := js.Global().Get("goOnRedraw")
	if cb.Type() != js.TypeFunction {
		return
	}
	pix := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(pix, img.Pix)
	cb.Invoke(img.Bounds().Dx(), img.Bounds().Dy(), pix)
}

func errorValue(prefix string, err error) js.Value {
	return js.ValueOf("error: " + prefix + ": " + err.Error())
}

// goEditorOpen([designJSON]) — start a new editor, optionally seeded from a design.
func editorOpen(this js.Value, args []js.Value) any {
	st := editor.NewState(editor.Size{}, "")
	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		rec, warnings := design.Parse([]byte(args[0].String()))
		for _, w := range warnings {
			logger.Warn("design", "warning", w)
		}
		st = design.Seed(rec)
	}

	ed, err := editor.New(st, editor.Options{Logger: logger, Redraw: redraw})
	if err != nil {
		return errorValue("open", err)
	}
	mu.Lock()
	prev := active
	active = ed
	mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return js.ValueOf("ok")
}

// goEditorClose() — detach the editor; late loads are dropped.
func editorClose(this js.Value, args []js.Value) any {
	mu.Lock()
	ed := active
	active = nil
	mu.Unlock()
	if ed != nil {
		ed.Close()
	}
	return js.ValueOf("ok")
}

// goBackgroundLoaded(url, base64Data)
func backgroundLoaded(this js.Value, args []js.Value) any {
	ed := current()
	if ed == nil || len(args) < 2 {
		return js.ValueOf("error: need open editor, url, base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return errorValue("invalid base64", err)
	}
	img, _, err := creator.DecodeImage(data)
	if err != nil {
		ed.BackgroundFailed(args[0].String(), err)
		return errorValue("background", err)
	}
	if err := ed.BackgroundLoaded(args[0].String(), img); err != nil {
		return errorValue("background", err)
	}
	return js.ValueOf("ok")
}

// goBackgroundFailed(url, message)
func backgroundFailed(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil && len(args) >= 2 {
		ed.BackgroundFailed(args[0].String(), jsError(args[1].String()))
	}
	return js.ValueOf("ok")
}

// goRequestFont(name, url)
func requestFont(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil && len(args) >= 2 {
		ed.RequestFont(editor.FontRef{Name: args[0].String(), SourceURL: args[1].String()})
	}
	return js.ValueOf("ok")
}

// goFontLoaded(name, url, base64Data) — a font that cannot be parsed falls
// back to the default face and reports an error string.
func fontLoaded(this js.Value, args []js.Value) any {
	ed := current()
	if ed == nil || len(args) < 3 {
		return js.ValueOf("error: need open editor, name, url, base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[2].String())
	if err != nil {
		return errorValue("invalid base64", err)
	}
	ref := editor.FontRef{Name: args[0].String(), SourceURL: args[1].String()}
	if err := ed.FontLoaded(ref, data); err != nil {
		return errorValue("font", err)
	}
	return js.ValueOf("ok")
}

// goFontFailed(name, url, message)
func fontFailed(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil && len(args) >= 3 {
		ed.FontFailed(editor.FontRef{Name: args[0].String(), SourceURL: args[1].String()}, jsError(args[2].String()))
	}
	return js.ValueOf("ok")
}

func setText(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil && len(args) >= 1 {
		ed.SetText(args[0].String())
	}
	return js.ValueOf("ok")
}

func setFontSize(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil && len(args) >= 1 {
		ed.SetFontSize(args[0].Int())
	}
	return js.ValueOf("ok")
}

func setFontColor(this js.Value, args []js.Value) any {
	ed := current()
	if ed == nil || len(args) < 1 {
		return js.ValueOf("error: need open editor, color")
	}
	if err := ed.SetFontColor(args[0].String()); err != nil {
		return errorValue("color", err)
	}
	return js.ValueOf("ok")
}

// pointerArgs reads (clientX, clientY, rectLeft, rectTop, rectWidth, rectHeight).
func pointerArgs(args []js.Value) (editor.Point, editor.Rect, bool) {
	if len(args) < 6 {
		return editor.Point{}, editor.Rect{}, false
	}
	p := editor.Point{X: args[0].Float(), Y: args[1].Float()}
	r := editor.Rect{Left: args[2].Float(), Top: args[3].Float(), Width: args[4].Float(), Height: args[5].Float()}
	return p, r, true
}

func pointerDown(this js.Value, args []js.Value) any {
	if p, r, ok := pointerArgs(args); ok {
		if ed := current(); ed != nil {
			ed.PointerDown(p, r)
		}
	}
	return js.ValueOf("ok")
}

func pointerMove(this js.Value, args []js.Value) any {
	if p, r, ok := pointerArgs(args); ok {
		if ed := current(); ed != nil {
			ed.PointerMove(p, r)
		}
	}
	return js.ValueOf("ok")
}

func pointerUp(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil {
		ed.PointerUp()
	}
	return js.ValueOf("ok")
}

func resetPosition(this js.Value, args []js.Value) any {
	if ed := current(); ed != nil {
		ed.ResetPosition()
	}
	return js.ValueOf("ok")
}

func overflow(this js.Value, args []js.Value) any {
	ed := current()
	return js.ValueOf(ed != nil && ed.Overflow())
}

// goState() — the editor state as a design record JSON.
func state(this js.Value, args []js.Value) any {
	ed := current()
	if ed == nil {
		return js.ValueOf("error: no open editor")
	}
	st := ed.State()
	rec := design.FromState(st, design.Assets{Background: st.BackgroundURL}, time.Now())
	data, err := json.Marshal(rec)
	if err != nil {
		return errorValue("encode", err)
	}
	return js.ValueOf(string(data))
}

// goSnapshot() — render for saving and return a PNG data URL.
func snapshot(this js.Value, args []js.Value) any {
	ed := current()
	if ed == nil {
		return js.ValueOf("error: no open editor")
	}
	dataURL, err := generator.PNGDataURL(ed.Snapshot())
	if err != nil {
		return errorValue("encode", err)
	}
	return js.ValueOf(dataURL)
}

type jsError string

func (e jsError) Error() string { return string(e) }
