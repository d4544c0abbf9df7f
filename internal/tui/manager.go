package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"imagetools-go/internal/app"
	"imagetools-go/internal/compressor"
	"imagetools-go/internal/editor"
	"imagetools-go/internal/statistics"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// UI configuration constants
const (
	MaxLogBufferSize = 1000
	LogFlushInterval = 50 * time.Millisecond
)

// job runs one batch operation on the selected images.
type job func(ctx context.Context, images []string) (*statistics.Statistics, error)

// Manager drives the interactive terminal interface.
type Manager struct {
	app   *tview.Application
	pages *tview.Pages
	svc   *app.Service
	ctx   context.Context

	mainMenu  *tview.List
	logView   *tview.TextView
	statusBar *tview.TextView

	busy        bool
	currentPage string

	logBuffer []string
	logChan   chan string
	logDone   chan struct{}
	closeOnce sync.Once
}

// NewManager creates a Manager and routes the service logger into the log panel.
func NewManager(svc *app.Service) *Manager {
	m := &Manager{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		svc:       svc,
		logBuffer: make([]string, 0, MaxLogBufferSize),
		logChan:   make(chan string, 100),
		logDone:   make(chan struct{}),
	}
	svc.Logger().AddHook(NewLogHook(m.AddLog))
	return m
}

// Run shows the main menu and blocks until the user exits or ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.ctx = ctx
	m.createUI()
	m.setupKeyBindings()

	go m.logProcessor()
	defer m.Cleanup()

	go func() {
		select {
		case <-ctx.Done():
			m.app.Stop()
		case <-m.logDone:
		}
	}()

	return m.app.SetRoot(m.pages, true).EnableMouse(true).Run()
}

func (m *Manager) createUI() {
	m.mainMenu = tview.NewList()
	for _, entry := range operations {
		op := entry.op
		m.mainMenu.AddItem(entry.title, entry.help, entry.shortcut, func() {
			m.showDirectoryForm(op)
		})
	}
	m.mainMenu.AddItem("Exit", "Close ImageTools", 'q', func() {
		m.app.Stop()
	})
	m.mainMenu.SetBorder(true).
		SetTitle(" ImageTools - What do you want to do? ").
		SetTitleAlign(tview.AlignCenter)
	m.mainMenu.SetSelectedBackgroundColor(tcell.ColorDarkBlue).
		SetSelectedTextColor(tcell.ColorWhite).
		SetMainTextColor(tcell.ColorWhite).
		SetSecondaryTextColor(tcell.ColorGray)

	m.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(MaxLogBufferSize)
	m.logView.SetBorder(true).
		SetTitle(" Log ").
		SetTitleAlign(tview.AlignCenter)

	m.statusBar = tview.NewTextView().SetDynamicColors(true)

	processing := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(m.logView, 0, 1, false).
		AddItem(m.statusBar, 2, 0, false)

	m.pages.AddPage("menu", m.mainMenu, true, true)
	m.pages.AddPage("log", processing, true, false)
	m.currentPage = "menu"
}

func (m *Manager) setupKeyBindings() {
	m.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape && m.currentPage != "menu" && !m.busy {
			m.showMenu()
			return nil
		}
		return event
	})
}

func (m *Manager) switchTo(name string, p tview.Primitive) {
	if p != nil {
		m.pages.AddAndSwitchToPage(name, p, true)
	} else {
		m.pages.SwitchToPage(name)
	}
	m.currentPage = name
}

func (m *Manager) showMenu() {
	m.switchTo("menu", nil)
}

func (m *Manager) showDirectoryForm(op Operation) {
	dir := "."
	form := tview.NewForm().
		AddInputField("Directory", dir, 60, nil, func(text string) { dir = text })

	form.AddButton("Next", func() {
		images, err := m.svc.Images(strings.TrimSpace(dir), nil)
		if err != nil {
			m.svc.Logger().Errorf("Cannot use directory %s: %v", dir, err)
			m.setStatus(fmt.Sprintf("[red]%s", tview.Escape(err.Error())))
			m.switchTo("log", nil)
			return
		}
		m.showOptionsForm(op, strings.TrimSpace(dir), images)
	}).AddButton("Back", m.showMenu)

	form.SetBorder(true).
		SetTitle(fmt.Sprintf(" %s - directory (ESC - back) ", op)).
		SetTitleAlign(tview.AlignCenter)
	m.switchTo("directory", form)
}

func (m *Manager) showOptionsForm(op Operation, dir string, images []string) {
	form := tview.NewForm()

	checked := make(map[string]bool, len(images))
	for _, name := range images {
		checked[name] = true
		form.AddCheckbox(name, true, func(on bool) { checked[name] = on })
	}

	build := m.addOperationFields(form, op)

	form.AddButton("Run", func() {
		selected, err := selectedImages(images, checked)
		if err == nil {
			var run job
			if run, err = build(dir); err == nil {
				m.execute(op, run, selected)
				return
			}
		}
		m.svc.Logger().Errorf("%s aborted: %v", op, err)
		m.showMenu()
	}).AddButton("Back", m.showMenu)

	form.SetBorder(true).
		SetTitle(fmt.Sprintf(" %s - %s (ESC - back) ", op, dir)).
		SetTitleAlign(tview.AlignCenter)
	m.switchTo("options", form)
}

// addOperationFields adds the parameter fields of op and returns a builder that
// parses them once the user presses Run.
func (m *Manager) addOperationFields(form *tview.Form, op Operation) func(dir string) (job, error) {
	cfg := m.svc.Config()

	switch op {
	case OpReduce:
		limits := cfg.Compression.AllowedLimits
		if len(limits) == 0 {
			limits = []string{"512KB", "1024KB", "2048KB"}
		}
		limit, allowResize, force := limits[0], false, false
		form.AddDropDown("Max size", limits, 0, func(option string, _ int) { limit = option }).
			AddCheckbox("Allow resize", false, func(on bool) { allowResize = on }).
			AddCheckbox("Force to limit", false, func(on bool) { force = on })
		return func(dir string) (job, error) {
			l, err := cfg.ParseLimit(limit)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, images []string) (*statistics.Statistics, error) {
				return m.svc.Reduce(ctx, dir, images, compressor.Options{Limit: l, AllowResize: allowResize, ForceToLimit: force})
			}, nil
		}

	case OpResize:
		mode, width, height, percent, quality := resizeModes[0], "", "", "50", "normal"
		form.AddDropDown("Mode", resizeModes, 0, func(option string, _ int) { mode = option }).
			AddInputField("Width", "", 8, nil, func(text string) { width = text }).
			AddInputField("Height", "", 8, nil, func(text string) { height = text }).
			AddInputField("Percent", percent, 8, nil, func(text string) { percent = text }).
			AddDropDown("Quality", []string{"normal", "high"}, 0, func(option string, _ int) { quality = option })
		return func(dir string) (job, error) {
			rm, err := resizeModeFrom(mode, width, height, percent, quality)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, images []string) (*statistics.Statistics, error) {
				return m.svc.Resize(ctx, dir, images, rm)
			}, nil
		}

	case OpConvert:
		target, rename := convertTargets[0], ""
		form.AddDropDown("Format", convertTargets, 0, func(option string, _ int) { target = option }).
			AddInputField("Rename (--INDEX, --START n)", "", 40, nil, func(text string) { rename = text })
		return func(dir string) (job, error) {
			opts, err := convertOptionsFrom(target, rename)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, images []string) (*statistics.Statistics, error) {
				return m.svc.Convert(ctx, dir, images, opts)
			}, nil
		}

	case OpFilter:
		names := editor.FilterNames()
		filter := names[0]
		form.AddDropDown("Filter", names, 0, func(option string, _ int) { filter = option })
		return func(dir string) (job, error) {
			f, err := editor.ParseFilter(filter)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, images []string) (*statistics.Statistics, error) {
				return m.svc.Filter(ctx, dir, images, f)
			}, nil
		}

	case OpAddText:
		fonts := []string{builtinFont}
		if available, err := m.svc.Fonts(); err == nil {
			fonts = append(fonts, available...)
		}
		text, fontName, size, colorName, position := "", fonts[0], "5", textColors[0], textPositions[0]
		form.AddInputField("Text", "", 40, nil, func(t string) { text = t }).
			AddDropDown("Font", fonts, 0, func(option string, _ int) { fontName = option }).
			AddInputField("Font size (% of width)", size, 6, nil, func(t string) { size = t }).
			AddDropDown("Color", textColors, 0, func(option string, _ int) { colorName = option }).
			AddDropDown("Position", textPositions, 0, func(option string, _ int) { position = option })
		return func(dir string) (job, error) {
			opts, err := textOptionsFrom(text, fontName, size, colorName, position)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, images []string) (*statistics.Statistics, error) {
				return m.svc.AddText(ctx, dir, images, opts)
			}, nil
		}

	default:
		sizes := make(map[int]bool, len(editor.ThumbnailSizes))
		favicon := false
		for _, s := range editor.ThumbnailSizes {
			form.AddCheckbox(strconv.Itoa(s)+"px", false, func(on bool) { sizes[s] = on })
		}
		form.AddCheckbox("Favicon (.ico)", false, func(on bool) { favicon = on })
		return func(dir string) (job, error) {
			opts, err := thumbnailOptionsFrom(sizes, favicon)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, images []string) (*statistics.Statistics, error) {
				return m.svc.Thumbnail(ctx, dir, images, opts)
			}, nil
		}
	}
}

// execute runs the job in the background while the log page shows its progress.
func (m *Manager) execute(op Operation, run job, images []string) {
	m.busy = true
	m.switchTo("log", nil)
	m.setStatus(fmt.Sprintf("[yellow]%s: processing %d images...", op, len(images)))

	go func() {
		stats, err := run(m.ctx, images)
		m.app.QueueUpdateDraw(func() {
			m.busy = false
			switch {
			case err != nil:
				m.setStatus(fmt.Sprintf("[red]%s failed: %s[white]  ESC - main menu", op, tview.Escape(err.Error())))
			case stats.GetImagesWithErrors() > 0:
				m.setStatus(fmt.Sprintf("[yellow]%s[white]  ESC - main menu", tview.Escape(app.Describe(stats))))
			default:
				m.setStatus(fmt.Sprintf("[green]%s[white]  ESC - main menu", tview.Escape(app.Describe(stats))))
			}
		})
	}()
}

func (m *Manager) setStatus(text string) {
	m.statusBar.SetText(text)
}

// AddLog queues a formatted line for the log panel. Lines are dropped when the queue is full.
func (m *Manager) AddLog(line string) {
	select {
	case m.logChan <- line:
	default:
	}
}

func (m *Manager) logProcessor() {
	ticker := time.NewTicker(LogFlushInterval)
	defer ticker.Stop()

	batch := make([]string, 0, 50)
	for {
		select {
		case line := <-m.logChan:
			batch = append(batch, line)
			if len(batch) >= 20 {
				m.flushLogBatch(batch)
				batch = make([]string, 0, 50)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				m.flushLogBatch(batch)
				batch = make([]string, 0, 50)
			}
		case <-m.logDone:
			return
		}
	}
}

func (m *Manager) flushLogBatch(batch []string) {
	m.logBuffer = append(m.logBuffer, batch...)
	if len(m.logBuffer) > MaxLogBufferSize {
		m.logBuffer = m.logBuffer[len(m.logBuffer)-MaxLogBufferSize:]
	}
	text := strings.Join(m.logBuffer, "\n")

	m.app.QueueUpdateDraw(func() {
		m.logView.SetText(text)
		m.logView.ScrollToEnd()
	})
}

// Cleanup stops the log processor.
func (m *Manager) Cleanup() {
	m.closeOnce.Do(func() { close(m.logDone) })
}
