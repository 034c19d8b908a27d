package video_compressor

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/encoding"
	"github.com/mattn/go-runewidth"
)

// box drawing
const LineH = '━'
const LineV = '┃'
const TreeR = '┣'
const TreeL = '┫'
const Cross = '╋'

// half block: foreground is the upper pixel, background the lower one
const HalfBlock = '▀'

// thumbnail size in cells; every cell shows two pixels
const ThumbCols = 16
const ThumbRows = 4
const rowHeight = ThumbRows + 1
const progressBarWidth = 30

var defStyle = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
var rectStyle = defStyle.Dim(true)
var textStyle = defStyle
var waitingStyle = textStyle.Dim(true)
var errorStyle = textStyle.Foreground(tcell.ColorDarkRed)
var okStyle = textStyle.Foreground(tcell.ColorForestGreen)
var activeStyle = textStyle.Foreground(tcell.ColorGreen)
var keyStyle = textStyle.Bold(true)

type Rect struct {
	X, Y          int
	Width, Height int
}

type Point struct {
	X, Y int
}

type TuiScrollArea struct {
	ScrollPosition int
	ScrollHeight   int
}

// UpdateEvent asks the screen loop to redraw, replacing the rows when Items is set
type UpdateEvent struct {
	tcell.EventTime
	Items    []VideoItemState
	HasItems bool
}

type sessionEvent struct {
	tcell.EventTime
	visible bool
}

// Tui is the interactive screen of a session
type Tui struct {
	Screen  tcell.Screen
	Session *Session
	Adapter *ProgressListAdapter

	sessionVisible bool
	filesView      TuiScrollArea
	messagesView   TuiScrollArea
	currentEvent   tcell.Event

	mu       sync.Mutex
	Messages []string
}

var _ View = (*Tui)(nil)

func (tui *Tui) Init() error {
	encoding.Register()

	if tui.Screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		tui.Screen = s
	}
	if err := tui.Screen.Init(); err != nil {
		return err
	}
	tui.Screen.SetStyle(defStyle)
	tui.Screen.EnableMouse()
	return nil
}

func (tui *Tui) Fini() {
	tui.Screen.Fini()
}

// Loop handles screen events until the user quits
func (tui *Tui) Loop(ctx context.Context) {
	s := tui.Screen
	tui.Draw()
	for {
		tui.currentEvent = s.PollEvent()
		switch ev := tui.currentEvent.(type) {
		case nil:
			return
		case *tcell.EventResize:
			s.Sync()
			tui.Draw()
		case *UpdateEvent:
			if ev.HasItems {
				tui.Adapter.SetItems(ev.Items)
			}
			tui.Draw()
		case *sessionEvent:
			tui.sessionVisible = ev.visible
			tui.Draw()
		case *tcell.EventMouse:
			tui.Draw()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				return
			}
			if ev.Key() == tcell.KeyUp {
				tui.filesView.ScrollUp()
				tui.Draw()
			}
			if ev.Key() == tcell.KeyDown {
				tui.filesView.ScrollDown()
				tui.Draw()
			}
			if ev.Key() == tcell.KeyRune {
				switch ev.Rune() {
				case 'q':
					return
				case 'g':
					go tui.run(ctx, tui.Session.SelectFromGallery)
				case 'c':
					go tui.run(ctx, tui.Session.RecordFromCamera)
				}
			}
		}
	}
}

func (tui *Tui) run(ctx context.Context, op func(ctx context.Context) error) {
	if err := op(ctx); err != nil {
		tui.Logf("selection failed: %v", err)
	}
}

func (tui *Tui) post(ev tcell.Event) {
	if tui.Screen != nil {
		// a full queue only loses a redraw, the next event brings the latest state
		tui.Screen.PostEvent(ev)
	}
}

// Update redraws the screen with the current rows
func (tui *Tui) Update() {
	var event UpdateEvent
	event.SetEventNow()
	tui.post(&event)
}

func (tui *Tui) Render(items []VideoItemState) {
	event := UpdateEvent{Items: items, HasItems: true}
	event.SetEventNow()
	tui.post(&event)
}

func (tui *Tui) ShowSession(visible bool) {
	event := sessionEvent{visible: visible}
	event.SetEventNow()
	tui.post(&event)
}

// Draw paints the whole screen
func (tui *Tui) Draw() {
	s := tui.Screen
	s.Clear()
	defer s.Show()

	screenViewPort := AsViewPort(s)
	headerViewPort, bodyViewPort := screenViewPort.SplitV(1)
	x := Print(headerViewPort, 1, 0, keyStyle, "[g]")
	x = Print(headerViewPort, x+1, 0, textStyle, "gallery")
	x = Print(headerViewPort, x+2, 0, keyStyle, "[c]")
	x = Print(headerViewPort, x+1, 0, textStyle, "camera")
	x = Print(headerViewPort, x+2, 0, keyStyle, "[esc]")
	x = Print(headerViewPort, x+1, 0, textStyle, "quit")
	if tui.sessionVisible {
		Printf(headerViewPort, x+4, 0, waitingStyle, "%d videos", tui.Adapter.ItemCount())
	}

	filesViewPort, messagesViewPort := bodyViewPort.SplitVf(0.7)
	if tui.sessionVisible {
		tui.drawRows(filesViewPort)
	} else {
		Print(filesViewPort, 4, 1, waitingStyle, "Pick videos from the gallery or record one to compress them")
	}

	tui.mu.Lock()
	messages := tui.Messages
	tui.mu.Unlock()
	{
		view := &tui.messagesView
		view.ScrollHeight = len(messages)
		// follow the latest messages
		view.ScrollPosition = max(0, len(messages)-messagesViewPort.Height)
		viewport := tui.IMScrollArea(view, messagesViewPort)

		y := -view.ScrollPosition
		for _, message := range messages {
			if y >= 0 {
				Print(viewport, 0, y, defStyle, message)
			}
			if y >= viewport.Height {
				break
			}
			y++
		}
	}
}

func (tui *Tui) drawRows(filesViewPort *ViewPort) {
	rows := tui.Adapter.Rows()
	view := &tui.filesView
	view.ScrollHeight = len(rows) * rowHeight
	viewport := tui.IMScrollArea(view, filesViewPort)

	const x0 = 2
	y := -view.ScrollPosition
	for _, row := range rows {
		if y+rowHeight > 0 && y < viewport.Height {
			drawRow(viewport, x0, y, row)
		}
		y += rowHeight
	}
}

func drawRow(vp *ViewPort, x0, y int, row Row) {
	DrawThumbnail(vp, x0, y, row.Thumbnail)

	nameStyle := waitingStyle
	switch row.Stage {
	case ProcessingInProgress:
		nameStyle = activeStyle
	case ProcessingSuccess:
		nameStyle = okStyle
	case ProcessingError, ProcessingCancelled:
		nameStyle = errorStyle
	}

	x := x0 + ThumbCols + 2
	Print(vp, x, y, nameStyle, filepath.Base(row.SourceURI))
	line := y + 1
	if row.ProgressVisible {
		Print(vp, x, line, textStyle, row.ProgressLabel)
		line++
		DrawProgressBar(vp, x, line, progressBarWidth, row.Progress)
		line++
	}
	if row.SizeVisible {
		Print(vp, x, line, okStyle, row.SizeLabel)
		line++
	}
	if row.StatusVisible {
		Print(vp, x, line, errorStyle, row.StatusLabel)
	}
}

func DrawProgressBar(vp *ViewPort, x, y, width, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := width * percent / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	Print(vp, x, y, activeStyle, bar)
}

// DrawThumbnail paints img into ThumbCols x ThumbRows cells, or a placeholder when img is nil
func DrawThumbnail(vp *ViewPort, x0, y0 int, img image.Image) {
	if img == nil {
		for y := 0; y < ThumbRows; y++ {
			for x := 0; x < ThumbCols; x++ {
				vp.SetContent(x0+x, y0+y, '░', nil, rectStyle)
			}
		}
		return
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		DrawThumbnail(vp, x0, y0, nil)
		return
	}
	pixel := func(cx, py int) tcell.Color {
		px := b.Min.X + cx*b.Dx()/ThumbCols
		pyy := b.Min.Y + py*b.Dy()/(ThumbRows*2)
		r, g, bl, _ := img.At(px, pyy).RGBA()
		return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(bl>>8))
	}
	for y := 0; y < ThumbRows; y++ {
		for x := 0; x < ThumbCols; x++ {
			style := defStyle.Foreground(pixel(x, y*2)).Background(pixel(x, y*2+1))
			vp.SetContent(x0+x, y0+y, HalfBlock, nil, style)
		}
	}
}

func (area *TuiScrollArea) ScrollUp() {
	area.ScrollPosition--
	minScrollPosition := 0
	if area.ScrollPosition < minScrollPosition {
		area.ScrollPosition = minScrollPosition
	}
}

func (area *TuiScrollArea) ScrollDown() {
	area.ScrollPosition++
	if area.ScrollPosition > area.ScrollHeight-1 {
		area.ScrollPosition = area.ScrollHeight - 1
	}
	if area.ScrollPosition < 0 {
		area.ScrollPosition = 0
	}
}

// Write makes the messages pane a log sink
func (tui *Tui) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		tui.Log(line)
	}
	return len(p), nil
}

func (tui *Tui) Sync() error {
	return nil
}

func (tui *Tui) Logf(format string, a ...interface{}) {
	tui.Log(fmt.Sprintf(format, a...))
}

func (tui *Tui) Log(message string) {
	tui.mu.Lock()
	tui.Messages = append(tui.Messages, message)
	tui.mu.Unlock()
	tui.Update()
}

type cellWriter interface {
	SetContent(x int, y int, mainc rune, combc []rune, style tcell.Style)
	Size() (int, int)
}

func Printf(s cellWriter, x, y int, style tcell.Style, format string, a ...interface{}) int {
	message := fmt.Sprintf(format, a...)
	return Print(s, x, y, style, message)
}

func Print(s cellWriter, x, y int, style tcell.Style, message string) int {
	width, height := s.Size()
	if !(y >= 0 && y < height) {
		return x
	}
	for _, c := range message {
		if x >= width {
			break
		}
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
	return x
}

// ViewPort is a rectangle of the screen with its own origin; Rect is in
// screen coordinates
type ViewPort struct {
	Screen tcell.Screen
	Rect
}

func (s *ViewPort) SetContent(x int, y int, mainc rune, combc []rune, style tcell.Style) {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return
	}
	s.Screen.SetContent(x+s.X, y+s.Y, mainc, combc, style)
}

func (s *ViewPort) GetContent(x int, y int) (rune, []rune, tcell.Style, int) {
	return s.Screen.GetContent(x+s.X, y+s.Y)
}

func (s *ViewPort) GetRune(x int, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func (s *ViewPort) Size() (int, int) {
	return s.Rect.Width, s.Rect.Height
}

// Sub returns the viewport of rect, given relative to s
func (s *ViewPort) Sub(rect Rect) *ViewPort {
	rect.X += s.X
	rect.Y += s.Y
	return &ViewPort{s.Screen, rect}
}

func AsViewPort(screen tcell.Screen) *ViewPort {
	var rect Rect
	rect.Width, rect.Height = screen.Size()
	return &ViewPort{screen, rect}
}

// --------

func MousePosition(ev *tcell.EventMouse) Point {
	x, y := ev.Position()
	return Point{X: x, Y: y}
}

// Immediate Mode Scroll Area
// Draws scrollbar and handles mouse wheel events
// Returns the viewport within (scrollbar space removed)
func (tui *Tui) IMScrollArea(area *TuiScrollArea, vp *ViewPort) *ViewPort {
	//  mouse wheel scrolling
	switch ev := tui.currentEvent.(type) {
	case *tcell.EventMouse:
		if RectContains(vp.Rect, MousePosition(ev)) {
			btns := ev.Buttons()
			if btns&tcell.WheelUp != 0 {
				area.ScrollUp()
			}
			if btns&tcell.WheelDown != 0 {
				area.ScrollDown()
			}
		}
	}

	// if no need for a scrollbar, don't draw it
	// and just return the original viewport as the inner one
	if area.ScrollHeight <= vp.Height {
		area.ScrollPosition = 0
		return vp
	}

	const ScrollBarBG = ' '
	const ScrollBarFG = '▉'

	scrollBarStyle := rectStyle.Background(tcell.ColorGray)

	// Draw a vertical line
	x := vp.Width - 1
	for y := 0; y < vp.Height; y++ {
		vp.SetContent(x, y, ScrollBarBG, nil, scrollBarStyle)
	}

	// draw the scroll thumb
	scrollbarHeight := vp.Height
	if area.ScrollHeight > 0 {
		thumbY := int((float64(area.ScrollPosition) / float64(area.ScrollHeight)) * float64(scrollbarHeight))
		vp.SetContent(x, thumbY, ScrollBarFG, nil, scrollBarStyle)
	}

	return vp.Sub(Rect{0, 0, vp.Width - 1, vp.Height})
}

// SplitV splits v at row at, drawing a horizontal line on that row
func (v *ViewPort) SplitV(at int) (top *ViewPort, bottom *ViewPort) {
	top = v.Sub(Rect{0, 0, v.Width, at})
	bottom = v.Sub(Rect{0, at + 1, v.Width, v.Height - at - 1})

	// Draw the horizontal line
	// First we need to decide for each edge whether to draw just the line or its intersection with another line
	{
		exLeft := v.GetRune(0, at)
		exRight := v.GetRune(v.Width-1, at)

		var rLeft rune = LineH
		var rRight rune = LineH

		switch exLeft {
		case LineV:
			rLeft = TreeR
		case TreeL:
			rLeft = Cross
		}
		switch exRight {
		case LineV:
			rRight = TreeL
		case TreeR:
			rRight = Cross
		}

		v.SetContent(0, at, rLeft, nil, rectStyle)
		v.SetContent(v.Width-1, at, rRight, nil, rectStyle)

		for i := 1; i < v.Width-1; i++ {
			v.SetContent(i, at, LineH, nil, rectStyle)
		}
	}

	return
}

func (v *ViewPort) SplitVf(at float64) (top *ViewPort, bottom *ViewPort) {
	return v.SplitV(int(float64(v.Rect.Height) * at))
}

func RectContains(rect Rect, point Point) bool {
	return point.X >= rect.X && point.X < rect.X+rect.Width &&
		point.Y >= rect.Y && point.Y < rect.Y+rect.Height
}
