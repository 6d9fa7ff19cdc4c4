package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"github.com/san-kum/phaselab/internal/systems"
)

const (
	canvasWidth     = 72
	canvasHeight    = 24
	historyCapacity = 600
	trailLength     = 800
)

// Snapshot is one replayable sample.
type Snapshot struct {
	State dynamo.State
	Time  float64
}

type TickMsg time.Time

// LiveOptions configure the live view.
type LiveOptions struct {
	Dt           float64
	StepsPerTick int
	Theme        string
	GIFPath      string
}

// Live animates one system in the terminal: flows are stepped with RK4,
// maps are iterated once per step.
type Live struct {
	sys      *systems.System
	initial  *systems.System
	stepper  dynamo.Integrator
	state    dynamo.State
	start    dynamo.State
	t, dt    float64
	perTick  int
	diverged bool

	canvas *Canvas
	camera *Camera
	trail  []dynamo.State
	series []float64

	history  []Snapshot
	playHead int

	running   bool
	selected  int
	theme     int
	showHelp  bool
	recording bool
	frames    []*image.Paletted
	gifPath   string
	status    string
}

func NewLive(sys *systems.System, x0 dynamo.State, opts LiveOptions) *Live {
	if opts.Dt <= 0 {
		opts.Dt = 0.01
	}
	if opts.StepsPerTick < 1 {
		opts.StepsPerTick = 1
	}
	if opts.GIFPath == "" {
		opts.GIFPath = "phaselab.gif"
	}
	theme := 0
	for i, t := range Themes {
		if t.Name == opts.Theme {
			theme = i
		}
	}
	return &Live{
		sys:      sys,
		initial:  sys,
		stepper:  integrators.NewRK4(),
		state:    x0.Clone(),
		start:    x0.Clone(),
		dt:       opts.Dt,
		perTick:  opts.StepsPerTick,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		camera:   NewCamera(),
		trail:    make([]dynamo.State, 0, trailLength),
		series:   make([]float64, 0, historyCapacity),
		history:  make([]Snapshot, 0, historyCapacity),
		playHead: -1,
		running:  true,
		theme:    theme,
		gifPath:  opts.GIFPath,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Live) Init() tea.Cmd { return tick() }

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			if n := len(m.sys.Model.Params); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case "up", "k":
			m.nudgeParam(1)
		case "down", "j":
			m.nudgeParam(-1)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		case "x":
			m.camera.RotX += 0.1
		case "y":
			m.camera.RotY += 0.1
		case "z":
			m.camera.RotZ += 0.1
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				for i := 0; i < m.perTick && !m.diverged; i++ {
					m.step()
				}
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		m.draw()
		if m.recording {
			m.frames = append(m.frames, m.captureFrame())
		}
		return m, tick()
	}
	return m, nil
}

func (m *Live) step() {
	if f := m.sys.Flow(); f != nil {
		m.state = m.stepper.Step(f, m.state, m.t, m.dt)
		m.t += m.dt
	} else {
		m.state = m.sys.Map().Next(m.state)
		m.t++
	}
	if m.state.Diverged() {
		m.diverged = true
		m.running = false
		m.status = fmt.Sprintf("diverged at t=%.4g", m.t)
		return
	}

	m.trail = appendCapped(m.trail, m.state.Clone(), trailLength)
	m.series = appendCapped(m.series, m.state[0], historyCapacity)
	m.history = appendCapped(m.history, Snapshot{State: m.state.Clone(), Time: m.t}, historyCapacity)
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[1:]
	}
	return s
}

// nudgeParam moves the selected parameter by one slider step within its range.
func (m *Live) nudgeParam(dir float64) {
	specs := m.sys.Model.Params
	if len(specs) == 0 {
		return
	}
	ps := specs[m.selected]
	v := math.Max(ps.Min, math.Min(ps.Max, m.sys.Params[ps.Name]+dir*ps.Step))
	next, err := m.sys.WithParam(ps.Name, v)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.sys = next
	m.status = ""
}

func (m *Live) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Live) reset() {
	m.sys = m.initial
	m.state = m.start.Clone()
	m.t = 0
	m.diverged = false
	m.running = true
	m.status = ""
	m.trail = m.trail[:0]
	m.series = m.series[:0]
	m.history = m.history[:0]
	m.playHead = -1
}

func (m *Live) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = m.frames[:0]
		return
	}
	m.recording = false
	if err := saveGIF(m.gifPath, m.frames); err != nil {
		m.status = "gif: " + err.Error()
	} else {
		m.status = "saved " + m.gifPath
	}
	m.frames = nil
}

// visibleTrail is the trail up to the replay head.
func (m *Live) visibleTrail() []dynamo.State {
	if m.playHead < 0 || m.playHead >= len(m.history) {
		return m.trail
	}
	back := len(m.history) - 1 - m.playHead
	if back >= len(m.trail) {
		return nil
	}
	return m.trail[:len(m.trail)-back]
}

func (m *Live) draw() {
	m.canvas.Clear()
	trail := m.visibleTrail()
	if len(trail) == 0 {
		return
	}
	switch m.sys.Dim() {
	case 3:
		m.draw3D(trail)
	case 2:
		xs, ys := columns(trail, 0, 1)
		b := FitBounds(xs, ys)
		m.canvas.Axes(b)
		if m.sys.Discrete() {
			m.canvas.Scatter(b, xs, ys)
		} else {
			m.canvas.Polyline(b, xs, ys)
		}
	default:
		_, vs := columns(trail, 0, 0)
		ns := make([]float64, len(vs))
		for i := range ns {
			ns[i] = float64(i)
		}
		b := FitBounds(ns, vs)
		m.canvas.Polyline(b, ns, vs)
	}
}

// draw3D normalises the trail into the unit cube and renders it rotating
// slowly about the vertical axis.
func (m *Live) draw3D(trail []dynamo.State) {
	lo := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := []float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, s := range trail {
		for k := 0; k < 3; k++ {
			lo[k], hi[k] = math.Min(lo[k], s[k]), math.Max(hi[k], s[k])
		}
	}
	span := 0.0
	for k := 0; k < 3; k++ {
		span = math.Max(span, hi[k]-lo[k])
	}
	if span == 0 {
		span = 1
	}
	toVec := func(s dynamo.State) Vec3 {
		// z up
		return Vec3{
			X: 2 * (s[0] - (lo[0]+hi[0])/2) / span,
			Y: 2 * (s[2] - (lo[2]+hi[2])/2) / span,
			Z: 2 * (s[1] - (lo[1]+hi[1])/2) / span,
		}
	}
	var wf Wireframe
	prev := toVec(trail[0])
	for _, s := range trail[1:] {
		cur := toVec(s)
		wf.AddEdge(prev, cur)
		prev = cur
	}
	wf.AddPoint(prev)
	if m.running {
		m.camera.RotY += 0.005
	}
	Render3D(m.canvas, &wf, m.camera)
}

func columns(trail []dynamo.State, i, j int) ([]float64, []float64) {
	xs, ys := make([]float64, len(trail)), make([]float64, len(trail))
	for k, s := range trail {
		xs[k], ys[k] = s[i], s[j]
	}
	return xs, ys
}

func (m *Live) View() string {
	st := Themes[m.theme].Styles()
	state, t := m.state, m.t
	status := "RUNNING"
	switch {
	case m.playHead >= 0 && m.playHead < len(m.history):
		snap := m.history[m.playHead]
		state, t = snap.State, snap.Time
		status = fmt.Sprintf("REPLAY (%.2f)", t-m.t)
	case m.diverged:
		status = "DIVERGED"
	case !m.running:
		status = "PAUSED"
	}
	if m.recording {
		status += "  ● REC"
	}

	var s strings.Builder
	s.WriteString(st.Title.Render(strings.ToUpper(string(m.sys.Kind()))) + "\n")
	s.WriteString(status + "\n\n")
	if len(m.series) > 1 {
		chart := asciigraph.Plot(m.series, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("x"))
		s.WriteString(st.Plot.Render(chart) + "\n\n")
	}
	timeLabel := "Time"
	if m.sys.Discrete() {
		timeLabel = "Iteration"
	}
	s.WriteString(st.Label.Render(timeLabel) + st.Value.Render(fmt.Sprintf("%.2f", t)) + "\n")
	for i, v := range state {
		s.WriteString(st.Label.Render(fmt.Sprintf("x%d", i+1)) + st.Value.Render(fmt.Sprintf("%.4f", v)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	for i, ps := range m.sys.Model.Params {
		line := fmt.Sprintf("%-6s %s %.4g", ps.Name, slider(m.sys.Params[ps.Name], ps.Min, ps.Max, 10), m.sys.Params[ps.Name])
		if i == m.selected {
			s.WriteString(st.Active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.Label.UnsetWidth().Render(line) + "\n")
		}
	}
	if m.status != "" {
		s.WriteString("\n" + st.Warning.Render(m.status) + "\n")
	}
	s.WriteString(st.Help.Render("SP:Pause R:Reset Q:Quit ?:Help\nTab/↑↓:Tune T:Theme G:Record"))

	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(st.Plot.Render(m.canvas.String()))
	stats := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Themes[m.theme].Muted).Padding(1, 2).Width(44).Render(s.String())
	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, stats)
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
  Space    pause or resume
  R        reset state and parameters
  Tab      select parameter
  Up/K     increase parameter by one step
  Down/J   decrease parameter by one step
  [ ]      rewind or advance through history
  X Y Z    rotate 3D view
  + -      zoom
  G        start or stop GIF recording
  T        cycle themes
  Q        quit
`

func slider(v, lo, hi float64, width int) string {
	ratio := 0.0
	if hi > lo {
		ratio = math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
	}
	filled := int(ratio * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// captureFrame rasterises the braille canvas into a two-colour image.
func (m *Live) captureFrame() *image.Paletted {
	const charW, charH = 8, 16
	dotW, dotH := charW/2, charH/4
	img := image.NewPaletted(image.Rect(0, 0, m.canvas.Width*charW, m.canvas.Height*charH), color.Palette{color.Black, color.White})
	for row := 0; row < m.canvas.Height; row++ {
		for col := 0; col < m.canvas.Width; col++ {
			pattern := m.canvas.Grid[row][col] - blank
			if pattern <= 0 {
				continue
			}
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					x0, y0 := col*charW+dx*dotW, row*charH+dy*dotH
					for py := 0; py < dotH; py++ {
						for px := 0; px < dotW; px++ {
							img.SetColorIndex(x0+px, y0+py, 1)
						}
					}
				}
			}
		}
	}
	return img
}

func saveGIF(path string, frames []*image.Paletted) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}
	anim := gif.GIF{}
	for _, f := range frames {
		anim.Image = append(anim.Image, f)
		anim.Delay = append(anim.Delay, 3)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}
