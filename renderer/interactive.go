package renderer

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/tracer"
	"github.com/helios-rt/helios/tracer/cpu"
	"github.com/helios-rt/helios/types"
)

const (
	// Coefficients for converting delta cursor movements to yaw/pitch camera angles.
	mouseSensitivityX float32 = 0.005
	mouseSensitivityY float32 = 0.005

	// Camera movement speed
	cameraMoveSpeed float32 = 0.05
)

const (
	leftMouseButton  = 0
	rightMouseButton = 1
)

// An interactive opengl-based renderer. The window displays the running
// per-pixel mean which sharpens progressively; moving the camera resets
// the iteration counter and restarts convergence.
type interactiveGLRenderer struct {
	*defaultRenderer

	accumulatedIterations uint32

	// opengl handles
	window *glfw.Window
	texFbo uint32

	// state
	lastCursorPos types.Vec2
	mousePressed  [2]bool
	camera        *scene.Camera

	// mutex for synchronizing updates
	sync.Mutex
}

// Create a new interactive opengl renderer using the specified block
// scheduler and tracing pipeline.
func NewInteractive(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *cpu.Pipeline, opts Options) (Renderer, error) {
	base, err := NewDefault(sc, scheduler, pipeline, opts)
	if err != nil {
		return nil, err
	}

	r := &interactiveGLRenderer{
		defaultRenderer: base.(*defaultRenderer),
		camera:          sc.Camera,
	}

	if err = r.initGL(opts); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *interactiveGLRenderer) Close() {
	if r.window != nil {
		r.window.SetShouldClose(true)
	}
	if r.defaultRenderer != nil {
		r.defaultRenderer.Close()
	}
}

func (r *interactiveGLRenderer) initGL(opts Options) error {
	// GL contexts are bound to the creating thread.
	runtime.LockOSThread()

	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %s", err.Error())
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	r.window, err = glfw.CreateWindow(int(opts.FrameW), int(opts.FrameH), "helios", nil, nil)
	if err != nil {
		return fmt.Errorf("could not create opengl window: %s", err.Error())
	}
	r.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return fmt.Errorf("could not init opengl: %s", err.Error())
	}

	// Setup texture for image data
	var fbTexture uint32
	gl.GenTextures(1, &fbTexture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, fbTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(opts.FrameW), int32(opts.FrameH), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)

	// Attach texture to FBO
	gl.GenFramebuffers(1, &r.texFbo)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fbTexture, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	// Bind event callbacks
	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)

	return nil
}

func (r *interactiveGLRenderer) Render(ctx context.Context) error {
	for !r.window.ShouldClose() {
		glfw.PollEvents()

		select {
		case <-ctx.Done():
			return ErrInterrupted
		default:
		}

		// Don't do anything if we don't require additional iterations
		if r.options.Iterations != 0 && r.accumulatedIterations >= r.options.Iterations {
			r.window.SwapBuffers()
			continue
		}

		// Render next iteration
		r.Lock()
		err := r.RenderIteration(r.accumulatedIterations + 1)
		r.accumulatedIterations++
		if err != nil {
			r.Unlock()
			return err
		}

		// Update texture with frame data and blit to the window
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(r.options.FrameW), int32(r.options.FrameH), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(r.frameBuffer))
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
		gl.BlitFramebuffer(0, 0, int32(r.options.FrameW), int32(r.options.FrameH), 0, int32(r.options.FrameH), int32(r.options.FrameW), 0, gl.COLOR_BUFFER_BIT, gl.LINEAR)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

		r.window.SwapBuffers()
		r.Unlock()
	}
	return nil
}

func (r *interactiveGLRenderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	var moveDir scene.CameraDirection
	switch key {
	case glfw.KeyEscape:
		r.window.SetShouldClose(true)
		return
	case glfw.KeyUp:
		moveDir = scene.Forward
	case glfw.KeyDown:
		moveDir = scene.Backward
	case glfw.KeyLeft:
		moveDir = scene.Left
	case glfw.KeyRight:
		moveDir = scene.Right
	default:
		return
	}

	// Double speed if shift is pressed
	var speedScaler float32 = 1.0
	if (mods & glfw.ModShift) == glfw.ModShift {
		speedScaler = 2.0
	}
	r.camera.Move(moveDir, speedScaler*cameraMoveSpeed)
	r.updateCamera()
}

func (r *interactiveGLRenderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft && button != glfw.MouseButtonRight {
		return
	}

	r.mousePressed[leftMouseButton] = false
	r.mousePressed[rightMouseButton] = false

	if action == glfw.Press {
		xPos, yPos := w.GetCursorPos()
		r.lastCursorPos[0], r.lastCursorPos[1] = float32(xPos), float32(yPos)

		buttonIndex := leftMouseButton
		if button == glfw.MouseButtonRight {
			buttonIndex = rightMouseButton
		}

		r.mousePressed[buttonIndex] = true
	}
}

func (r *interactiveGLRenderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !r.mousePressed[leftMouseButton] && !r.mousePressed[rightMouseButton] {
		return
	}

	// Calculate delta movement and apply mouse sensitivity
	newPos := types.Vec2{float32(xPos), float32(yPos)}
	delta := r.lastCursorPos.Sub(newPos)
	delta[0] *= mouseSensitivityX
	delta[1] *= mouseSensitivityY
	r.lastCursorPos = newPos

	if r.mousePressed[leftMouseButton] {
		// The left mouse button rotates the look-at point around the eye
		view := rotateAroundAxis(r.camera.View, r.camera.UpVec, delta[0])
		view = rotateAroundAxis(view, r.camera.Right, delta[1])
		r.camera.LookAt = r.camera.Position.Add(view)
		r.camera.Update()
		r.updateCamera()
	}
}

// Propagate a camera change to the tracers and restart convergence.
func (r *interactiveGLRenderer) updateCamera() {
	r.Lock()
	defer r.Unlock()

	r.defaultRenderer.updateCamera(r.camera)
	r.accumulatedIterations = 0
}

// Rotate v around a unit axis using the Rodrigues formula.
func rotateAroundAxis(v, axis types.Vec3, angle float32) types.Vec3 {
	s, c := math.Sincos(float64(angle))
	sin, cos := float32(s), float32(c)

	return v.Mul(cos).
		Add(axis.Cross(v).Mul(sin)).
		Add(axis.Mul(axis.Dot(v) * (1 - cos)))
}
