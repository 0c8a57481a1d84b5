package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"
)

const (
	// DefaultIdleTimeout is how long an unused service process is kept alive.
	DefaultIdleTimeout = 30 * time.Second

	serviceScript  = "hands_service.py"
	maxMessageSize = 16 << 20
)

// MediaPipeConfig locates the Python hands service.
type MediaPipeConfig struct {
	// Script is the path to hands_service.py. Empty means search the usual locations.
	Script string
	// Python is the interpreter. Empty means a project venv or python3.
	Python string
	// IdleTimeout stops the service after this much inactivity.
	IdleTimeout time.Duration
}

// MediaPipeSource implements Source using a Python MediaPipe subprocess.
//
// Messages in both directions are msgpack documents framed by a 4-byte
// big-endian length prefix.
type MediaPipeSource struct {
	script      string
	python      string
	idleTimeout time.Duration

	mu        sync.Mutex
	opts      Options
	dirty     bool
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	seq       uint64
	idleTimer *time.Timer
	closed    bool
}

// ErrClosed is returned for frames submitted after Close.
var ErrClosed = errors.New("detector closed")

// wireRequest is sent to the service.
type wireRequest struct {
	Type    string   `msgpack:"type"` // "configure" or "frame"
	Seq     uint64   `msgpack:"seq"`
	Options *Options `msgpack:"options,omitempty"`
	Frame   []byte   `msgpack:"frame,omitempty"`
	Width   int      `msgpack:"width,omitempty"`
	Height  int      `msgpack:"height,omitempty"`
}

// wireResponse is read back from the service.
type wireResponse struct {
	Seq   uint64     `msgpack:"seq"`
	Hands []wireHand `msgpack:"hands"`
	Error string     `msgpack:"error,omitempty"`
}

type wireHand struct {
	Points     []Landmark `msgpack:"points"`
	Handedness string     `msgpack:"handedness"`
	Score      float64    `msgpack:"score"`
}

// NewMediaPipeSource creates a new MediaPipe landmark source.
// The Python process is started lazily on first submission.
func NewMediaPipeSource(cfg MediaPipeConfig) (*MediaPipeSource, error) {
	script := cfg.Script
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("hands service script: %w", err)
	}

	python := cfg.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	return &MediaPipeSource{
		script:      script,
		python:      python,
		idleTimeout: idle,
		opts:        DefaultOptions(),
		dirty:       true,
	}, nil
}

// Configure records the options; they are sent before the next frame.
func (d *MediaPipeSource) Configure(opts Options) error {
	if opts.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", opts.MaxHands)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts = opts
	d.dirty = true
	return nil
}

// Submit encodes the frame and runs detection in the background.
func (d *MediaPipeSource) Submit(frame *gocv.Mat) <-chan Result {
	if frame == nil || frame.Empty() {
		return resolved(Result{Err: errors.New("empty frame")})
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return resolved(Result{Err: fmt.Errorf("encode frame: %w", err)})
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()
	width, height := frame.Cols(), frame.Rows()

	ch := make(chan Result, 1)
	go func() {
		hand, err := d.detect(data, width, height)
		ch <- Result{Hand: hand, Err: err}
	}()
	return ch
}

// Close shuts down the Python process. Later submissions fail with ErrClosed
// instead of starting a new one.
func (d *MediaPipeSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return d.shutdown()
}

func (d *MediaPipeSource) detect(jpeg []byte, width, height int) (*HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	if d.dirty {
		opts := d.opts
		if _, err := d.roundTrip(wireRequest{Type: "configure", Options: &opts}); err != nil {
			return nil, fmt.Errorf("configure: %w", err)
		}
		d.dirty = false
	}

	resp, err := d.roundTrip(wireRequest{
		Type:   "frame",
		Frame:  jpeg,
		Width:  width,
		Height: height,
	})
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()

	if len(resp.Hands) == 0 {
		return nil, nil
	}
	return resp.Hands[0].toHandLandmarks()
}

// roundTrip sends one request and reads its response. Any transport error
// tears the process down so the next call starts fresh.
func (d *MediaPipeSource) roundTrip(req wireRequest) (*wireResponse, error) {
	d.seq++
	req.Seq = d.seq

	if err := writeMessage(d.stdin, req); err != nil {
		d.kill()
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp wireResponse
	if err := readMessage(d.stdout, &resp); err != nil {
		d.kill()
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Seq != req.Seq {
		d.kill()
		return nil, fmt.Errorf("response out of sequence: got %d, want %d", resp.Seq, req.Seq)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("hands service: %s", resp.Error)
	}
	return &resp, nil
}

func (d *MediaPipeSource) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.python, d.script)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start hands service: %w", err)
	}

	slog.Info("hands service started", "python", d.python, "script", d.script, "pid", d.cmd.Process.Pid)

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.dirty = true
	return nil
}

func (d *MediaPipeSource) shutdown() error {
	if !d.started {
		return nil
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}
	err := d.cmd.Wait()
	d.reset()
	return err
}

func (d *MediaPipeSource) kill() {
	if !d.started {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	d.stdin.Close()
	d.cmd.Process.Kill()
	d.cmd.Wait()
	d.reset()
}

func (d *MediaPipeSource) reset() {
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
}

func (d *MediaPipeSource) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	if d.closed {
		return
	}
	d.idleTimer = time.AfterFunc(d.idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		slog.Debug("hands service idle, stopping")
		d.shutdown()
	})
}

// writeMessage writes v as a length-prefixed msgpack document.
func writeMessage(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, uint32(len(payload)))
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// readMessage reads one length-prefixed msgpack document into v.
func readMessage(r io.Reader, v any) error {
	prefix := make([]byte, 4)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(prefix)
	if n > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	return msgpack.Unmarshal(payload, v)
}

func (h wireHand) toHandLandmarks() (*HandLandmarks, error) {
	lm, err := FromPoints(h.Points)
	if err != nil {
		return nil, fmt.Errorf("hands service returned %d points: %w", len(h.Points), err)
	}
	lm.Handedness = h.Handedness
	lm.Score = h.Score
	return lm, nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".yantram", "scripts", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".yantram/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
