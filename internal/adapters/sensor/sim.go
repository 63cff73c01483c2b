package sensor

import (
	"context"
	"math"
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
)

// Synth generates deterministic tracked frames: up to MaxBodies people
// walking in front of the sensor, the visible count cycling 0..MaxBodies
// every PhaseFrames frames, each body raising both hands every third phase.
type Synth struct {
	MaxBodies   int
	PhaseFrames uint64
	Interval    time.Duration
}

// Offsets from the pelvis, in millimetres (Y grows downward).
var (
	jointOffsets = map[model.Joint]model.Vec3{ //nolint:gochecknoglobals // fixed pose table
		model.JointSpineNavel:    {Y: -200},
		model.JointSpineChest:    {Y: -400},
		model.JointNeck:          {Y: -550},
		model.JointHead:          {Y: -700},
		model.JointNose:          {Y: -690, Z: -90},
		model.JointShoulderLeft:  {X: -180, Y: -500},
		model.JointShoulderRight: {X: 180, Y: -500},
		model.JointElbowLeft:     {X: -250, Y: -250},
		model.JointElbowRight:    {X: 250, Y: -250},
		model.JointHipLeft:       {X: -100},
		model.JointHipRight:      {X: 100},
		model.JointKneeLeft:      {X: -110, Y: 450},
		model.JointKneeRight:     {X: 110, Y: 450},
		model.JointAnkleLeft:     {X: -110, Y: 850},
		model.JointAnkleRight:    {X: 110, Y: 850},
	}
	loweredWrist = model.Vec3{X: 260, Y: -30}
	raisedWrist  = model.Vec3{X: 220, Y: -900}
)

// Frame returns frame number n.
func (s Synth) Frame(n uint64) model.BodyFrame {
	phaseFrames := max(s.PhaseFrames, 1)
	phase := n / phaseFrames
	visible := 0
	if s.MaxBodies > 0 {
		visible = int(phase % uint64(s.MaxBodies+1))
	}

	frame := model.BodyFrame{
		DeviceTimestamp: time.Duration(n) * s.Interval,
		Bodies:          make([]model.Body, 0, visible),
	}
	for i := 0; i < visible; i++ {
		angle := float64(n)*0.05 + float64(i)*2*math.Pi/float64(s.MaxBodies)
		pelvis := model.Vec3{
			X: float32(800 * math.Cos(angle)),
			Y: 150,
			Z: float32(2500 + 600*math.Sin(angle)),
		}
		raised := (phase+uint64(i))%3 == 0
		frame.Bodies = append(frame.Bodies, model.Body{
			ID:       uint32(i + 1),
			Skeleton: pose(pelvis, raised),
		})
	}
	return frame
}

func pose(pelvis model.Vec3, raised bool) model.Skeleton {
	var s model.Skeleton
	for j := range s {
		off := jointOffsets[model.Joint(j)]
		s[j] = model.Vec3{X: pelvis.X + off.X, Y: pelvis.Y + off.Y, Z: pelvis.Z + off.Z}
	}
	wrist := loweredWrist
	if raised {
		wrist = raisedWrist
	}
	s[model.JointWristLeft] = model.Vec3{X: pelvis.X - wrist.X, Y: pelvis.Y + wrist.Y, Z: pelvis.Z}
	s[model.JointWristRight] = model.Vec3{X: pelvis.X + wrist.X, Y: pelvis.Y + wrist.Y, Z: pelvis.Z}
	s[model.JointHandLeft] = s[model.JointWristLeft]
	s[model.JointHandRight] = s[model.JointWristRight]
	return s
}

// SimDevice is a Device backed by Synth, paced at the synth interval.
type SimDevice struct {
	synth   Synth
	next    time.Time
	frame   uint64
	pending *model.BodyFrame
}

type simCapture struct {
	n uint64
}

func (*simCapture) Release() {}

// OpenSim returns an Opener for a simulated device producing up to
// maxBodies bodies at fps frames per second. The visible count changes
// every five seconds.
func OpenSim(maxBodies int, fps float64) Opener {
	if fps <= 0 {
		fps = 30
	}
	return OpenSynth(Synth{
		MaxBodies:   maxBodies,
		PhaseFrames: uint64(math.Max(1, 5*fps)),
		Interval:    time.Duration(float64(time.Second) / fps),
	})
}

// OpenSynth returns an Opener for a simulated device driven by s.
func OpenSynth(s Synth) Opener {
	return func(_ context.Context) (Device, error) {
		if s.Interval <= 0 {
			s.Interval = time.Second / 30
		}
		return &SimDevice{synth: s, next: time.Now().Add(s.Interval)}, nil
	}
}

// GetCapture waits for the next frame slot.
func (d *SimDevice) GetCapture(ctx context.Context, timeout time.Duration) (Capture, WaitResult) {
	wait := time.Until(d.next)
	timedOut := timeout != Infinite && wait > timeout
	if timedOut {
		wait = timeout
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, WaitFailed
		case <-timer.C:
		}
	}
	if timedOut {
		return nil, WaitTimeout
	}

	now := time.Now()
	d.next = d.next.Add(d.synth.Interval)
	if d.next.Before(now) {
		d.next = now.Add(d.synth.Interval)
	}
	c := &simCapture{n: d.frame}
	d.frame++
	return c, WaitSucceeded
}

// EnqueueCapture runs the synthetic tracker on the capture.
func (d *SimDevice) EnqueueCapture(_ context.Context, c Capture, _ time.Duration) WaitResult {
	sc, ok := c.(*simCapture)
	if !ok {
		return WaitFailed
	}
	f := d.synth.Frame(sc.n)
	d.pending = &f
	return WaitSucceeded
}

// PopResult returns the frame produced by the last EnqueueCapture.
func (d *SimDevice) PopResult(_ context.Context, _ time.Duration) (model.BodyFrame, WaitResult) {
	if d.pending == nil {
		return model.BodyFrame{}, WaitFailed
	}
	f := *d.pending
	d.pending = nil
	return f, WaitSucceeded
}

// Close is a no-op for the simulator.
func (d *SimDevice) Close() error { return nil }
