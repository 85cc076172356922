package motion

import (
	"errors"
	"math"
	"testing"
)

func allModels() []Model {
	return []Model{GridModel{}, RotaryModel{}, DefaultContinuousModel()}
}

func TestNopIsIdentityForEveryModel(t *testing.T) {
	states := []State{
		{},
		{X: 3, Y: 2},
		{X: 1, Y: 1, Theta: 3},
		{X: 0.25, Y: 4.5, Velocity: 0.18, Angle: 140},
	}
	for _, m := range allModels() {
		for _, s := range states {
			got, err := m.Propose(s, Nop)
			if err != nil {
				t.Fatalf("%s nop: %v", m.Kind(), err)
			}
			if got != s {
				t.Fatalf("%s nop changed state: got=%+v want=%+v", m.Kind(), got, s)
			}
		}
	}
}

func TestBeepLeavesStateUnchangedForEveryModel(t *testing.T) {
	s := State{X: 2, Y: 1, Theta: 1, Velocity: 0.1, Angle: 45}
	for _, m := range allModels() {
		got, err := m.Propose(s, Beep)
		if err != nil {
			t.Fatalf("%s beep: %v", m.Kind(), err)
		}
		if got != s {
			t.Fatalf("%s beep changed state: got=%+v want=%+v", m.Kind(), got, s)
		}
	}
}

func TestGridModelMovesOneCellPerAxis(t *testing.T) {
	m := GridModel{}
	start := State{X: 2, Y: 2}
	cases := []struct {
		action Action
		x, y   float64
	}{
		{Up, 2, 3},
		{Down, 2, 1},
		{Left, 1, 2},
		{Right, 3, 2},
	}
	for _, tc := range cases {
		got, err := m.Propose(start, tc.action)
		if err != nil {
			t.Fatalf("grid %s: %v", tc.action, err)
		}
		if got.X != tc.x || got.Y != tc.y {
			t.Fatalf("grid %s: got=(%v,%v) want=(%v,%v)", tc.action, got.X, got.Y, tc.x, tc.y)
		}
	}
}

func TestGridModelRejectsRotaryActions(t *testing.T) {
	m := GridModel{}
	for _, a := range []Action{Forward, Backward, TurnLeft, TurnRight, Accelerate} {
		_, err := m.Propose(State{}, a)
		if err == nil {
			t.Fatalf("expected invalid action error for %s", a)
		}
		var invalid *InvalidActionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidActionError, got %v", err)
		}
		if invalid.Model != GridKind || invalid.Action != a {
			t.Fatalf("unexpected error detail: %+v", invalid)
		}
	}
}

func TestRotaryTurnsRotateCounterClockwise(t *testing.T) {
	m := RotaryModel{}
	s := State{X: 1, Y: 1, Theta: 0}

	// turn-left cycles east -> north -> west -> south -> east.
	want := []int{1, 2, 3, 0}
	for i, w := range want {
		next, err := m.Propose(s, TurnLeft)
		if err != nil {
			t.Fatalf("turn-left %d: %v", i, err)
		}
		if next.Theta != w {
			t.Fatalf("turn-left %d: got theta=%d want=%d", i, next.Theta, w)
		}
		if next.X != s.X || next.Y != s.Y {
			t.Fatalf("turn-left %d moved the agent: %+v", i, next)
		}
		s = next
	}

	next, err := m.Propose(State{Theta: 0}, TurnRight)
	if err != nil {
		t.Fatalf("turn-right: %v", err)
	}
	if next.Theta != 3 {
		t.Fatalf("turn-right from east: got theta=%d want=3", next.Theta)
	}
}

func TestRotaryForwardFollowsFacingAndBackwardReverses(t *testing.T) {
	m := RotaryModel{}
	cases := []struct {
		theta        int
		fwdX, fwdY   float64
		backX, backY float64
	}{
		{0, 2, 1, 0, 1},
		{1, 1, 2, 1, 0},
		{2, 0, 1, 2, 1},
		{3, 1, 0, 1, 2},
	}
	for _, tc := range cases {
		start := State{X: 1, Y: 1, Theta: tc.theta}
		fwd, err := m.Propose(start, Forward)
		if err != nil {
			t.Fatalf("forward theta=%d: %v", tc.theta, err)
		}
		if fwd.X != tc.fwdX || fwd.Y != tc.fwdY || fwd.Theta != tc.theta {
			t.Fatalf("forward theta=%d: got=(%v,%v,%d)", tc.theta, fwd.X, fwd.Y, fwd.Theta)
		}
		back, err := m.Propose(start, Backward)
		if err != nil {
			t.Fatalf("backward theta=%d: %v", tc.theta, err)
		}
		if back.X != tc.backX || back.Y != tc.backY || back.Theta != tc.theta {
			t.Fatalf("backward theta=%d: got=(%v,%v,%d)", tc.theta, back.X, back.Y, back.Theta)
		}
	}
}

func TestContinuousIntegratesWithPreUpdateVelocityAndAngle(t *testing.T) {
	m := DefaultContinuousModel()

	// Accelerating from rest moves nothing this step; the velocity change
	// shows up in the next step's displacement.
	s := State{X: 1, Y: 1}
	next, err := m.Propose(s, Accelerate)
	if err != nil {
		t.Fatalf("accelerate: %v", err)
	}
	if next.X != 1 || next.Y != 1 {
		t.Fatalf("accelerate from rest moved the agent: got=(%v,%v)", next.X, next.Y)
	}
	if math.Abs(next.Velocity-0.02) > 1e-12 {
		t.Fatalf("accelerate velocity: got=%v want=0.02", next.Velocity)
	}

	// The following step displaces by the stored velocity along the heading
	// held at the start of the step.
	after, err := m.Propose(next, Accelerate)
	if err != nil {
		t.Fatalf("second accelerate: %v", err)
	}
	if math.Abs(after.X-1.02) > 1e-12 || after.Y != 1 {
		t.Fatalf("second accelerate position: got=(%v,%v) want=(1.02,1)", after.X, after.Y)
	}

	// A turn moves with the old heading and only then rotates.
	turning := State{X: 0, Y: 0, Velocity: 0.1, Angle: 0}
	turned, err := m.Propose(turning, TurnLeft)
	if err != nil {
		t.Fatalf("turn-left: %v", err)
	}
	if math.Abs(turned.X-0.1) > 1e-12 || turned.Y != 0 {
		t.Fatalf("turn-left displaced along new heading: got=(%v,%v)", turned.X, turned.Y)
	}
	if math.Abs(turned.Angle-20) > 1e-12 {
		t.Fatalf("turn-left angle: got=%v want=20", turned.Angle)
	}
}

func TestContinuousVelocityClampsToBounds(t *testing.T) {
	m := ContinuousModel{Accel: 0.15, AngleStep: 20, MinVelocity: -0.2, MaxVelocity: 0.2}

	s := State{Velocity: 0.15}
	next, err := m.Propose(s, Accelerate)
	if err != nil {
		t.Fatalf("accelerate: %v", err)
	}
	if next.Velocity != 0.2 {
		t.Fatalf("clamped velocity: got=%v want=0.2", next.Velocity)
	}

	s = State{Velocity: -0.15}
	next, err = m.Propose(s, Decelerate)
	if err != nil {
		t.Fatalf("decelerate: %v", err)
	}
	if next.Velocity != -0.2 {
		t.Fatalf("clamped velocity: got=%v want=-0.2", next.Velocity)
	}
}

func TestContinuousDecelerateThroughZeroSnaps(t *testing.T) {
	m := DefaultContinuousModel()
	s := State{Velocity: 0.02}
	next, err := m.Propose(s, Decelerate)
	if err != nil {
		t.Fatalf("decelerate: %v", err)
	}
	if next.Velocity != 0 {
		t.Fatalf("velocity through zero: got=%v want=0", next.Velocity)
	}
}

func TestContinuousAngleWrapsIntoRange(t *testing.T) {
	m := DefaultContinuousModel()

	s := State{Angle: 350}
	next, err := m.Propose(s, TurnLeft)
	if err != nil {
		t.Fatalf("turn-left: %v", err)
	}
	if next.Angle != 10 {
		t.Fatalf("wrap up: got=%v want=10", next.Angle)
	}

	s = State{Angle: 10}
	next, err = m.Propose(s, TurnRight)
	if err != nil {
		t.Fatalf("turn-right: %v", err)
	}
	if next.Angle != 350 {
		t.Fatalf("wrap down: got=%v want=350", next.Angle)
	}
}

func TestContinuousAxisAlignedMotionStaysExact(t *testing.T) {
	m := DefaultContinuousModel()

	// Heading north: cos(90 deg) is float dust and must snap to zero so the
	// x coordinate never drifts.
	s := State{X: 2, Y: 0, Velocity: 0.2, Angle: 90}
	next, err := m.Propose(s, Accelerate)
	if err != nil {
		t.Fatalf("accelerate: %v", err)
	}
	if next.X != 2 {
		t.Fatalf("x drifted off axis: got=%v want=2", next.X)
	}
	if math.Abs(next.Y-0.2) > 1e-12 {
		t.Fatalf("y displacement: got=%v want=0.2", next.Y)
	}
}

func TestParseKindAndNames(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"grid", GridKind},
		{"", GridKind},
		{"rotary", RotaryKind},
		{"differential", RotaryKind},
		{"continuous", ContinuousKind},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got=%s want=%s", tc.in, got, tc.want)
		}
	}
	if _, err := ParseKind("hexagonal"); err == nil {
		t.Fatal("expected error for unknown model name")
	}
}

func TestParseActionRoundTrip(t *testing.T) {
	for _, a := range []Action{Nop, Beep, Up, Down, Left, Right, Forward, Backward, TurnLeft, TurnRight, Accelerate, Decelerate} {
		got, err := ParseAction(a.String())
		if err != nil {
			t.Fatalf("parse %s: %v", a, err)
		}
		if got != a {
			t.Fatalf("round trip %s: got=%s", a, got)
		}
	}
	if _, err := ParseAction("warp"); err == nil {
		t.Fatal("expected error for unknown action name")
	}
}

func TestStateCellRoundsToNearest(t *testing.T) {
	cases := []struct {
		x, y   float64
		cx, cy int
	}{
		{0, 0, 0, 0},
		{1.4, 2.5, 1, 3},
		{2.6, 0.4, 3, 0},
		{-0.4, -0.6, 0, -1},
	}
	for _, tc := range cases {
		s := State{X: tc.x, Y: tc.y}
		cx, cy := s.Cell()
		if cx != tc.cx || cy != tc.cy {
			t.Fatalf("cell(%v,%v): got=(%d,%d) want=(%d,%d)", tc.x, tc.y, cx, cy, tc.cx, tc.cy)
		}
	}
}
